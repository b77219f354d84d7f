package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"retro-assist/internal/apperr"
	"retro-assist/internal/config"
)

// CompletionClient is the external LLM dependency. It returns the raw
// completion text and performs no parsing, so the response validator can
// be tested against canned strings.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// AIService calls an OpenAI-compatible chat-completions endpoint.
type AIService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewAIService(cfg config.OpenAIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AIService{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Complete sends one system+user exchange and returns the raw text.
// Errors are classified for the caller's retry policy: timeouts and
// rate limits are ServiceUnavailable (retryable), credential failures
// are ConnectionFailed (operator-actionable), everything else is
// GeneralError. No retry happens here.
func (s *AIService) Complete(ctx context.Context, system, user string) (string, error) {
	body := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	payload, _ := json.Marshal(body)

	// Caller cancellation is not propagated: an in-flight completion runs
	// to the client timeout, otherwise a disconnect-then-retry could
	// submit the same analysis twice.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), "POST", s.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.General(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", apperr.ServiceUnavailable("AI 응답 시간이 초과되었습니다.", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.ServiceUnavailable("AI 응답 시간이 초과되었습니다.", err)
		}
		return "", apperr.General(fmt.Errorf("llm call: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", apperr.ConnectionFailed("AI API 키가 유효하지 않습니다.")
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return "", apperr.ServiceUnavailable("AI 서비스 요청 한도를 초과했습니다.",
				fmt.Errorf("llm status %d: %s", resp.StatusCode, data))
		default:
			return "", apperr.General(fmt.Errorf("llm status %d: %s", resp.StatusCode, data))
		}
	}

	data, _ := io.ReadAll(resp.Body)
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", apperr.General(fmt.Errorf("decode response: %w", err))
	}
	if len(result.Choices) == 0 {
		return "", apperr.General(fmt.Errorf("empty choices"))
	}
	return result.Choices[0].Message.Content, nil
}
