package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retro-assist/internal/apperr"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperr.NotFound("존재하지 않는 회고입니다."), http.StatusNotFound, "RETRO404"},
		{"already analyzed", apperr.AlreadyAnalyzed(), http.StatusConflict, "RETRO409"},
		{"access denied", apperr.AccessDenied("해당 팀의 멤버가 아닙니다."), http.StatusForbidden, "RETRO403"},
		{"quota", apperr.QuotaExceeded("이번 달 분석 횟수를 모두 사용했습니다."), http.StatusTooManyRequests, "RETRO429"},
		{"insufficient", apperr.InsufficientData("답변이 부족합니다."), http.StatusUnprocessableEntity, "RETRO422"},
		{"unavailable", apperr.ServiceUnavailable("AI 응답 시간이 초과되었습니다.", nil), http.StatusServiceUnavailable, "AI_003"},
		{"bad key", apperr.ConnectionFailed("AI API 키가 유효하지 않습니다."), http.StatusBadGateway, "AI_002"},
		{"bad output", apperr.AnalysisFailed("AI 응답 JSON 파싱에 실패했습니다.", nil), http.StatusBadGateway, "AI_004"},
		{"store", apperr.Store(errors.New("db down")), http.StatusInternalServerError, "COMMON500"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "AI_005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}
