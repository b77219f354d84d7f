package service

import (
	"encoding/json"
	"sort"
	"strings"

	"retro-assist/internal/apperr"
	"retro-assist/internal/model"
)

const (
	emotionRankSize   = 3
	missionsPerMember = 3
)

// parseAnalysisResult turns raw model output into a validated
// AnalysisResult. The model was asked for a schema but cannot be trusted
// to honor it, so every invariant the persister depends on is re-checked
// here: exactly 3 emotions, exactly 3 missions per member, canonical
// member ordering.
func parseAnalysisResult(raw string) (*model.AnalysisResult, error) {
	// Tolerate prose or code fences around the JSON document.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, apperr.AnalysisFailed("AI 응답에서 JSON을 찾을 수 없습니다.", nil)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return nil, apperr.AnalysisFailed("AI 응답 JSON 파싱에 실패했습니다.", err)
	}

	if result.Insight == "" {
		return nil, apperr.AnalysisFailed("AI 응답에 인사이트가 없습니다.", nil)
	}
	if n := len(result.EmotionRank); n != emotionRankSize {
		return nil, apperr.Newf(apperr.KindAnalysisFailed,
			"감정 랭킹은 %d개여야 하는데 %d개가 반환되었습니다.", emotionRankSize, n)
	}
	for _, pm := range result.PersonalMissions {
		if n := len(pm.Missions); n != missionsPerMember {
			return nil, apperr.Newf(apperr.KindAnalysisFailed,
				"미션은 %d개여야 하는데 멤버 %d에게 %d개가 반환되었습니다.", missionsPerMember, pm.MemberID, n)
		}
	}

	// Canonicalize: the model's ordering is not trusted.
	sort.SliceStable(result.EmotionRank, func(i, j int) bool {
		return result.EmotionRank[i].Count > result.EmotionRank[j].Count
	})
	for i := range result.EmotionRank {
		result.EmotionRank[i].Rank = i + 1
	}
	sort.Slice(result.PersonalMissions, func(i, j int) bool {
		return result.PersonalMissions[i].MemberID < result.PersonalMissions[j].MemberID
	})

	return &result, nil
}

// formatPersonalInsight serializes a member's missions into the stored
// personal_insight text.
func formatPersonalInsight(missions []model.Mission) string {
	lines := make([]string, 0, len(missions))
	for _, m := range missions {
		lines = append(lines, m.Title+": "+m.Description)
	}
	return strings.Join(lines, "\n")
}
