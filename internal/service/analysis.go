package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"retro-assist/internal/apperr"
	"retro-assist/internal/logger"
	"retro-assist/internal/model"
)

const (
	// monthlyAnalysisQuota caps analyses per team per KST calendar month.
	monthlyAnalysisQuota = 10
	// minAnswerCount is the signal floor below which analysis is refused.
	minAnswerCount = 3
)

// kst is the product's reference timezone for the quota window.
var kst = time.FixedZone("KST", 9*60*60)

// AnalysisService runs the retrospective analysis pipeline: eligibility
// and sufficiency gating, answer aggregation, one completion call, output
// validation, and a single transaction persisting the result.
type AnalysisService struct {
	db *gorm.DB
	ai CompletionClient
}

func NewAnalysisService(db *gorm.DB, ai CompletionClient) *AnalysisService {
	return &AnalysisService{db: db, ai: ai}
}

// Analyze runs the whole pipeline for one retrospective. The first
// failure terminates it; there is no internal retry. Re-invoking after a
// completed run fails fast with AlreadyAnalyzed before any external call.
//
// The eligibility read and the final write are not covered by one row
// lock, so two racing calls could in principle both reach the completion
// service; the second one then fails on persist only if the first
// committed in between. This mirrors the reference behavior and is
// accepted for a <=10/month-per-team operation.
func (s *AnalysisService) Analyze(ctx context.Context, userID, retrospectID int64) (*model.AnalysisResult, error) {
	db := s.db.WithContext(ctx)

	retro, err := s.checkEligibility(db, userID, retrospectID)
	if err != nil {
		return nil, err
	}

	parts, err := s.checkSufficiency(db, retrospectID)
	if err != nil {
		return nil, err
	}

	members, err := s.aggregateAnswers(db, retrospectID, parts)
	if err != nil {
		return nil, err
	}

	system, user := buildAnalysisPrompt(members)
	raw, err := s.ai.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	result, err := parseAnalysisResult(raw)
	if err != nil {
		// Keep the payload: it is the only evidence of what the model did.
		logger.Error("analysis.parse_failed", "retrospect_id", retrospectID, "err", err, "raw", raw)
		return nil, err
	}

	if err := s.persistResult(db, retro, parts, result); err != nil {
		return nil, err
	}

	logger.Info("analysis.done", "retrospect_id", retrospectID, "team_id", retro.TeamID, "members", len(members))
	return result, nil
}

// checkEligibility verifies existence, the idempotency marker, team
// membership, and the monthly quota. Read-only.
func (s *AnalysisService) checkEligibility(db *gorm.DB, userID, retrospectID int64) (*model.Retrospect, error) {
	var retro model.Retrospect
	if err := db.First(&retro, retrospectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("존재하지 않는 회고입니다.")
		}
		return nil, apperr.Store(err)
	}

	if retro.TeamInsight != nil {
		return nil, apperr.AlreadyAnalyzed()
	}

	var membership model.MemberTeam
	err := db.Where("member_id = ? AND team_id = ?", userID, retro.TeamID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.AccessDenied("해당 팀의 멤버가 아닙니다.")
		}
		return nil, apperr.Store(err)
	}

	from, to := monthWindowKST(time.Now())
	var analyzed int64
	err = db.Model(&model.Retrospect{}).
		Where("team_id = ? AND team_insight IS NOT NULL AND updated_at >= ? AND updated_at < ?",
			retro.TeamID, from, to).
		Count(&analyzed).Error
	if err != nil {
		return nil, apperr.Store(err)
	}
	if analyzed >= monthlyAnalysisQuota {
		return nil, apperr.QuotaExceeded("이번 달 분석 횟수를 모두 사용했습니다.")
	}

	return &retro, nil
}

// monthWindowKST returns the [start, end) bounds of the calendar month
// containing now, computed in KST and returned in UTC for storage-side
// comparison.
func monthWindowKST(now time.Time) (time.Time, time.Time) {
	n := now.In(kst)
	start := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, kst)
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

// checkSufficiency enforces the minimum signal floor: at least one
// submitted participant and at least minAnswerCount non-blank answers.
// Refusing early avoids spending quota and completion cost on empty
// sessions.
func (s *AnalysisService) checkSufficiency(db *gorm.DB, retrospectID int64) ([]model.MemberRetro, error) {
	var parts []model.MemberRetro
	err := db.Where("retrospect_id = ? AND status IN ?", retrospectID,
		[]string{model.StatusSubmitted, model.StatusAnalyzed}).
		Order("member_id").
		Find(&parts).Error
	if err != nil {
		return nil, apperr.Store(err)
	}
	if len(parts) == 0 {
		return nil, apperr.InsufficientData("제출된 참여자가 없어 분석할 수 없습니다.")
	}

	var answers []model.Answer
	if err := db.Where("retrospect_id = ?", retrospectID).Find(&answers).Error; err != nil {
		return nil, apperr.Store(err)
	}
	filled := 0
	for _, a := range answers {
		if strings.TrimSpace(a.Content) != "" {
			filled++
		}
	}
	if filled < minAnswerCount {
		return nil, apperr.InsufficientData("답변이 부족하여 분석할 수 없습니다.")
	}

	return parts, nil
}

// aggregateAnswers collects each qualifying member's question/answer
// pairs. Names and the ownership join are resolved in one batch lookup
// each; blank answers get the placeholder so they stay visible in the
// prompt. Output is ordered by member id ascending so retried runs build
// byte-identical prompts.
func (s *AnalysisService) aggregateAnswers(db *gorm.DB, retrospectID int64, parts []model.MemberRetro) ([]model.MemberAnswerData, error) {
	memberIDs := make([]int64, 0, len(parts))
	for _, p := range parts {
		memberIDs = append(memberIDs, p.MemberID)
	}

	var members []model.Member
	if err := db.Where("id IN ?", memberIDs).Find(&members).Error; err != nil {
		return nil, apperr.Store(err)
	}
	names := make(map[int64]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	var answers []model.Answer
	if err := db.Where("retrospect_id = ?", retrospectID).Order("id").Find(&answers).Error; err != nil {
		return nil, apperr.Store(err)
	}
	answerIDs := make([]int64, 0, len(answers))
	byID := make(map[int64]model.Answer, len(answers))
	for _, a := range answers {
		answerIDs = append(answerIDs, a.ID)
		byID[a.ID] = a
	}

	var owners []model.MemberAnswer
	if len(answerIDs) > 0 {
		if err := db.Where("answer_id IN ?", answerIDs).Order("answer_id").Find(&owners).Error; err != nil {
			return nil, apperr.Store(err)
		}
	}

	grouped := make(map[int64][]model.QA, len(parts))
	for _, o := range owners {
		a, ok := byID[o.AnswerID]
		if !ok {
			continue
		}
		if _, qualifying := names[o.MemberID]; !qualifying {
			continue
		}
		content := a.Content
		if strings.TrimSpace(content) == "" {
			content = answerPlaceholder
		}
		grouped[o.MemberID] = append(grouped[o.MemberID], model.QA{Question: a.Question, Answer: content})
	}

	result := make([]model.MemberAnswerData, 0, len(parts))
	for _, p := range parts {
		result = append(result, model.MemberAnswerData{
			MemberID: p.MemberID,
			Name:     names[p.MemberID],
			Answers:  grouped[p.MemberID],
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MemberID < result[j].MemberID })

	return result, nil
}

// persistResult writes the team insight and every member's personal
// insight in one transaction. Any failure rolls the whole write back:
// a retrospective must never end up with team_insight set while its
// participants are left un-analyzed, or the other way around.
func (s *AnalysisService) persistResult(db *gorm.DB, retro *model.Retrospect, parts []model.MemberRetro, result *model.AnalysisResult) error {
	missionsByMember := make(map[int64][]model.Mission, len(result.PersonalMissions))
	for _, pm := range result.PersonalMissions {
		missionsByMember[pm.MemberID] = pm.Missions
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Model(&model.Retrospect{}).
			Where("id = ?", retro.ID).
			Updates(map[string]interface{}{"team_insight": result.Insight, "updated_at": now}).Error
		if err != nil {
			return apperr.Store(err)
		}

		for _, p := range parts {
			missions, ok := missionsByMember[p.MemberID]
			if !ok {
				return apperr.Newf(apperr.KindAnalysisFailed,
					"AI 응답에 멤버 %d의 미션이 없습니다.", p.MemberID)
			}
			err := tx.Model(&model.MemberRetro{}).
				Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"personal_insight": formatPersonalInsight(missions),
					"status":           model.StatusAnalyzed,
				}).Error
			if err != nil {
				return apperr.Store(err)
			}
		}
		return nil
	})
	return err
}
