package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"retro-assist/internal/apperr"
	"retro-assist/internal/model"
)

// stubCompletion records calls and returns a canned payload.
type stubCompletion struct {
	resp       string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (s *stubCompletion) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.resp, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Member{}, &model.Team{}, &model.MemberTeam{},
		&model.RetroRoom{}, &model.Retrospect{}, &model.MemberRetro{},
		&model.Answer{}, &model.MemberAnswer{},
	))
	return db
}

func seedMember(t *testing.T, db *gorm.DB, name string, teamID int64) model.Member {
	t.Helper()
	m := model.Member{Username: name, Name: name}
	require.NoError(t, db.Create(&m).Error)
	require.NoError(t, db.Create(&model.MemberTeam{MemberID: m.ID, TeamID: teamID}).Error)
	return m
}

func seedRetro(t *testing.T, db *gorm.DB, teamID int64, insight *string) model.Retrospect {
	t.Helper()
	r := model.Retrospect{Title: "스프린트 회고", Method: "KPT", TeamID: teamID, StartTime: time.Now()}
	r.TeamInsight = insight
	require.NoError(t, db.Create(&r).Error)
	return r
}

func seedParticipant(t *testing.T, db *gorm.DB, memberID, retroID int64, status string) model.MemberRetro {
	t.Helper()
	p := model.MemberRetro{MemberID: memberID, RetrospectID: retroID, Status: status}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedAnswer(t *testing.T, db *gorm.DB, retroID, memberID int64, question, content string) {
	t.Helper()
	a := model.Answer{RetrospectID: retroID, Question: question, Content: content}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&model.MemberAnswer{MemberID: memberID, AnswerID: a.ID}).Error)
}

func threeMissions(prefix string) []model.Mission {
	return []model.Mission{
		{Title: prefix + " 미션1", Description: "제안 하나예요."},
		{Title: prefix + " 미션2", Description: "제안 둘이에요."},
		{Title: prefix + " 미션3", Description: "제안 셋이에요."},
	}
}

func analysisJSON(t *testing.T, missions map[int64][]model.Mission) string {
	t.Helper()
	result := model.AnalysisResult{
		Insight: "이번 회고에서 팀은 협업은 좋았지만, 일정 관리에 아쉬움이 드러났어요.",
		EmotionRank: []model.EmotionRankItem{
			{Rank: 1, Label: "피로", Description: "짧은 일정으로 피로함을 느꼈어요", Count: 5},
			{Rank: 2, Label: "성취", Description: "기능 완성으로 성취감을 느꼈어요", Count: 3},
			{Rank: 3, Label: "불안", Description: "다음 일정에 불안함이 있었어요", Count: 1},
		},
	}
	for id, ms := range missions {
		result.PersonalMissions = append(result.PersonalMissions, model.PersonalMission{
			MemberID: id, Name: fmt.Sprintf("멤버%d", id), Missions: ms,
		})
	}
	data, err := json.Marshal(result)
	require.NoError(t, err)
	return string(data)
}

// setupSubmitted builds a team with two submitted members and enough
// non-blank answers to pass the sufficiency floor.
func setupSubmitted(t *testing.T, db *gorm.DB) (model.Retrospect, model.Member, model.Member) {
	t.Helper()
	team := model.Team{Name: "웹3팀"}
	require.NoError(t, db.Create(&team).Error)
	m1 := seedMember(t, db, "소은", team.ID)
	m2 := seedMember(t, db, "민수", team.ID)
	retro := seedRetro(t, db, team.ID, nil)
	seedParticipant(t, db, m1.ID, retro.ID, model.StatusSubmitted)
	seedParticipant(t, db, m2.ID, retro.ID, model.StatusSubmitted)
	seedAnswer(t, db, retro.ID, m1.ID, "좋았던 점은?", "협업이 좋았어요")
	seedAnswer(t, db, retro.ID, m1.ID, "문제점은?", "시간이 부족했어요")
	seedAnswer(t, db, retro.ID, m1.ID, "시도해보고 싶은 것은?", "페어 프로그래밍이요")
	seedAnswer(t, db, retro.ID, m2.ID, "좋았던 점은?", "코드 리뷰가 도움이 됐어요")
	seedAnswer(t, db, retro.ID, m2.ID, "문제점은?", "일정 관리가 필요해요")
	return retro, m1, m2
}

func TestAnalyzeSuccess(t *testing.T) {
	db := newTestDB(t)
	retro, m1, m2 := setupSubmitted(t, db)

	stub := &stubCompletion{resp: analysisJSON(t, map[int64][]model.Mission{
		m2.ID: threeMissions("민수"),
		m1.ID: threeMissions("소은"),
	})}
	svc := NewAnalysisService(db, stub)

	result, err := svc.Analyze(context.Background(), m1.ID, retro.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, stub.calls)

	assert.Len(t, result.EmotionRank, 3)
	require.Len(t, result.PersonalMissions, 2)
	assert.Equal(t, m1.ID, result.PersonalMissions[0].MemberID)
	assert.Equal(t, m2.ID, result.PersonalMissions[1].MemberID)

	var stored model.Retrospect
	require.NoError(t, db.First(&stored, retro.ID).Error)
	require.NotNil(t, stored.TeamInsight)
	assert.Equal(t, result.Insight, *stored.TeamInsight)

	var parts []model.MemberRetro
	require.NoError(t, db.Where("retrospect_id = ?", retro.ID).Find(&parts).Error)
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.Equal(t, model.StatusAnalyzed, p.Status)
		require.NotNil(t, p.PersonalInsight)
		assert.Contains(t, *p.PersonalInsight, "미션1: ")
		assert.Equal(t, 3, len(strings.Split(*p.PersonalInsight, "\n")))
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	db := newTestDB(t)
	retro, m1, m2 := setupSubmitted(t, db)

	stub := &stubCompletion{resp: analysisJSON(t, map[int64][]model.Mission{
		m1.ID: threeMissions("소은"),
		m2.ID: threeMissions("민수"),
	})}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), m1.ID, retro.ID)
	require.NoError(t, err)

	var before model.Retrospect
	require.NoError(t, db.First(&before, retro.ID).Error)

	_, err = svc.Analyze(context.Background(), m1.ID, retro.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAlreadyAnalyzed)
	assert.Equal(t, 1, stub.calls, "second call must not reach the completion service")

	var after model.Retrospect
	require.NoError(t, db.First(&after, retro.ID).Error)
	assert.Equal(t, *before.TeamInsight, *after.TeamInsight)
}

func TestAnalyzeNotFound(t *testing.T) {
	db := newTestDB(t)
	stub := &stubCompletion{}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), 1, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, stub.calls)
}

func TestAnalyzeAccessDenied(t *testing.T) {
	db := newTestDB(t)
	retro, _, _ := setupSubmitted(t, db)

	outsider := model.Member{Username: "outsider", Name: "외부인"}
	require.NoError(t, db.Create(&outsider).Error)

	stub := &stubCompletion{}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), outsider.ID, retro.ID)
	assert.ErrorIs(t, err, apperr.ErrAccessDenied)
	assert.Zero(t, stub.calls)
}

func TestAnalyzeQuota(t *testing.T) {
	db := newTestDB(t)
	retro, m1, m2 := setupSubmitted(t, db)

	insight := "이미 분석된 회고예요."
	for i := 0; i < 9; i++ {
		seedRetro(t, db, retro.TeamID, &insight)
	}
	// A last-month analysis must not count against this month's quota.
	from, _ := monthWindowKST(time.Now())
	old := seedRetro(t, db, retro.TeamID, &insight)
	require.NoError(t, db.Model(&model.Retrospect{}).Where("id = ?", old.ID).
		UpdateColumn("updated_at", from.Add(-time.Hour)).Error)

	stub := &stubCompletion{resp: analysisJSON(t, map[int64][]model.Mission{
		m1.ID: threeMissions("소은"),
		m2.ID: threeMissions("민수"),
	})}
	svc := NewAnalysisService(db, stub)

	// 9 analyses inside the window: the 10th proceeds.
	_, err := svc.Analyze(context.Background(), m1.ID, retro.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)

	// Now 10 inside the window: the next attempt is rejected without an
	// external call.
	retro2 := seedRetro(t, db, retro.TeamID, nil)
	seedParticipant(t, db, m1.ID, retro2.ID, model.StatusSubmitted)
	seedAnswer(t, db, retro2.ID, m1.ID, "좋았던 점은?", "답변 하나")
	seedAnswer(t, db, retro2.ID, m1.ID, "문제점은?", "답변 둘")
	seedAnswer(t, db, retro2.ID, m1.ID, "시도해보고 싶은 것은?", "답변 셋")

	_, err = svc.Analyze(context.Background(), m1.ID, retro2.ID)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)
	assert.Equal(t, 1, stub.calls)
}

func TestAnalyzeNoParticipants(t *testing.T) {
	db := newTestDB(t)
	team := model.Team{Name: "웹3팀"}
	require.NoError(t, db.Create(&team).Error)
	m := seedMember(t, db, "소은", team.ID)
	retro := seedRetro(t, db, team.ID, nil)
	seedParticipant(t, db, m.ID, retro.ID, model.StatusDraft)

	stub := &stubCompletion{}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), m.ID, retro.ID)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)
	assert.Zero(t, stub.calls, "insufficient data must not reach the completion service")
}

func TestAnalyzeAnswerFloor(t *testing.T) {
	db := newTestDB(t)
	team := model.Team{Name: "웹3팀"}
	require.NoError(t, db.Create(&team).Error)
	m := seedMember(t, db, "소은", team.ID)
	retro := seedRetro(t, db, team.ID, nil)
	seedParticipant(t, db, m.ID, retro.ID, model.StatusSubmitted)
	seedAnswer(t, db, retro.ID, m.ID, "좋았던 점은?", "협업이 좋았어요")
	seedAnswer(t, db, retro.ID, m.ID, "문제점은?", "시간이 부족했어요")
	seedAnswer(t, db, retro.ID, m.ID, "시도해보고 싶은 것은?", "   ")

	stub := &stubCompletion{resp: analysisJSON(t, map[int64][]model.Mission{
		m.ID: threeMissions("소은"),
	})}
	svc := NewAnalysisService(db, stub)

	// Two non-blank answers: below the floor.
	_, err := svc.Analyze(context.Background(), m.ID, retro.ID)
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)
	assert.Zero(t, stub.calls)

	// Third non-blank answer: proceeds.
	seedAnswer(t, db, retro.ID, m.ID, "자유 의견은?", "회고를 자주 했으면 해요")
	_, err = svc.Analyze(context.Background(), m.ID, retro.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestAnalyzePlaceholderInPrompt(t *testing.T) {
	db := newTestDB(t)
	retro, m1, m2 := setupSubmitted(t, db)
	seedAnswer(t, db, retro.ID, m2.ID, "시도해보고 싶은 것은?", "  ")

	stub := &stubCompletion{resp: analysisJSON(t, map[int64][]model.Mission{
		m1.ID: threeMissions("소은"),
		m2.ID: threeMissions("민수"),
	})}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), m1.ID, retro.ID)
	require.NoError(t, err)

	assert.Contains(t, stub.lastUser, answerPlaceholder)
	assert.Contains(t, stub.lastUser, fmt.Sprintf("userId: %d", m1.ID))
	assert.Contains(t, stub.lastUser, fmt.Sprintf("userId: %d", m2.ID))
	assert.Contains(t, stub.lastSystem, "emotionRank")
}

func TestAnalyzeInvalidModelOutput(t *testing.T) {
	db := newTestDB(t)
	retro, m1, _ := setupSubmitted(t, db)

	stub := &stubCompletion{resp: "죄송하지만 분석할 수 없어요."}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), m1.ID, retro.ID)
	assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)

	var stored model.Retrospect
	require.NoError(t, db.First(&stored, retro.ID).Error)
	assert.Nil(t, stored.TeamInsight)
}

func TestAnalyzeRollbackOnMissingMember(t *testing.T) {
	db := newTestDB(t)
	retro, m1, _ := setupSubmitted(t, db)

	// Output passes validation but omits the second member, so the
	// persister fails mid-transaction.
	stub := &stubCompletion{resp: analysisJSON(t, map[int64][]model.Mission{
		m1.ID: threeMissions("소은"),
	})}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), m1.ID, retro.ID)
	assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)

	var stored model.Retrospect
	require.NoError(t, db.First(&stored, retro.ID).Error)
	assert.Nil(t, stored.TeamInsight, "rollback must clear the team insight")

	var parts []model.MemberRetro
	require.NoError(t, db.Where("retrospect_id = ?", retro.ID).Find(&parts).Error)
	for _, p := range parts {
		assert.Equal(t, model.StatusSubmitted, p.Status)
		assert.Nil(t, p.PersonalInsight)
	}
}

func TestAnalyzeCompletionErrorPropagates(t *testing.T) {
	db := newTestDB(t)
	retro, m1, _ := setupSubmitted(t, db)

	stub := &stubCompletion{err: apperr.ServiceUnavailable("AI 응답 시간이 초과되었습니다.", errors.New("timeout"))}
	svc := NewAnalysisService(db, stub)

	_, err := svc.Analyze(context.Background(), m1.ID, retro.ID)
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)

	var stored model.Retrospect
	require.NoError(t, db.First(&stored, retro.ID).Error)
	assert.Nil(t, stored.TeamInsight)
}

func TestMonthWindowKST(t *testing.T) {
	// 2026-03-01 05:00 UTC is 14:00 KST, so the window is March in KST:
	// it opens at 2026-02-28 15:00 UTC.
	now := time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	from, to := monthWindowKST(now)
	assert.True(t, from.Equal(time.Date(2026, 2, 28, 15, 0, 0, 0, time.UTC)), "got %v", from)
	assert.True(t, to.Equal(time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)), "got %v", to)

	// 2026-01-31 16:00 UTC is already 2026-02-01 01:00 KST: February.
	now = time.Date(2026, 1, 31, 16, 0, 0, 0, time.UTC)
	from, _ = monthWindowKST(now)
	assert.True(t, from.Equal(time.Date(2026, 1, 31, 15, 0, 0, 0, time.UTC)), "got %v", from)
}
