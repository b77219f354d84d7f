package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"retro-assist/internal/apperr"
	"retro-assist/internal/logger"
	"retro-assist/internal/model"
)

// maxAnswerLength caps one answer's content.
const maxAnswerLength = 1000

// Default question sets per retrospective method.
var defaultQuestions = map[string][]string{
	"KPT": {
		"계속 유지하고 싶은 좋은 점은 무엇인가요?",
		"개선이 필요한 문제점은 무엇인가요?",
		"다음에 시도해보고 싶은 것은 무엇인가요?",
		"전체 프로젝트를 돌아보며 느낀 점을 자유롭게 작성해주세요.",
		"추가로 공유하고 싶은 의견이 있나요?",
	},
}

type RetrospectService struct {
	db            *gorm.DB
	invitationURL string
}

func NewRetrospectService(db *gorm.DB, invitationBaseURL string) *RetrospectService {
	if invitationBaseURL == "" {
		invitationBaseURL = "https://retro.example.com"
	}
	return &RetrospectService{db: db, invitationURL: invitationBaseURL}
}

// Create validates the request, then creates the retro room, the
// retrospective, the method's question templates, and the creator's
// draft participation in one transaction.
func (s *RetrospectService) Create(ctx context.Context, userID int64, req model.CreateRetrospectRequest) (*model.CreateRetrospectResponse, error) {
	questions, ok := defaultQuestions[req.Method]
	if !ok {
		return nil, apperr.InvalidInput("지원하지 않는 회고 방식입니다.")
	}

	startTime, err := parseStartTime(req.RetrospectDate, req.RetrospectTime)
	if err != nil {
		return nil, err
	}
	if !startTime.After(time.Now()) {
		return nil, apperr.InvalidInput("회고 시작 시간은 미래여야 합니다.")
	}

	db := s.db.WithContext(ctx)

	var team model.Team
	if err := db.First(&team, req.TeamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("존재하지 않는 팀입니다.")
		}
		return nil, apperr.Store(err)
	}

	var membership model.MemberTeam
	err = db.Where("member_id = ? AND team_id = ?", userID, req.TeamID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.AccessDenied("해당 팀의 멤버가 아닙니다.")
		}
		return nil, apperr.Store(err)
	}

	var resp model.CreateRetrospectResponse
	err = db.Transaction(func(tx *gorm.DB) error {
		room := model.RetroRoom{
			Title:         req.ProjectName,
			InvitationURL: fmt.Sprintf("%s/room/%s", s.invitationURL, uuid.NewString()),
		}
		if err := tx.Create(&room).Error; err != nil {
			return apperr.Store(err)
		}

		retro := model.Retrospect{
			Title:       req.ProjectName,
			Method:      req.Method,
			StartTime:   startTime,
			RetroRoomID: room.ID,
			TeamID:      req.TeamID,
		}
		if err := tx.Create(&retro).Error; err != nil {
			return apperr.Store(err)
		}

		for _, q := range questions {
			template := model.Answer{RetrospectID: retro.ID, Question: q}
			if err := tx.Create(&template).Error; err != nil {
				return apperr.Store(err)
			}
		}

		part := model.MemberRetro{MemberID: userID, RetrospectID: retro.ID, Status: model.StatusDraft}
		if err := tx.Create(&part).Error; err != nil {
			return apperr.Store(err)
		}

		resp = model.CreateRetrospectResponse{
			RetrospectID:  retro.ID,
			RetroRoomID:   room.ID,
			InvitationURL: room.InvitationURL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("retrospect.created", "retrospect_id", resp.RetrospectID, "team_id", req.TeamID, "uid", userID)
	return &resp, nil
}

// SubmitAnswers replaces the member's answers for the retrospective.
// With submit=true the participation flips DRAFT -> SUBMITTED; an
// already-analyzed participation is immutable.
func (s *RetrospectService) SubmitAnswers(ctx context.Context, userID, retrospectID int64, req model.SubmitAnswersRequest) error {
	for _, a := range req.Answers {
		if len([]rune(a.Content)) > maxAnswerLength {
			return apperr.InvalidInput("답변은 1,000자까지 입력할 수 있습니다.")
		}
	}

	db := s.db.WithContext(ctx)

	var retro model.Retrospect
	if err := db.First(&retro, retrospectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("존재하지 않는 회고입니다.")
		}
		return apperr.Store(err)
	}

	var membership model.MemberTeam
	err := db.Where("member_id = ? AND team_id = ?", userID, retro.TeamID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.AccessDenied("해당 팀의 멤버가 아닙니다.")
		}
		return apperr.Store(err)
	}

	var part model.MemberRetro
	err = db.Where("member_id = ? AND retrospect_id = ?", userID, retrospectID).First(&part).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		part = model.MemberRetro{MemberID: userID, RetrospectID: retrospectID, Status: model.StatusDraft}
		if err := db.Create(&part).Error; err != nil {
			return apperr.Store(err)
		}
	case err != nil:
		return apperr.Store(err)
	}

	if part.Status == model.StatusAnalyzed {
		return apperr.AlreadyAnalyzed()
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// Replace any previous answers by this member.
		var oldOwners []model.MemberAnswer
		err := tx.Select("member_responses.*").
			Joins("JOIN responses ON responses.id = member_responses.answer_id").
			Where("member_responses.member_id = ? AND responses.retrospect_id = ?", userID, retrospectID).
			Find(&oldOwners).Error
		if err != nil {
			return apperr.Store(err)
		}
		for _, o := range oldOwners {
			if err := tx.Delete(&model.Answer{}, o.AnswerID).Error; err != nil {
				return apperr.Store(err)
			}
			if err := tx.Delete(&model.MemberAnswer{}, o.ID).Error; err != nil {
				return apperr.Store(err)
			}
		}

		for _, a := range req.Answers {
			answer := model.Answer{RetrospectID: retrospectID, Question: a.Question, Content: a.Content}
			if err := tx.Create(&answer).Error; err != nil {
				return apperr.Store(err)
			}
			owner := model.MemberAnswer{MemberID: userID, AnswerID: answer.ID}
			if err := tx.Create(&owner).Error; err != nil {
				return apperr.Store(err)
			}
		}

		if req.Submit {
			now := time.Now()
			err := tx.Model(&model.MemberRetro{}).Where("id = ?", part.ID).
				Updates(map[string]interface{}{"status": model.StatusSubmitted, "submitted_at": now}).Error
			if err != nil {
				return apperr.Store(err)
			}
		}
		return nil
	})
}

// Get returns the retrospective with the caller's participation status
// and the method's question list.
func (s *RetrospectService) Get(ctx context.Context, userID, retrospectID int64) (*model.RetrospectDetail, error) {
	db := s.db.WithContext(ctx)

	var retro model.Retrospect
	if err := db.First(&retro, retrospectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("존재하지 않는 회고입니다.")
		}
		return nil, apperr.Store(err)
	}

	var membership model.MemberTeam
	err := db.Where("member_id = ? AND team_id = ?", userID, retro.TeamID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.AccessDenied("해당 팀의 멤버가 아닙니다.")
		}
		return nil, apperr.Store(err)
	}

	status := ""
	var part model.MemberRetro
	err = db.Where("member_id = ? AND retrospect_id = ?", userID, retrospectID).First(&part).Error
	switch {
	case err == nil:
		status = part.Status
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Store(err)
	}

	return &model.RetrospectDetail{
		RetrospectID: retro.ID,
		Title:        retro.Title,
		Method:       retro.Method,
		StartTime:    retro.StartTime.In(kst).Format("2006-01-02 15:04"),
		TeamInsight:  retro.TeamInsight,
		MyStatus:     status,
		Questions:    defaultQuestions[retro.Method],
	}, nil
}

func parseStartTime(date, clock string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", date, kst)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("날짜 형식이 올바르지 않습니다. (YYYY-MM-DD)")
	}
	t, err := time.ParseInLocation("15:04", clock, kst)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("시간 형식이 올바르지 않습니다. (HH:MM)")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, kst), nil
}
