package model

import "time"

type Member struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:64" json:"username"`
	Password string `json:"-"`
	Name     string `gorm:"size:64" json:"name"`
}

type Team struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberTeam is the authorization relation: membership is required for
// every retrospective operation on the team.
type MemberTeam struct {
	ID       int64 `gorm:"primaryKey" json:"id"`
	MemberID int64 `gorm:"uniqueIndex:uk_member_team" json:"member_id"`
	TeamID   int64 `gorm:"uniqueIndex:uk_member_team" json:"team_id"`
}

type RetroRoom struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:128" json:"title"`
	InvitationURL string    `gorm:"size:255" json:"invitation_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Retrospect is one team review session. TeamInsight doubles as the
// analysis-completion marker: non-nil means analysis already ran.
type Retrospect struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:128" json:"title"`
	Method      string    `gorm:"size:16" json:"method"`
	TeamInsight *string   `gorm:"type:text" json:"team_insight"`
	StartTime   time.Time `json:"start_time"`
	RetroRoomID int64     `json:"retro_room_id"`
	TeamID      int64     `gorm:"index" json:"team_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Participation status values. A record only ever moves forward:
// DRAFT -> SUBMITTED -> ANALYZED.
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusAnalyzed  = "ANALYZED"
)

// MemberRetro is one member's participation in one retrospective.
type MemberRetro struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	MemberID        int64      `gorm:"uniqueIndex:uk_member_retro" json:"member_id"`
	RetrospectID    int64      `gorm:"uniqueIndex:uk_member_retro" json:"retrospect_id"`
	Status          string     `gorm:"size:16;default:DRAFT" json:"status"`
	PersonalInsight *string    `gorm:"type:text" json:"personal_insight"`
	SubmittedAt     *time.Time `json:"submitted_at"`
}

// Answer is one question/answer pair in a retrospective. Rows created at
// retrospective creation hold the question templates (blank content, no
// owner); rows created at submission are joined to their author through
// MemberAnswer.
type Answer struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	RetrospectID int64     `gorm:"index" json:"retrospect_id"`
	Question     string    `gorm:"size:255" json:"question"`
	Content      string    `gorm:"type:text" json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MemberAnswer struct {
	ID       int64 `gorm:"primaryKey" json:"id"`
	MemberID int64 `gorm:"index" json:"member_id"`
	AnswerID int64 `gorm:"index" json:"answer_id"`
}

func (Member) TableName() string       { return "members" }
func (Team) TableName() string         { return "teams" }
func (MemberTeam) TableName() string   { return "member_teams" }
func (RetroRoom) TableName() string    { return "retro_rooms" }
func (Retrospect) TableName() string   { return "retrospects" }
func (MemberRetro) TableName() string  { return "member_retros" }
func (Answer) TableName() string       { return "responses" }
func (MemberAnswer) TableName() string { return "member_responses" }
