package model

// AnalysisResult is the validated output of one retrospective analysis.
// JSON field names follow the model-output contract fixed by the system
// prompt, so the same struct decodes the completion payload and renders
// the API response.
type AnalysisResult struct {
	Insight          string            `json:"insight"`
	EmotionRank      []EmotionRankItem `json:"emotionRank"`
	PersonalMissions []PersonalMission `json:"personalMissions"`
}

type EmotionRankItem struct {
	Rank        int    `json:"rank"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

type PersonalMission struct {
	MemberID int64     `json:"userId"`
	Name     string    `json:"userName"`
	Missions []Mission `json:"missions"`
}

type Mission struct {
	Title       string `json:"missionTitle"`
	Description string `json:"missionDesc"`
}

// MemberAnswerData is one member's normalized question/answer set, the
// aggregation output fed to the prompt builder.
type MemberAnswerData struct {
	MemberID int64
	Name     string
	Answers  []QA
}

type QA struct {
	Question string
	Answer   string
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreateRetrospectRequest struct {
	TeamID         int64  `json:"teamId" binding:"required"`
	ProjectName    string `json:"projectName" binding:"required"`
	Method         string `json:"retrospectMethod" binding:"required"`
	RetrospectDate string `json:"retrospectDate" binding:"required"`
	RetrospectTime string `json:"retrospectTime" binding:"required"`
}

type CreateRetrospectResponse struct {
	RetrospectID  int64  `json:"retrospectId"`
	RetroRoomID   int64  `json:"retroRoomId"`
	InvitationURL string `json:"invitationUrl"`
}

type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required"`
	Submit  bool          `json:"submit"`
}

type AnswerInput struct {
	Question string `json:"question" binding:"required"`
	Content  string `json:"content"`
}

type RetrospectDetail struct {
	RetrospectID int64    `json:"retrospectId"`
	Title        string   `json:"title"`
	Method       string   `json:"retrospectMethod"`
	StartTime    string   `json:"startTime"`
	TeamInsight  *string  `json:"teamInsight"`
	MyStatus     string   `json:"myStatus"`
	Questions    []string `json:"questions"`
}
