package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retro-assist/internal/model"
)

func sampleMembers() []model.MemberAnswerData {
	return []model.MemberAnswerData{
		{MemberID: 1, Name: "소은", Answers: []model.QA{
			{Question: "좋았던 점은?", Answer: "협업이 좋았어요"},
			{Question: "문제점은?", Answer: answerPlaceholder},
		}},
		{MemberID: 2, Name: "민수", Answers: []model.QA{
			{Question: "좋았던 점은?", Answer: "리뷰가 도움이 됐어요"},
		}},
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	system, user := buildAnalysisPrompt(sampleMembers())

	assert.Contains(t, system, "emotionRank")
	assert.Contains(t, system, "personalMissions")

	assert.Contains(t, user, "## 참여자 (userId: 1, 이름: 소은)")
	assert.Contains(t, user, "## 참여자 (userId: 2, 이름: 민수)")
	assert.Contains(t, user, "- Q1: 좋았던 점은?\n  A: 협업이 좋았어요")
	assert.Contains(t, user, "- Q2: 문제점은?\n  A: "+answerPlaceholder)
}

func TestBuildAnalysisPromptDeterministic(t *testing.T) {
	s1, u1 := buildAnalysisPrompt(sampleMembers())
	s2, u2 := buildAnalysisPrompt(sampleMembers())
	assert.Equal(t, s1, s2)
	assert.Equal(t, u1, u2)
}

func TestBuildAnalysisPromptEmpty(t *testing.T) {
	_, user := buildAnalysisPrompt(nil)
	assert.Equal(t, "다음 팀원들의 회고 답변을 종합 분석해주세요.\n\n", user)
}
