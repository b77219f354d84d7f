package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"retro-assist/internal/apperr"
	"retro-assist/internal/model"
	"retro-assist/internal/service"
)

type RetrospectHandler struct {
	retro *service.RetrospectService
}

func NewRetrospectHandler(retro *service.RetrospectService) *RetrospectHandler {
	return &RetrospectHandler{retro: retro}
}

// POST /api/retrospectives
func (h *RetrospectHandler) Create(c *gin.Context) {
	var req model.CreateRetrospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidInput("잘못된 요청입니다."))
		return
	}

	resp, err := h.retro.Create(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/retrospectives/:id/answers
func (h *RetrospectHandler) SubmitAnswers(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.InvalidInput("잘못된 회고 ID입니다."))
		return
	}
	var req model.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.InvalidInput("잘못된 요청입니다."))
		return
	}

	if err := h.retro.SubmitAnswers(c.Request.Context(), c.GetInt64("user_id"), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/retrospectives/:id
func (h *RetrospectHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.InvalidInput("잘못된 회고 ID입니다."))
		return
	}

	detail, err := h.retro.Get(c.Request.Context(), c.GetInt64("user_id"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
