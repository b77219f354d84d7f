package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"retro-assist/internal/apperr"
	"retro-assist/internal/logger"
	"retro-assist/internal/service"
)

type AnalysisHandler struct {
	analysis *service.AnalysisService
}

func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// POST /api/retrospectives/:id/analysis
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperr.InvalidInput("잘못된 회고 ID입니다."))
		return
	}

	uid := c.GetInt64("user_id")
	logger.Info("analysis.start", "retrospect_id", id, "uid", uid)

	result, err := h.analysis.Analyze(c.Request.Context(), uid, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
