package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"retro-assist/internal/apperr"
	"retro-assist/internal/logger"
)

// httpStatus maps each error kind to its HTTP status. The stable machine
// code comes from the error itself.
func httpStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadyAnalyzed:
		return http.StatusConflict
	case apperr.KindAccessDenied:
		return http.StatusForbidden
	case apperr.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case apperr.KindInsufficientData:
		return http.StatusUnprocessableEntity
	case apperr.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindConnectionFailed, apperr.KindAnalysisFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.General(err)
	}

	status := httpStatus(ae.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "code", ae.Code(), "err", err)
	} else {
		logger.Warn("request rejected", "path", c.FullPath(), "code", ae.Code(), "err", err)
	}

	c.JSON(status, gin.H{"code": ae.Code(), "message": ae.Message})
}
