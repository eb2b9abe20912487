package handlers

import (
	"net/http"
	"strconv"

	"debate_arena/internal/apperr"
	"debate_arena/internal/middleware"

	"github.com/gin-gonic/gin"
)

// StatusFor 將錯誤類別對應成 HTTP 狀態碼
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidWinner:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindPermission:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPhase, apperr.KindDuplicateVote, apperr.KindAlreadyClosed, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError 回應 {"error", "kind"}，儲存錯誤不回傳內部細節
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	message := err.Error()
	switch kind {
	case apperr.KindStorage:
		message = "storage unavailable"
	case "":
		kind = "internal"
		message = "internal error"
	}
	c.JSON(StatusFor(kind), gin.H{"error": message, "kind": kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperr.KindValidation})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "kind": apperr.KindValidation})
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "kind": apperr.KindUnauthorized})
	}
	return id, ok
}
