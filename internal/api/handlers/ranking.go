package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"debate_arena/internal/apperr"
	"debate_arena/internal/service"
)

const defaultRankingLimit = 50

type RankingHandler struct {
	ratings *service.RatingService
}

func NewRankingHandler(ratings *service.RatingService) *RankingHandler {
	return &RankingHandler{ratings: ratings}
}

// Ranking 排行榜，?limit= 預設 50
func (h *RankingHandler) Ranking(c *gin.Context) {
	limit := defaultRankingLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer", "kind": apperr.KindValidation})
			return
		}
		limit = n
	}

	entries, err := h.ratings.Ranking(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// History 用戶的評分紀錄
func (h *RankingHandler) History(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	records, err := h.ratings.History(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
