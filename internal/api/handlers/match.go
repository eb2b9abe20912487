package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"debate_arena/internal/models"
	"debate_arena/internal/service"
)

// MatchHandler 比賽查詢
type MatchHandler struct {
	matches *service.MatchService
	rounds  *service.RoundService
}

func NewMatchHandler(matches *service.MatchService, rounds *service.RoundService) *MatchHandler {
	return &MatchHandler{matches: matches, rounds: rounds}
}

// ListMatches 可用 ?status=ONGOING|FINISHED 過濾
func (h *MatchHandler) ListMatches(c *gin.Context) {
	status := models.MatchStatus(strings.ToUpper(c.Query("status")))
	matches, err := h.matches.ListMatches(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}
	match, err := h.matches.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

// CurrentRound 取得比賽目前的回合
func (h *MatchHandler) CurrentRound(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}
	round, err := h.rounds.CurrentRound(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func (h *MatchHandler) ListJudges(c *gin.Context) {
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}
	judges, err := h.matches.ListJudges(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, judges)
}
