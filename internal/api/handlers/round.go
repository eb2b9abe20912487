package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate_arena/internal/models"
	"debate_arena/internal/service"
)

// RoundHandler 回合內容提交與投票
type RoundHandler struct {
	rounds *service.RoundService
	votes  *service.VoteService
}

func NewRoundHandler(rounds *service.RoundService, votes *service.VoteService) *RoundHandler {
	return &RoundHandler{rounds: rounds, votes: votes}
}

// SubmitContentInput 內容提交請求。陳述與答覆填 text，質詢填 questions。
type SubmitContentInput struct {
	Side          models.Side  `json:"side" binding:"required"`
	ExpectedPhase models.Phase `json:"expected_phase" binding:"required"`
	Text          string       `json:"text"`
	Questions     []string     `json:"questions"`
}

type SubmitVoteInput struct {
	Side models.Side `json:"side" binding:"required"`
}

func (h *RoundHandler) GetRound(c *gin.Context) {
	roundID, ok := parseID(c, "id")
	if !ok {
		return
	}
	round, err := h.rounds.GetRound(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func (h *RoundHandler) SubmitContent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roundID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input SubmitContentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	round, err := h.rounds.SubmitContent(c.Request.Context(), service.ContentSubmission{
		RoundID:       roundID,
		UserID:        userID,
		Side:          input.Side,
		ExpectedPhase: input.ExpectedPhase,
		Text:          input.Text,
		Questions:     input.Questions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func (h *RoundHandler) SubmitVote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roundID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input SubmitVoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	vote, err := h.votes.SubmitVote(c.Request.Context(), roundID, userID, input.Side)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vote)
}

// Results 回合目前的得票統計
func (h *RoundHandler) Results(c *gin.Context) {
	roundID, ok := parseID(c, "id")
	if !ok {
		return
	}
	results, err := h.votes.ComputeResults(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}
