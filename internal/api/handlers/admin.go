package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"debate_arena/internal/service"
)

// AdminHandler 管理員專用的操作，每個方法開頭都會檢查管理員身分
type AdminHandler struct {
	users   *service.UserService
	matches *service.MatchService
}

func NewAdminHandler(users *service.UserService, matches *service.MatchService) *AdminHandler {
	return &AdminHandler{users: users, matches: matches}
}

// requireAdmin 檢查失敗時已寫入回應
func (h *AdminHandler) requireAdmin(c *gin.Context) bool {
	userID, ok := currentUser(c)
	if !ok {
		return false
	}
	if err := h.users.RequireAdmin(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// StartMatch 建立新的比賽
func (h *AdminHandler) StartMatch(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var input struct {
		TopicID   uint `json:"topic_id" binding:"required"`
		SideAUser uint `json:"side_a_user_id" binding:"required"`
		SideBUser uint `json:"side_b_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	match, err := h.matches.StartMatch(c.Request.Context(), input.TopicID, input.SideAUser, input.SideBUser)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, match)
}

// ForceFinish 強制結束比賽，winner_id 省略或為 null 時比賽無勝方且不更新評分
func (h *AdminHandler) ForceFinish(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input struct {
		WinnerID *uint `json:"winner_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	match, err := h.matches.ForceFinish(c.Request.Context(), matchID, input.WinnerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

// CloseVoting 手動關閉回合投票
func (h *AdminHandler) CloseVoting(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	roundID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.matches.CloseVoting(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) AssignJudge(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	matchID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	assignment, err := h.matches.AssignJudge(c.Request.Context(), matchID, input.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) SetAdmin(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Admin *bool `json:"admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.SetAdmin(c.Request.Context(), userID, *input.Admin); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
