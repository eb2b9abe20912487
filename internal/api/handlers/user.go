package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate_arena/internal/service"
)

// UserHandler 公開的用戶資料
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Profile 回傳用戶的評分與戰績
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"nickname": user.Nickname,
		"rating":   user.Rating,
		"wins":     user.Wins,
		"losses":   user.Losses,
		"draws":    user.Draws,
		"win_rate": user.WinRate(),
	})
}
