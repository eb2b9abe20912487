package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate_arena/internal/service"
)

// AuthHandler 處理與認證相關的請求
type AuthHandler struct {
	userService *service.UserService
}

// NewAuthHandler 創建一個新的 AuthHandler 實例
func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// LoginInput 定義登入請求的結構
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterInput 定義註冊請求的結構
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
}

// Register 處理用戶註冊
func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), input.Username, input.Password, input.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login 處理用戶登入
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	token, user, err := h.userService.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me 回傳目前登入的用戶
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
