package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"debate_arena/internal/apperr"
	"debate_arena/internal/models"
	"debate_arena/internal/repository"
	"debate_arena/internal/utils"
	"debate_arena/pkg/config"

	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
)

type UserService struct {
	base
	repos  *repository.Repositories
	tokens *utils.TokenManager
}

func NewUserService(repos *repository.Repositories, tokens *utils.TokenManager, cfg config.DebateConfig, logger *slog.Logger) *UserService {
	return &UserService{
		base:   base{cfg: cfg, logger: logger.With("component", "user_service")},
		repos:  repos,
		tokens: tokens,
	}
}

// Register 建立新用戶，密碼以 bcrypt 雜湊後儲存，初始評分取自設定
func (s *UserService) Register(ctx context.Context, username, password, nickname string) (*models.User, error) {
	const op = "Register"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	username = strings.TrimSpace(username)
	if n := len(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, s.fail(op, apperr.Validation(op, "username must be %d to %d characters", minUsernameLen, maxUsernameLen))
	}
	if len(password) < minPasswordLen {
		return nil, s.fail(op, apperr.Validation(op, "password must be at least %d characters", minPasswordLen))
	}

	// 對密碼進行加密
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.fail(op, apperr.Wrap(apperr.KindValidation, op, err))
	}

	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = username
	}
	user := &models.User{
		Username: username,
		Password: string(hashedPassword),
		Nickname: nickname,
		Rating:   s.cfg.InitialRating,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.fail(op, apperr.New(apperr.KindConflict, op, "username %q is taken", username))
		}
		return nil, s.fail(op, apperr.Storage(op, err))
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login 驗證帳號密碼並簽發 token
func (s *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	const op = "Login"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	invalid := apperr.New(apperr.KindUnauthorized, op, "invalid username or password")

	// 檢查用戶是否存在
	user, err := s.repos.User.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, s.fail(op, invalid)
		}
		return "", nil, s.fail(op, apperr.Storage(op, err))
	}

	// 驗證密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, s.fail(op, invalid)
	}

	role := utils.RoleUser
	if user.IsAdmin {
		role = utils.RoleAdmin
	}
	token, err := s.tokens.GenerateToken(user.ID, role)
	if err != nil {
		return "", nil, s.fail(op, apperr.Wrap(apperr.KindUnauthorized, op, err))
	}
	return token, user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	const op = "GetUser"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, s.fail(op, lookupErr(op, err, "user %d not found", userID))
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "ListUsers"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	users, err := s.repos.User.List(ctx)
	if err != nil {
		return nil, s.fail(op, apperr.Storage(op, err))
	}
	return users, nil
}

func (s *UserService) SetAdmin(ctx context.Context, userID uint, admin bool) error {
	const op = "SetAdmin"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repos.User.SetAdmin(ctx, userID, admin); err != nil {
		return s.fail(op, lookupErr(op, err, "user %d not found", userID))
	}
	s.logger.Info("admin flag changed", "user_id", userID, "admin", admin)
	return nil
}

// RequireAdmin 檢查用戶是否為管理員，以資料庫中的狀態為準
func (s *UserService) RequireAdmin(ctx context.Context, userID uint) error {
	const op = "RequireAdmin"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.fail(op, apperr.New(apperr.KindUnauthorized, op, "user %d does not exist", userID))
		}
		return s.fail(op, apperr.Storage(op, err))
	}
	if !user.IsAdmin {
		return s.fail(op, apperr.Permission(op, "user %d is not an administrator", userID))
	}
	return nil
}
