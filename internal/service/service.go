package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"debate_arena/internal/apperr"
	"debate_arena/internal/metrics"
	"debate_arena/internal/rating"
	"debate_arena/internal/repository"
	"debate_arena/internal/utils"
	"debate_arena/pkg/config"
)

// Clock 提供目前時間
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock 回傳使用系統時間（UTC）的 Clock
func SystemClock() Clock { return systemClock{} }

// JudgeChecker 查詢投票者是否為該場比賽的評審
type JudgeChecker interface {
	IsJudge(ctx context.Context, matchID, userID uint) (bool, error)
}

// Deps 建立服務所需的依賴
type Deps struct {
	Repos   *repository.Repositories
	Config  config.DebateConfig
	Tokens  *utils.TokenManager
	Clock   Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Judges 為空時使用 Repos.Judge
	Judges JudgeChecker
}

type Services struct {
	User    *UserService
	Round   *RoundService
	Vote    *VoteService
	Match   *MatchService
	Rating  *RatingService
	Sweeper *DeadlineSweeper
}

func NewServices(deps Deps) (*Services, error) {
	if deps.Repos == nil {
		return nil, errors.New("repositories are required")
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid debate config: %w", err)
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Judges == nil {
		deps.Judges = deps.Repos.Judge
	}

	engine, err := rating.NewEngine(deps.Config.KFactor)
	if err != nil {
		return nil, err
	}

	userService := NewUserService(deps.Repos, deps.Tokens, deps.Config, deps.Logger)
	ratingService := NewRatingService(deps.Repos, engine, deps.Config, deps.Logger, deps.Metrics)
	roundService := NewRoundService(deps.Repos, deps.Config, deps.Clock, deps.Logger, deps.Metrics)
	voteService := NewVoteService(deps.Repos, deps.Judges, deps.Config, deps.Logger, deps.Metrics)
	matchService := NewMatchService(deps.Repos, voteService, ratingService, deps.Config, deps.Clock, deps.Logger, deps.Metrics)

	return &Services{
		User:    userService,
		Round:   roundService,
		Vote:    voteService,
		Match:   matchService,
		Rating:  ratingService,
		Sweeper: NewDeadlineSweeper(deps.Repos.Round, matchService, deps.Config.SweepInterval, deps.Clock, deps.Logger),
	}, nil
}

// base 服務共用的設定與錯誤處理
type base struct {
	cfg    config.DebateConfig
	logger *slog.Logger
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.cfg.StoreTimeout)
}

// fail 將未分類的錯誤視為儲存錯誤並記錄日誌
func (b base) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) == "" {
		err = apperr.Storage(op, err)
	}
	if apperr.Is(err, apperr.KindStorage) {
		b.logger.Error("operation failed", "op", op, "error", err)
	} else {
		b.logger.Warn("operation rejected", "op", op, "kind", apperr.KindOf(err), "error", err)
	}
	return err
}

// lookupErr 將 repository.ErrNotFound 轉成 not_found，其餘視為儲存錯誤
func lookupErr(op string, err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(op, format, args...)
	}
	return apperr.Storage(op, err)
}
