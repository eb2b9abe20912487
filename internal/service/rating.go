package service

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"debate_arena/internal/apperr"
	"debate_arena/internal/metrics"
	"debate_arena/internal/models"
	"debate_arena/internal/rating"
	"debate_arena/internal/repository"
	"debate_arena/pkg/config"
)

// RankingEntry 排行榜中的一列
type RankingEntry struct {
	Rank     int     `json:"rank"`
	UserID   uint    `json:"user_id"`
	Username string  `json:"username"`
	Nickname string  `json:"nickname"`
	Rating   int     `json:"rating"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Draws    int     `json:"draws"`
	WinRate  float64 `json:"win_rate"`
}

// RatingService 在比賽結束時更新雙方評分
type RatingService struct {
	base
	repos   *repository.Repositories
	engine  *rating.Engine
	metrics *metrics.Metrics
}

func NewRatingService(repos *repository.Repositories, engine *rating.Engine, cfg config.DebateConfig, logger *slog.Logger, m *metrics.Metrics) *RatingService {
	return &RatingService{
		base:    base{cfg: cfg, logger: logger.With("component", "rating_service")},
		repos:   repos,
		engine:  engine,
		metrics: m,
	}
}

// Apply 依勝方更新雙方評分並寫入評分紀錄，winnerID 為 nil 時以平手計算。
// 比賽結束流程只在有勝方時呼叫。
// tx 必須是結束比賽的同一個交易，同一場比賽只能套用一次。
func (s *RatingService) Apply(ctx context.Context, tx *repository.Repositories, match *models.Match, winnerID *uint) ([]models.RatingRecord, error) {
	const op = "ApplyRating"

	resultA, resultB, scoreA, scoreB, err := scoresFor(match, winnerID)
	if err != nil {
		return nil, err
	}

	exists, err := tx.Rating.ExistsForMatch(ctx, match.ID)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	if exists {
		return nil, apperr.New(apperr.KindAlreadyClosed, op, "ratings for match %d were already applied", match.ID)
	}

	// 依 ID 順序鎖定，避免兩場比賽交錯鎖定同一批用戶
	first, second := match.SideAUserID, match.SideBUserID
	if first > second {
		first, second = second, first
	}
	locked := make(map[uint]*models.User, 2)
	for _, id := range []uint{first, second} {
		user, err := tx.User.FindByIDForUpdate(ctx, id)
		if err != nil {
			return nil, lookupErr(op, err, "user %d not found", id)
		}
		locked[id] = user
	}
	userA, userB := locked[match.SideAUserID], locked[match.SideBUserID]

	newA, newB, err := s.engine.Calculate(userA.Rating, userB.Rating, scoreA, scoreB)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, op, err)
	}

	records := []models.RatingRecord{
		{MatchID: match.ID, UserID: userA.ID, OpponentID: userB.ID, Result: resultA, RatingBefore: userA.Rating, RatingAfter: newA},
		{MatchID: match.ID, UserID: userB.ID, OpponentID: userA.ID, Result: resultB, RatingBefore: userB.Rating, RatingAfter: newB},
	}
	for i := range records {
		rec := &records[i]
		if err := tx.User.ApplyResult(ctx, rec.UserID, rec.RatingAfter, rec.Result); err != nil {
			return nil, lookupErr(op, err, "user %d not found", rec.UserID)
		}
		if err := tx.Rating.Create(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, apperr.New(apperr.KindAlreadyClosed, op, "ratings for match %d were already applied", match.ID)
			}
			return nil, apperr.Storage(op, err)
		}
	}

	s.metrics.RatingApplied()
	s.logger.Info("ratings applied",
		"match_id", match.ID,
		"user_a", userA.ID, "rating_a", newA,
		"user_b", userB.ID, "rating_b", newB,
	)
	return records, nil
}

func scoresFor(match *models.Match, winnerID *uint) (models.Result, models.Result, float64, float64, error) {
	switch {
	case winnerID == nil:
		return models.ResultDraw, models.ResultDraw, rating.ScoreDraw, rating.ScoreDraw, nil
	case *winnerID == match.SideAUserID:
		return models.ResultWin, models.ResultLoss, rating.ScoreWin, rating.ScoreLoss, nil
	case *winnerID == match.SideBUserID:
		return models.ResultLoss, models.ResultWin, rating.ScoreLoss, rating.ScoreWin, nil
	default:
		return "", "", 0, 0, apperr.New(apperr.KindInvalidWinner, "ApplyRating",
			"user %d is not a participant of match %d", *winnerID, match.ID)
	}
}

// Ranking 回傳已有比賽紀錄的用戶排行，limit 小於等於 0 時不限制
func (s *RatingService) Ranking(ctx context.Context, limit int) ([]RankingEntry, error) {
	const op = "Ranking"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	users, err := s.repos.User.Ranked(ctx, limit)
	if err != nil {
		return nil, s.fail(op, apperr.Storage(op, err))
	}

	entries := make([]RankingEntry, 0, len(users))
	for i := range users {
		u := &users[i]
		entries = append(entries, RankingEntry{
			Rank:     i + 1,
			UserID:   u.ID,
			Username: u.Username,
			Nickname: u.Nickname,
			Rating:   u.Rating,
			Wins:     u.Wins,
			Losses:   u.Losses,
			Draws:    u.Draws,
			WinRate:  math.Round(u.WinRate()*100) / 100,
		})
	}
	return entries, nil
}

// History 回傳用戶的評分紀錄，新的在前
func (s *RatingService) History(ctx context.Context, userID uint) ([]models.RatingRecord, error) {
	const op = "RatingHistory"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repos.User.FindByID(ctx, userID); err != nil {
		return nil, s.fail(op, lookupErr(op, err, "user %d not found", userID))
	}
	records, err := s.repos.Rating.ListByUser(ctx, userID)
	if err != nil {
		return nil, s.fail(op, apperr.Storage(op, err))
	}
	return records, nil
}
