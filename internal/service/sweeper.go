package service

import (
	"context"
	"log/slog"
	"time"

	"debate_arena/internal/apperr"
	"debate_arena/internal/repository"
)

const sweepBatchSize = 100

// DeadlineSweeper 定期關閉投票期限已過的回合。
// 與手動關閉走同一個 CloseVoting，已被關閉的回合直接略過。
type DeadlineSweeper struct {
	rounds   repository.RoundRepository
	matches  *MatchService
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
}

func NewDeadlineSweeper(rounds repository.RoundRepository, matches *MatchService, interval time.Duration, clock Clock, logger *slog.Logger) *DeadlineSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DeadlineSweeper{
		rounds:   rounds,
		matches:  matches,
		interval: interval,
		clock:    clock,
		logger:   logger.With("component", "deadline_sweeper"),
	}
}

// Run 每個間隔執行一次掃描，直到 ctx 結束
func (s *DeadlineSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("deadline sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("deadline sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("deadline sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce 關閉所有已過期的回合，回傳成功關閉的數量
func (s *DeadlineSweeper) SweepOnce(ctx context.Context) (int, error) {
	listCtx, cancel := context.WithTimeout(ctx, s.matches.cfg.StoreTimeout)
	expired, err := s.rounds.ListExpiredVoting(listCtx, s.clock.Now(), sweepBatchSize)
	cancel()
	if err != nil {
		return 0, apperr.Storage("SweepDeadlines", err)
	}

	closed := 0
	for _, round := range expired {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		if _, err := s.matches.CloseVoting(ctx, round.ID); err != nil {
			if apperr.Is(err, apperr.KindAlreadyClosed) {
				continue
			}
			s.logger.Error("failed to close expired round", "round_id", round.ID, "error", err)
			continue
		}
		closed++
	}
	if closed > 0 {
		s.logger.Info("expired rounds closed", "count", closed)
	}
	return closed, nil
}
