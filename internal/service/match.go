package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"debate_arena/internal/apperr"
	"debate_arena/internal/metrics"
	"debate_arena/internal/models"
	"debate_arena/internal/repository"
	"debate_arena/pkg/config"
)

// CloseResult 關閉投票後的回合結果與比賽去向
type CloseResult struct {
	Round       *models.Round         `json:"round"`
	Results     RoundResults          `json:"results"`
	Decision    RoundDecision         `json:"decision"`
	Termination Termination           `json:"termination"`
	Match       *models.Match         `json:"match"`
	NextRound   *models.Round         `json:"next_round,omitempty"`
	Ratings     []models.RatingRecord `json:"ratings,omitempty"`
}

// MatchService 負責比賽的開始、回合結算與結束
type MatchService struct {
	base
	repos   *repository.Repositories
	votes   *VoteService
	ratings *RatingService
	clock   Clock
	metrics *metrics.Metrics
}

func NewMatchService(
	repos *repository.Repositories,
	votes *VoteService,
	ratings *RatingService,
	cfg config.DebateConfig,
	clock Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
) *MatchService {
	return &MatchService{
		base:    base{cfg: cfg, logger: logger.With("component", "match_service")},
		repos:   repos,
		votes:   votes,
		ratings: ratings,
		clock:   clock,
		metrics: m,
	}
}

// StartMatch 建立比賽與第一回合
func (s *MatchService) StartMatch(ctx context.Context, topicID, userA, userB uint) (*models.Match, error) {
	const op = "StartMatch"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	switch {
	case topicID == 0:
		return nil, s.fail(op, apperr.Validation(op, "topic id is required"))
	case userA == 0 || userB == 0:
		return nil, s.fail(op, apperr.Validation(op, "both participants are required"))
	case userA == userB:
		return nil, s.fail(op, apperr.Validation(op, "a user cannot debate against themselves"))
	}
	for _, id := range []uint{userA, userB} {
		if _, err := s.repos.User.FindByID(ctx, id); err != nil {
			return nil, s.fail(op, lookupErr(op, err, "user %d not found", id))
		}
	}

	match := &models.Match{
		TopicID:     topicID,
		SideAUserID: userA,
		SideBUserID: userB,
		Status:      models.MatchStatusOngoing,
		RoundCount:  1,
	}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Match.Create(ctx, match); err != nil {
			return apperr.Storage(op, err)
		}
		first := models.Round{MatchID: match.ID, RoundNumber: 1, Phase: models.PhaseWaitAStatement}
		if err := tx.Round.Create(ctx, &first); err != nil {
			return apperr.Storage(op, err)
		}
		match.Rounds = []models.Round{first}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.logger.Info("match started", "match_id", match.ID, "topic_id", topicID, "side_a", userA, "side_b", userB)
	return match, nil
}

// CloseVoting 關閉回合投票、決定勝負並推進比賽。
// 同一回合同時關閉時只有一個呼叫成功，其餘回傳 already_closed。
func (s *MatchService) CloseVoting(ctx context.Context, roundID uint) (*CloseResult, error) {
	const op = "CloseVoting"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *CloseResult
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		result, err = s.closeVoting(ctx, tx, roundID)
		return err
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.RoundClosed(string(result.Decision.Outcome))
	s.logger.Info("round closed",
		"round_id", result.Round.ID,
		"match_id", result.Match.ID,
		"votes_a", result.Results.VotesA,
		"votes_b", result.Results.VotesB,
		"outcome", result.Decision.Outcome,
		"instant_win", result.Decision.InstantWin,
	)
	if result.Termination.Finished {
		s.metrics.MatchFinished(string(result.Termination.Reason))
		s.logger.Info("match finished",
			"match_id", result.Match.ID,
			"reason", result.Termination.Reason,
			"winner_id", result.Match.WinnerID,
			"awaiting_adjudication", result.Match.AwaitingAdjudication,
		)
	}
	return result, nil
}

func (s *MatchService) closeVoting(ctx context.Context, tx *repository.Repositories, roundID uint) (*CloseResult, error) {
	const op = "CloseVoting"
	now := s.clock.Now()

	round, err := tx.Round.FindByID(ctx, roundID)
	if err != nil {
		return nil, lookupErr(op, err, "round %d not found", roundID)
	}
	match, err := tx.Match.FindByIDForUpdate(ctx, round.MatchID)
	if err != nil {
		return nil, lookupErr(op, err, "match %d not found", round.MatchID)
	}

	results, err := s.votes.closeVoting(ctx, tx, round, now)
	if err != nil {
		return nil, err
	}
	if !match.IsOngoing() {
		return nil, apperr.New(apperr.KindAlreadyClosed, op, "match %d is already finished", match.ID)
	}

	decision := DecideRound(results, s.cfg.InstantWinThreshold)
	ok, err := tx.Round.RecordOutcome(ctx, round.ID, models.PhaseVotingClosed, decision.Outcome)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindAlreadyClosed, op, "round %d is already closed", round.ID)
	}

	streakA, streakB := UpdateStreaks(match.ConsecutiveA, match.ConsecutiveB, decision.Outcome)
	termination := EvaluateTermination(s.cfg, decision, streakA, streakB, round.RoundNumber)

	roundCount := match.RoundCount
	if !termination.Finished {
		roundCount++
	}
	ok, err = tx.Match.UpdateProgress(ctx, match.ID, repository.MatchProgress{
		ConsecutiveA: streakA,
		ConsecutiveB: streakB,
		RoundCount:   roundCount,
	})
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindAlreadyClosed, op, "match %d is already finished", match.ID)
	}
	match.ConsecutiveA, match.ConsecutiveB, match.RoundCount = streakA, streakB, roundCount

	result := &CloseResult{
		Results:     results,
		Decision:    decision,
		Termination: termination,
	}

	if termination.Finished {
		var winnerID *uint
		if termination.Winner != "" {
			id := match.ParticipantFor(termination.Winner)
			winnerID = &id
		}
		records, err := s.finish(ctx, tx, match, winnerID, termination.Reason == FinishRoundCap, now)
		if err != nil {
			return nil, err
		}
		result.Ratings = records
	} else {
		next := &models.Round{
			MatchID:     match.ID,
			RoundNumber: round.RoundNumber + 1,
			Phase:       models.PhaseWaitAStatement,
		}
		if err := tx.Round.Create(ctx, next); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, apperr.New(apperr.KindAlreadyClosed, op, "round %d of match %d already exists", next.RoundNumber, match.ID)
			}
			return nil, apperr.Storage(op, err)
		}
		result.NextRound = next
	}

	if result.Round, err = tx.Round.FindByID(ctx, round.ID); err != nil {
		return nil, apperr.Storage(op, err)
	}
	if result.Match, err = tx.Match.FindByID(ctx, match.ID); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return result, nil
}

// finish 結束比賽並於同一交易套用評分。
// 等待判定或沒有勝方（管理員判定無勝負）時不更新評分。
func (s *MatchService) finish(ctx context.Context, tx *repository.Repositories, match *models.Match, winnerID *uint, awaiting bool, now time.Time) ([]models.RatingRecord, error) {
	const op = "FinishMatch"
	ok, err := tx.Match.Finish(ctx, match.ID, repository.MatchFinish{
		WinnerID:             winnerID,
		AwaitingAdjudication: awaiting,
		FinishedAt:           now,
	})
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindAlreadyClosed, op, "match %d is already finished", match.ID)
	}
	if awaiting || winnerID == nil {
		return nil, nil
	}
	return s.ratings.Apply(ctx, tx, match, winnerID)
}

// ForceFinish 由管理員結束比賽。winnerID 為 nil 時比賽結束但沒有勝方，雙方評分不變。
// 可用於進行中的比賽或達到回合上限等待判定的比賽。
func (s *MatchService) ForceFinish(ctx context.Context, matchID uint, winnerID *uint) (*models.Match, error) {
	const op = "ForceFinish"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		finished *models.Match
		closed   int64
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		match, err := tx.Match.FindByIDForUpdate(ctx, matchID)
		if err != nil {
			return lookupErr(op, err, "match %d not found", matchID)
		}
		if winnerID != nil && !match.IsParticipant(*winnerID) {
			return apperr.New(apperr.KindInvalidWinner, op, "user %d is not a participant of match %d", *winnerID, matchID)
		}
		if !match.CanForceFinish() {
			return apperr.New(apperr.KindAlreadyClosed, op, "match %d is already finished", matchID)
		}

		now := s.clock.Now()
		if closed, err = tx.Round.CloseOpen(ctx, match.ID, now); err != nil {
			return apperr.Storage(op, err)
		}
		if _, err := s.finish(ctx, tx, match, winnerID, false, now); err != nil {
			return err
		}
		if finished, err = tx.Match.FindWithRounds(ctx, match.ID); err != nil {
			return apperr.Storage(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.MatchFinished(string(FinishForced))
	s.logger.Info("match finished",
		"match_id", finished.ID,
		"reason", FinishForced,
		"winner_id", finished.WinnerID,
		"rounds_closed", closed,
	)
	return finished, nil
}

// AssignJudge 指派評審，辯手不能擔任自己比賽的評審
func (s *MatchService) AssignJudge(ctx context.Context, matchID, userID uint) (*models.JudgeAssignment, error) {
	const op = "AssignJudge"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	match, err := s.repos.Match.FindByID(ctx, matchID)
	if err != nil {
		return nil, s.fail(op, lookupErr(op, err, "match %d not found", matchID))
	}
	if _, err := s.repos.User.FindByID(ctx, userID); err != nil {
		return nil, s.fail(op, lookupErr(op, err, "user %d not found", userID))
	}
	if match.IsParticipant(userID) {
		return nil, s.fail(op, apperr.Validation(op, "user %d debates in match %d and cannot judge it", userID, matchID))
	}
	if !match.IsOngoing() {
		return nil, s.fail(op, apperr.New(apperr.KindAlreadyClosed, op, "match %d is already finished", matchID))
	}

	assignment := &models.JudgeAssignment{MatchID: matchID, UserID: userID}
	if err := s.repos.Judge.Assign(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.fail(op, apperr.New(apperr.KindConflict, op, "user %d already judges match %d", userID, matchID))
		}
		return nil, s.fail(op, apperr.Storage(op, err))
	}

	s.logger.Info("judge assigned", "match_id", matchID, "user_id", userID)
	return assignment, nil
}

// GetMatch 回傳比賽與依編號排序的回合
func (s *MatchService) GetMatch(ctx context.Context, matchID uint) (*models.Match, error) {
	const op = "GetMatch"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	match, err := s.repos.Match.FindWithRounds(ctx, matchID)
	if err != nil {
		return nil, s.fail(op, lookupErr(op, err, "match %d not found", matchID))
	}
	return match, nil
}

// ListMatches status 為空時列出全部比賽
func (s *MatchService) ListMatches(ctx context.Context, status models.MatchStatus) ([]models.Match, error) {
	const op = "ListMatches"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if status != "" && status != models.MatchStatusOngoing && status != models.MatchStatusFinished {
		return nil, s.fail(op, apperr.Validation(op, "unknown match status %q", string(status)))
	}
	matches, err := s.repos.Match.List(ctx, status)
	if err != nil {
		return nil, s.fail(op, apperr.Storage(op, err))
	}
	return matches, nil
}

func (s *MatchService) ListJudges(ctx context.Context, matchID uint) ([]models.JudgeAssignment, error) {
	const op = "ListJudges"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repos.Match.FindByID(ctx, matchID); err != nil {
		return nil, s.fail(op, lookupErr(op, err, "match %d not found", matchID))
	}
	judges, err := s.repos.Judge.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, s.fail(op, apperr.Storage(op, err))
	}
	return judges, nil
}
