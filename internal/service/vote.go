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

// RoundResults 回合的加權票數統計，PctA 與 PctB 為 0 到 1 之間的比例
type RoundResults struct {
	VotesA int     `json:"votes_a"`
	VotesB int     `json:"votes_b"`
	Total  int     `json:"total"`
	PctA   float64 `json:"pct_a"`
	PctB   float64 `json:"pct_b"`
}

func newRoundResults(t repository.VoteTotals) RoundResults {
	r := RoundResults{VotesA: t.A, VotesB: t.B, Total: t.A + t.B}
	if r.Total == 0 {
		return r
	}
	r.PctA = float64(r.VotesA) / float64(r.Total)
	r.PctB = float64(r.VotesB) / float64(r.Total)
	return r
}

// VoteService 記錄與統計回合投票
type VoteService struct {
	base
	repos   *repository.Repositories
	judges  JudgeChecker
	metrics *metrics.Metrics
}

func NewVoteService(repos *repository.Repositories, judges JudgeChecker, cfg config.DebateConfig, logger *slog.Logger, m *metrics.Metrics) *VoteService {
	return &VoteService{
		base:    base{cfg: cfg, logger: logger.With("component", "vote_service")},
		repos:   repos,
		judges:  judges,
		metrics: m,
	}
}

// SubmitVote 投票。評審的票以 judge_vote_weight 計算，其餘以 regular_vote_weight 計算。
func (s *VoteService) SubmitVote(ctx context.Context, roundID, voterID uint, side models.Side) (*models.Vote, error) {
	const op = "SubmitVote"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	vote, err := s.submitVote(ctx, roundID, voterID, side)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return vote, nil
}

func (s *VoteService) submitVote(ctx context.Context, roundID, voterID uint, side models.Side) (*models.Vote, error) {
	const op = "SubmitVote"
	if voterID == 0 {
		return nil, apperr.Validation(op, "voter id is required")
	}
	if !side.Valid() {
		return nil, apperr.Validation(op, "side must be A or B, got %q", string(side))
	}

	round, err := s.repos.Round.FindByID(ctx, roundID)
	if err != nil {
		return nil, lookupErr(op, err, "round %d not found", roundID)
	}
	if !round.CanAcceptVotes() {
		return nil, apperr.Phase(op, "round %d is in %s, votes are accepted in %s", round.ID, round.Phase, models.PhaseWaitVoting)
	}

	isJudge, err := s.judges.IsJudge(ctx, round.MatchID, voterID)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	weight := s.cfg.RegularVoteWeight
	if isJudge {
		weight = s.cfg.JudgeVoteWeight
	}

	vote := &models.Vote{
		RoundID:   round.ID,
		VoterID:   voterID,
		SideVoted: side,
		IsJudge:   isJudge,
		Weight:    weight,
	}

	// 共享鎖確保關閉投票時不會有尚未提交的投票
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		locked, err := tx.Round.FindByIDForShare(ctx, round.ID)
		if err != nil {
			return lookupErr(op, err, "round %d not found", round.ID)
		}
		if !locked.CanAcceptVotes() {
			return apperr.Phase(op, "round %d is in %s, votes are accepted in %s", locked.ID, locked.Phase, models.PhaseWaitVoting)
		}
		if err := tx.Vote.Create(ctx, vote); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.New(apperr.KindDuplicateVote, op, "voter %d already voted in round %d", voterID, round.ID)
			}
			return apperr.Storage(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.VoteCast(string(side), isJudge)
	s.logger.Debug("vote recorded", "round_id", round.ID, "voter_id", voterID, "side", side, "weight", weight)
	return vote, nil
}

// ComputeResults 統計回合目前的票數，可在投票關閉前後重複呼叫
func (s *VoteService) ComputeResults(ctx context.Context, roundID uint) (RoundResults, error) {
	const op = "ComputeResults"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.repos.Round.FindByID(ctx, roundID); err != nil {
		return RoundResults{}, s.fail(op, lookupErr(op, err, "round %d not found", roundID))
	}
	totals, err := s.repos.Vote.Totals(ctx, roundID)
	if err != nil {
		return RoundResults{}, s.fail(op, apperr.Storage(op, err))
	}
	return newRoundResults(totals), nil
}

// closeVoting 以條件式更新將回合從 WAIT_VOTING 轉為 VOTING_CLOSED，
// 成功後在同一個交易中讀取最終票數。必須在交易中呼叫。
func (s *VoteService) closeVoting(ctx context.Context, tx *repository.Repositories, round *models.Round, at time.Time) (RoundResults, error) {
	const op = "CloseVoting"
	switch {
	case round.IsClosed():
		s.metrics.CloseConflict()
		return RoundResults{}, apperr.New(apperr.KindAlreadyClosed, op, "round %d is already closed", round.ID)
	case !round.CanAcceptVotes():
		return RoundResults{}, apperr.Phase(op, "round %d is in %s, voting has not started", round.ID, round.Phase)
	}

	ok, err := tx.Round.TransitionPhase(ctx, round.ID, models.PhaseWaitVoting, models.PhaseVotingClosed, at)
	if err != nil {
		return RoundResults{}, apperr.Storage(op, err)
	}
	if !ok {
		s.metrics.CloseConflict()
		return RoundResults{}, apperr.New(apperr.KindAlreadyClosed, op, "round %d is already closed", round.ID)
	}

	totals, err := tx.Vote.Totals(ctx, round.ID)
	if err != nil {
		return RoundResults{}, apperr.Storage(op, err)
	}
	return newRoundResults(totals), nil
}
