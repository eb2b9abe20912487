package service

import (
	"context"
	"log/slog"
	"strings"

	"debate_arena/internal/apperr"
	"debate_arena/internal/metrics"
	"debate_arena/internal/models"
	"debate_arena/internal/repository"
	"debate_arena/pkg/config"
)

// ContentSubmission 辯手在內容階段提交的資料。
// 陳述與答覆使用 Text，質詢使用 Questions。
type ContentSubmission struct {
	RoundID       uint
	UserID        uint
	Side          models.Side
	ExpectedPhase models.Phase
	Text          string
	Questions     []string
}

// RoundService 管理回合內容階段的推進
type RoundService struct {
	base
	repos   *repository.Repositories
	clock   Clock
	metrics *metrics.Metrics
}

func NewRoundService(repos *repository.Repositories, cfg config.DebateConfig, clock Clock, logger *slog.Logger, m *metrics.Metrics) *RoundService {
	return &RoundService{
		base:    base{cfg: cfg, logger: logger.With("component", "round_service")},
		repos:   repos,
		clock:   clock,
		metrics: m,
	}
}

// SubmitContent 寫入目前階段的內容並前進到下一個階段。
// 寫入與階段轉換是同一個條件式更新，同時提交時只有一個會成功。
func (s *RoundService) SubmitContent(ctx context.Context, in ContentSubmission) (*models.Round, error) {
	const op = "SubmitContent"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	round, err := s.submitContent(ctx, in)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return round, nil
}

func (s *RoundService) submitContent(ctx context.Context, in ContentSubmission) (*models.Round, error) {
	const op = "SubmitContent"
	if !in.Side.Valid() {
		return nil, apperr.Validation(op, "side must be A or B, got %q", string(in.Side))
	}

	round, err := s.repos.Round.FindByID(ctx, in.RoundID)
	if err != nil {
		return nil, lookupErr(op, err, "round %d not found", in.RoundID)
	}
	match, err := s.repos.Match.FindByID(ctx, round.MatchID)
	if err != nil {
		return nil, lookupErr(op, err, "match %d not found", round.MatchID)
	}

	if match.ParticipantFor(in.Side) != in.UserID {
		return nil, apperr.Permission(op, "user %d is not side %s of match %d", in.UserID, in.Side, match.ID)
	}
	if actor, ok := in.ExpectedPhase.Actor(); ok && actor != in.Side {
		return nil, apperr.Permission(op, "phase %s belongs to side %s", in.ExpectedPhase, actor)
	}
	if round.Phase != in.ExpectedPhase {
		return nil, apperr.Phase(op, "round %d is in %s, not %s", round.ID, round.Phase, in.ExpectedPhase)
	}
	next, err := in.ExpectedPhase.Next()
	if err != nil {
		return nil, apperr.Phase(op, "round %d does not accept content in %s", round.ID, round.Phase)
	}

	update := &models.Round{Phase: next}
	if err := fillContent(op, update, in); err != nil {
		return nil, err
	}
	if next == models.PhaseWaitVoting {
		deadline := s.clock.Now().Add(s.cfg.VotingWindow)
		update.VotingDeadline = &deadline
	}

	ok, err := s.repos.Round.AdvancePhase(ctx, round.ID, in.ExpectedPhase, update)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	if !ok {
		return nil, apperr.Phase(op, "round %d left %s before the submission was stored", round.ID, in.ExpectedPhase)
	}

	s.metrics.PhaseAdvanced(string(next))
	s.logger.Info("round phase advanced",
		"round_id", round.ID,
		"match_id", round.MatchID,
		"from", in.ExpectedPhase,
		"to", next,
	)

	updated, err := s.repos.Round.FindByID(ctx, round.ID)
	if err != nil {
		return nil, lookupErr(op, err, "round %d not found", round.ID)
	}
	return updated, nil
}

// fillContent 檢查內容並寫入對應欄位
func fillContent(op string, update *models.Round, in ContentSubmission) error {
	kind, _ := in.ExpectedPhase.Content()
	if kind == models.ContentQuestions {
		if len(in.Questions) == 0 {
			return apperr.Validation(op, "questions must be a non-empty list")
		}
		questions := make([]string, 0, len(in.Questions))
		for i, q := range in.Questions {
			q = strings.TrimSpace(q)
			if q == "" {
				return apperr.Validation(op, "question %d is empty", i+1)
			}
			questions = append(questions, q)
		}
		update.SetContent(in.ExpectedPhase, "", questions)
		return nil
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return apperr.Validation(op, "%s must not be empty", kind)
	}
	update.SetContent(in.ExpectedPhase, text, nil)
	return nil
}

func (s *RoundService) GetRound(ctx context.Context, roundID uint) (*models.Round, error) {
	const op = "GetRound"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	round, err := s.repos.Round.FindByID(ctx, roundID)
	if err != nil {
		return nil, s.fail(op, lookupErr(op, err, "round %d not found", roundID))
	}
	return round, nil
}

// CurrentRound 回傳比賽目前（編號最大）的回合
func (s *RoundService) CurrentRound(ctx context.Context, matchID uint) (*models.Round, error) {
	const op = "CurrentRound"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	round, err := s.repos.Round.Current(ctx, matchID)
	if err != nil {
		return nil, s.fail(op, lookupErr(op, err, "match %d has no rounds", matchID))
	}
	return round, nil
}
