package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"debate_arena/internal/metrics"
	"debate_arena/internal/models"
	"debate_arena/internal/repository"
	"debate_arena/internal/storage"
	"debate_arena/internal/utils"
	"debate_arena/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	cfg     config.DebateConfig
	repos   *repository.Repositories
	svc     *Services
	clock   *fakeClock
	metrics *metrics.Metrics

	nextVoter uint
	users     int
}

func newFixture(t *testing.T, tweaks ...func(*config.DebateConfig)) *fixture {
	t.Helper()

	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	cfg := config.DefaultDebateConfig()
	for _, tweak := range tweaks {
		tweak(&cfg)
	}

	tokens, err := utils.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := metrics.New(prometheus.NewRegistry())
	repos := repository.NewRepositories(db)

	svc, err := NewServices(Deps{
		Repos:   repos,
		Config:  cfg,
		Tokens:  tokens,
		Clock:   clock,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: m,
	})
	require.NoError(t, err)

	return &fixture{
		t:         t,
		ctx:       context.Background(),
		cfg:       cfg,
		repos:     repos,
		svc:       svc,
		clock:     clock,
		metrics:   m,
		nextVoter: 10000,
	}
}

// user 直接寫入資料庫，略過 bcrypt
func (f *fixture) user(rating int) *models.User {
	f.t.Helper()
	f.users++
	u := &models.User{
		Username: fmt.Sprintf("user%d", f.users),
		Password: "x",
		Rating:   rating,
	}
	require.NoError(f.t, f.repos.User.Create(f.ctx, u))
	return u
}

func (f *fixture) startMatch() *models.Match {
	f.t.Helper()
	a := f.user(f.cfg.InitialRating)
	b := f.user(f.cfg.InitialRating)
	match, err := f.svc.Match.StartMatch(f.ctx, 1, a.ID, b.ID)
	require.NoError(f.t, err)
	return match
}

func (f *fixture) currentRound(matchID uint) *models.Round {
	f.t.Helper()
	round, err := f.svc.Round.CurrentRound(f.ctx, matchID)
	require.NoError(f.t, err)
	return round
}

func submission(match *models.Match, round *models.Round) ContentSubmission {
	side, _ := round.Phase.Actor()
	in := ContentSubmission{
		RoundID:       round.ID,
		UserID:        match.ParticipantFor(side),
		Side:          side,
		ExpectedPhase: round.Phase,
	}
	if kind, _ := round.Phase.Content(); kind == models.ContentQuestions {
		in.Questions = []string{"first question", "second question"}
	} else {
		in.Text = fmt.Sprintf("%s by %s", kind, side)
	}
	return in
}

// toVoting 依序提交所有內容階段，回傳進入投票階段的回合
func (f *fixture) toVoting(match *models.Match) *models.Round {
	f.t.Helper()
	round := f.currentRound(match.ID)
	for round.Phase.IsContent() {
		var err error
		round, err = f.svc.Round.SubmitContent(f.ctx, submission(match, round))
		require.NoError(f.t, err)
	}
	require.Equal(f.t, models.PhaseWaitVoting, round.Phase)
	return round
}

// vote 以一般投票者身分投下指定票數
func (f *fixture) vote(roundID uint, votesA, votesB int) {
	f.t.Helper()
	for side, n := range map[models.Side]int{models.SideA: votesA, models.SideB: votesB} {
		for i := 0; i < n; i++ {
			f.nextVoter++
			_, err := f.svc.Vote.SubmitVote(f.ctx, roundID, f.nextVoter, side)
			require.NoError(f.t, err)
		}
	}
}

// playRound 完成目前回合並以指定票數關閉
func (f *fixture) playRound(match *models.Match, votesA, votesB int) *CloseResult {
	f.t.Helper()
	round := f.toVoting(match)
	f.vote(round.ID, votesA, votesB)
	result, err := f.svc.Match.CloseVoting(f.ctx, round.ID)
	require.NoError(f.t, err)
	return result
}
