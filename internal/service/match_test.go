package service

import (
	"sync"
	"testing"
	"time"

	"debate_arena/internal/apperr"
	"debate_arena/internal/models"
	"debate_arena/pkg/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartMatch(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(1500), f.user(1500)

	match, err := f.svc.Match.StartMatch(f.ctx, 3, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusOngoing, match.Status)
	assert.Equal(t, 1, match.RoundCount)
	require.Len(t, match.Rounds, 1)
	assert.Equal(t, 1, match.Rounds[0].RoundNumber)
	assert.Equal(t, models.PhaseWaitAStatement, match.Rounds[0].Phase)

	_, err = f.svc.Match.StartMatch(f.ctx, 3, a.ID, a.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation), err)
	_, err = f.svc.Match.StartMatch(f.ctx, 3, 0, b.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation), err)
	_, err = f.svc.Match.StartMatch(f.ctx, 3, a.ID, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)
}

func TestCloseVoting_InstantWinFinishesMatch(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()

	result := f.playRound(match, 8, 2)

	assert.Equal(t, models.OutcomeA, result.Decision.Outcome)
	assert.True(t, result.Decision.InstantWin)
	assert.Equal(t, Termination{Finished: true, Reason: FinishInstantWin, Winner: models.SideA}, result.Termination)
	assert.Nil(t, result.NextRound)
	assert.Equal(t, models.PhaseRoundResult, result.Round.Phase)

	assert.Equal(t, models.MatchStatusFinished, result.Match.Status)
	require.NotNil(t, result.Match.WinnerID)
	assert.Equal(t, match.SideAUserID, *result.Match.WinnerID)
	assert.NotNil(t, result.Match.FinishedAt)
	assert.Len(t, result.Ratings, 2)
}

func TestCloseVoting_RawMajorityContinuesMatch(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()

	result := f.playRound(match, 3, 2)

	assert.Equal(t, models.OutcomeA, result.Decision.Outcome)
	assert.False(t, result.Decision.InstantWin)
	assert.False(t, result.Termination.Finished)
	require.NotNil(t, result.NextRound)
	assert.Equal(t, 2, result.NextRound.RoundNumber)
	assert.Equal(t, models.PhaseWaitAStatement, result.NextRound.Phase)

	assert.Equal(t, models.MatchStatusOngoing, result.Match.Status)
	assert.Equal(t, 2, result.Match.RoundCount)
	assert.Equal(t, 1, result.Match.ConsecutiveA)
	assert.Equal(t, 0, result.Match.ConsecutiveB)
	require.NotNil(t, result.Round.WinnerSide)
	assert.Equal(t, models.OutcomeA, *result.Round.WinnerSide)
}

func TestCloseVoting_DrawResetsStreaks(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()

	f.playRound(match, 3, 2)
	f.playRound(match, 3, 2)
	result := f.playRound(match, 0, 0)

	assert.Equal(t, models.OutcomeDraw, result.Decision.Outcome)
	assert.Equal(t, 0, result.Match.ConsecutiveA)
	assert.Equal(t, 0, result.Match.ConsecutiveB)
	assert.Equal(t, 4, result.Match.RoundCount)

	result = f.playRound(match, 2, 3)
	assert.Equal(t, 0, result.Match.ConsecutiveA)
	assert.Equal(t, 1, result.Match.ConsecutiveB)
}

func TestCloseVoting_ThreeConsecutiveWinsAppliesRatingOnce(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()

	first := f.playRound(match, 3, 2)
	assert.False(t, first.Termination.Finished)
	second := f.playRound(match, 3, 2)
	assert.False(t, second.Termination.Finished)
	third := f.playRound(match, 3, 2)

	assert.Equal(t, Termination{Finished: true, Reason: FinishConsecutiveWins, Winner: models.SideA}, third.Termination)
	assert.Equal(t, models.MatchStatusFinished, third.Match.Status)
	require.NotNil(t, third.Match.WinnerID)
	assert.Equal(t, match.SideAUserID, *third.Match.WinnerID)

	records, err := f.repos.Rating.ListByMatch(f.ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RatingsApplied))

	a, err := f.repos.User.FindByID(f.ctx, match.SideAUserID)
	require.NoError(t, err)
	b, err := f.repos.User.FindByID(f.ctx, match.SideBUserID)
	require.NoError(t, err)
	assert.Equal(t, 1516, a.Rating)
	assert.Equal(t, 1484, b.Rating)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, b.Losses)

	rounds, err := f.repos.Round.ListByMatch(f.ctx, match.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 3)

	// 比賽已結束，不能再次強制結束
	_, err = f.svc.Match.ForceFinish(f.ctx, match.ID, &match.SideBUserID)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyClosed), err)
}

func TestCloseVoting_ConcurrentClosesSucceedOnce(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()
	round := f.toVoting(match)
	f.vote(round.ID, 3, 2)

	const k = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		closed    int
	)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Match.CloseVoting(f.ctx, round.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindAlreadyClosed):
				closed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, k-1, closed)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RoundsClosed.WithLabelValues("A")))

	rounds, err := f.repos.Round.ListByMatch(f.ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, models.PhaseRoundResult, rounds[0].Phase)

	got, err := f.svc.Match.GetMatch(f.ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RoundCount)
	assert.Equal(t, 1, got.ConsecutiveA)
}

// finishRace 同時執行 calls，回傳成功與 already_closed 的次數
func finishRace(calls []func() error) (successes, closed int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, call := range calls {
		wg.Add(1)
		go func(call func() error) {
			defer wg.Done()
			err := call()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.KindAlreadyClosed):
				closed++
			}
		}(call)
	}
	wg.Wait()
	return successes, closed
}

func TestForceFinish_ConcurrentCallsFinishOnce(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()

	const k = 8
	calls := make([]func() error, k)
	for i := range calls {
		calls[i] = func() error {
			_, err := f.svc.Match.ForceFinish(f.ctx, match.ID, &match.SideAUserID)
			return err
		}
	}
	successes, closed := finishRace(calls)

	assert.Equal(t, 1, successes)
	assert.Equal(t, k-1, closed)

	records, err := f.repos.Rating.ListByMatch(f.ctx, match.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RatingsApplied))

	a, err := f.repos.User.FindByID(f.ctx, match.SideAUserID)
	require.NoError(t, err)
	assert.Equal(t, 1516, a.Rating)
	assert.Equal(t, 1, a.Wins)
}

func TestFinish_CloseAndForceFinishRaceFinishesOnce(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()
	round := f.toVoting(match)
	// 全票給 A，關閉投票會以立即勝利結束比賽
	f.vote(round.ID, 3, 0)

	const pairs = 4
	var calls []func() error
	for i := 0; i < pairs; i++ {
		calls = append(calls,
			func() error {
				_, err := f.svc.Match.CloseVoting(f.ctx, round.ID)
				return err
			},
			func() error {
				_, err := f.svc.Match.ForceFinish(f.ctx, match.ID, &match.SideBUserID)
				return err
			},
		)
	}
	successes, closed := finishRace(calls)

	assert.Equal(t, 1, successes)
	assert.Equal(t, 2*pairs-1, closed)

	got, err := f.svc.Match.GetMatch(f.ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, got.Status)
	assert.False(t, got.AwaitingAdjudication)
	require.NotNil(t, got.WinnerID)
	require.Len(t, got.Rounds, 1)
	assert.True(t, got.Rounds[0].IsClosed())

	records, err := f.repos.Rating.ListByMatch(f.ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	total := 0
	for _, rec := range records {
		total += rec.RatingAfter
		if rec.UserID == *got.WinnerID {
			assert.Equal(t, models.ResultWin, rec.Result)
		} else {
			assert.Equal(t, models.ResultLoss, rec.Result)
		}
	}
	assert.Equal(t, 3000, total)
}

func TestCloseVoting_RequiresVotingPhase(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()
	round := f.currentRound(match.ID)

	_, err := f.svc.Match.CloseVoting(f.ctx, round.ID)
	assert.True(t, apperr.Is(err, apperr.KindPhase), err)

	_, err = f.svc.Match.CloseVoting(f.ctx, 404)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)
}

func TestCloseVoting_RoundCapAwaitsAdjudication(t *testing.T) {
	f := newFixture(t, func(c *config.DebateConfig) { c.MaxRounds = 2 })
	match := f.startMatch()

	f.playRound(match, 1, 1)
	result := f.playRound(match, 0, 0)

	assert.Equal(t, Termination{Finished: true, Reason: FinishRoundCap}, result.Termination)
	assert.Equal(t, models.MatchStatusFinished, result.Match.Status)
	assert.Nil(t, result.Match.WinnerID)
	assert.True(t, result.Match.AwaitingAdjudication)
	assert.Empty(t, result.Ratings)

	records, err := f.repos.Rating.ListByMatch(f.ctx, match.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	finished, err := f.svc.Match.ForceFinish(f.ctx, match.ID, &match.SideBUserID)
	require.NoError(t, err)
	assert.False(t, finished.AwaitingAdjudication)
	require.NotNil(t, finished.WinnerID)
	assert.Equal(t, match.SideBUserID, *finished.WinnerID)

	records, err = f.repos.Rating.ListByMatch(f.ctx, match.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = f.svc.Match.ForceFinish(f.ctx, match.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyClosed), err)
}

// assertUnrated 確認比賽沒有評分紀錄，雙方評分與戰績維持原狀
func (f *fixture) assertUnrated(match *models.Match) {
	f.t.Helper()
	records, err := f.repos.Rating.ListByMatch(f.ctx, match.ID)
	require.NoError(f.t, err)
	assert.Empty(f.t, records)

	for _, id := range []uint{match.SideAUserID, match.SideBUserID} {
		u, err := f.repos.User.FindByID(f.ctx, id)
		require.NoError(f.t, err)
		assert.Equal(f.t, f.cfg.InitialRating, u.Rating)
		assert.Equal(f.t, 0, u.MatchesPlayed())
	}
}

func TestForceFinish_NoWinnerClosesOpenRoundWithoutRating(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()
	round := f.toVoting(match)

	finished, err := f.svc.Match.ForceFinish(f.ctx, match.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, finished.Status)
	assert.Nil(t, finished.WinnerID)
	assert.False(t, finished.AwaitingAdjudication)
	require.Len(t, finished.Rounds, 1)
	assert.Equal(t, models.PhaseVotingClosed, finished.Rounds[0].Phase)

	f.assertUnrated(match)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.RatingsApplied))

	_, err = f.svc.Match.CloseVoting(f.ctx, round.ID)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyClosed), err)
	_, err = f.svc.Match.ForceFinish(f.ctx, match.ID, &match.SideAUserID)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyClosed), err)
}

func TestForceFinish_NoWinnerResolvesAdjudication(t *testing.T) {
	f := newFixture(t, func(c *config.DebateConfig) { c.MaxRounds = 1 })
	match := f.startMatch()

	result := f.playRound(match, 0, 0)
	require.True(t, result.Match.AwaitingAdjudication)

	finished, err := f.svc.Match.ForceFinish(f.ctx, match.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusFinished, finished.Status)
	assert.Nil(t, finished.WinnerID)
	assert.False(t, finished.AwaitingAdjudication)

	f.assertUnrated(match)

	// 判定後不能再改判
	_, err = f.svc.Match.ForceFinish(f.ctx, match.ID, &match.SideBUserID)
	assert.True(t, apperr.Is(err, apperr.KindAlreadyClosed), err)
	f.assertUnrated(match)
}

func TestForceFinish_InvalidWinner(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()
	outsider := f.user(1500)

	_, err := f.svc.Match.ForceFinish(f.ctx, match.ID, &outsider.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidWinner), err)

	got, err := f.svc.Match.GetMatch(f.ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusOngoing, got.Status)

	_, err = f.svc.Match.ForceFinish(f.ctx, 404, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)
}

func TestAssignJudge(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()
	judge := f.user(1500)

	_, err := f.svc.Match.AssignJudge(f.ctx, match.ID, judge.ID)
	require.NoError(t, err)

	_, err = f.svc.Match.AssignJudge(f.ctx, match.ID, judge.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), err)

	_, err = f.svc.Match.AssignJudge(f.ctx, match.ID, match.SideAUserID)
	assert.True(t, apperr.Is(err, apperr.KindValidation), err)

	_, err = f.svc.Match.AssignJudge(f.ctx, match.ID, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), err)

	judges, err := f.svc.Match.ListJudges(f.ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, judges, 1)
	assert.Equal(t, judge.ID, judges[0].UserID)
}

func TestListMatches(t *testing.T) {
	f := newFixture(t)
	ongoing := f.startMatch()
	done := f.startMatch()
	_, err := f.svc.Match.ForceFinish(f.ctx, done.ID, &done.SideAUserID)
	require.NoError(t, err)

	all, err := f.svc.Match.ListMatches(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := f.svc.Match.ListMatches(f.ctx, models.MatchStatusOngoing)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, ongoing.ID, open[0].ID)

	_, err = f.svc.Match.ListMatches(f.ctx, models.MatchStatus("PAUSED"))
	assert.True(t, apperr.Is(err, apperr.KindValidation), err)
}

func TestDeadlineSweeper_ClosesExpiredRounds(t *testing.T) {
	f := newFixture(t)
	match := f.startMatch()
	round := f.toVoting(match)
	f.vote(round.ID, 2, 1)

	closed, err := f.svc.Sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)

	f.clock.Advance(f.cfg.VotingWindow + time.Second)

	closed, err = f.svc.Sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	got, err := f.svc.Round.GetRound(f.ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundResult, got.Phase)

	closed, err = f.svc.Sweeper.SweepOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}
