package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.VoteCast("A", true)
	m.VoteCast("A", false)
	m.VoteCast("A", false)
	m.RoundClosed("DRAW")
	m.MatchFinished("instant_win")
	m.CloseConflict()
	m.CloseConflict()
	m.RatingApplied()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast.WithLabelValues("A", "judge")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VotesCast.WithLabelValues("A", "audience")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundsClosed.WithLabelValues("DRAW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MatchesFinished.WithLabelValues("instant_win")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CloseConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RatingsApplied))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.VoteCast("B", false)
		m.PhaseAdvanced("WAIT_VOTING")
		m.RoundClosed("A")
		m.MatchFinished("streak")
		m.CloseConflict()
		m.RatingApplied()
	})
}
