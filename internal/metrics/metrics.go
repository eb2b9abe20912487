// Package metrics 收集比賽流程的 prometheus 指標。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "debate"

// Metrics 比賽流程相關的計數器。nil 的 *Metrics 可以安全呼叫，不做任何事。
type Metrics struct {
	VotesCast        *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	RoundsClosed     *prometheus.CounterVec
	MatchesFinished  *prometheus.CounterVec
	CloseConflicts   prometheus.Counter
	RatingsApplied   prometheus.Counter
}

// New 建立並註冊所有指標
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VotesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Accepted votes by side and voter role.",
		}, []string{"side", "role"}),
		PhaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "round_phase_transitions_total",
			Help:      "Round phase transitions by target phase.",
		}, []string{"phase"}),
		RoundsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_closed_total",
			Help:      "Closed rounds by outcome.",
		}, []string{"outcome"}),
		MatchesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Finished matches by termination reason.",
		}, []string{"reason"}),
		CloseConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "close_voting_conflicts_total",
			Help:      "Close attempts rejected because the round was already closed.",
		}),
		RatingsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratings_applied_total",
			Help:      "Matches whose ratings were applied.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.VotesCast,
			m.PhaseTransitions,
			m.RoundsClosed,
			m.MatchesFinished,
			m.CloseConflicts,
			m.RatingsApplied,
		)
	}
	return m
}

func (m *Metrics) VoteCast(side string, judge bool) {
	if m == nil {
		return
	}
	role := "audience"
	if judge {
		role = "judge"
	}
	m.VotesCast.WithLabelValues(side, role).Inc()
}

func (m *Metrics) PhaseAdvanced(phase string) {
	if m == nil {
		return
	}
	m.PhaseTransitions.WithLabelValues(phase).Inc()
}

func (m *Metrics) RoundClosed(outcome string) {
	if m == nil {
		return
	}
	m.RoundsClosed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MatchFinished(reason string) {
	if m == nil {
		return
	}
	m.MatchesFinished.WithLabelValues(reason).Inc()
}

func (m *Metrics) CloseConflict() {
	if m == nil {
		return
	}
	m.CloseConflicts.Inc()
}

func (m *Metrics) RatingApplied() {
	if m == nil {
		return
	}
	m.RatingsApplied.Inc()
}
