package service

import (
	"debate_arena/internal/models"
	"debate_arena/pkg/config"
)

// RoundDecision 回合勝負
type RoundDecision struct {
	Outcome models.Outcome `json:"outcome"`
	// InstantWin 勝方得票比例達到門檻
	InstantWin bool `json:"instant_win"`
}

// DecideRound 依得票比例與加權票數決定回合勝負：
// 任一方比例達門檻即勝，否則票數多者勝，票數相同為平手。
func DecideRound(r RoundResults, threshold float64) RoundDecision {
	switch {
	case r.Total > 0 && r.PctA >= threshold:
		return RoundDecision{Outcome: models.OutcomeA, InstantWin: true}
	case r.Total > 0 && r.PctB >= threshold:
		return RoundDecision{Outcome: models.OutcomeB, InstantWin: true}
	case r.VotesA > r.VotesB:
		return RoundDecision{Outcome: models.OutcomeA}
	case r.VotesB > r.VotesA:
		return RoundDecision{Outcome: models.OutcomeB}
	default:
		return RoundDecision{Outcome: models.OutcomeDraw}
	}
}

// UpdateStreaks 勝方連勝加一、對手歸零，平手時雙方歸零
func UpdateStreaks(consecutiveA, consecutiveB int, outcome models.Outcome) (int, int) {
	switch outcome {
	case models.OutcomeA:
		return consecutiveA + 1, 0
	case models.OutcomeB:
		return 0, consecutiveB + 1
	default:
		return 0, 0
	}
}

// FinishReason 比賽結束的原因
type FinishReason string

const (
	FinishInstantWin      FinishReason = "instant_win"
	FinishConsecutiveWins FinishReason = "consecutive_wins"
	FinishRoundCap        FinishReason = "round_cap"
	FinishForced          FinishReason = "forced"
)

// Termination 回合結束後比賽的去向
type Termination struct {
	Finished bool         `json:"finished"`
	Reason   FinishReason `json:"reason,omitempty"`
	// Winner 為空表示沒有勝方
	Winner models.Side `json:"winner,omitempty"`
}

// EvaluateTermination 依序檢查：門檻勝、A 連勝、B 連勝、回合上限
func EvaluateTermination(cfg config.DebateConfig, d RoundDecision, consecutiveA, consecutiveB, roundNumber int) Termination {
	if d.InstantWin {
		side, _ := d.Outcome.WinningSide()
		return Termination{Finished: true, Reason: FinishInstantWin, Winner: side}
	}
	if consecutiveA >= cfg.RequiredConsecutiveWins {
		return Termination{Finished: true, Reason: FinishConsecutiveWins, Winner: models.SideA}
	}
	if consecutiveB >= cfg.RequiredConsecutiveWins {
		return Termination{Finished: true, Reason: FinishConsecutiveWins, Winner: models.SideB}
	}
	if roundNumber >= cfg.MaxRounds {
		return Termination{Finished: true, Reason: FinishRoundCap}
	}
	return Termination{}
}
