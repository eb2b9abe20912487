// Package rating 實作雙人 Elo 評分計算。
//
// 新評分以 math.Round 取整（最接近的整數，剛好 .5 時遠離零取整），
// 未取整前雙方的增減量總和為零。
package rating

import (
	"fmt"
	"math"
)

const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Engine 以固定 K 值計算評分
type Engine struct {
	k float64
}

// NewEngine 建立評分引擎，k 必須為正數
func NewEngine(k float64) (*Engine, error) {
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("k factor must be a positive finite number, got %v", k)
	}
	return &Engine{k: k}, nil
}

func (e *Engine) K() float64 {
	return e.k
}

// Expected 回傳 A 對 B 的期望得分
func Expected(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/400))
}

// Deltas 回傳未取整的評分變化量
func (e *Engine) Deltas(ratingA, ratingB int, scoreA, scoreB float64) (float64, float64, error) {
	if err := validateScores(scoreA, scoreB); err != nil {
		return 0, 0, err
	}
	expectedA := Expected(ratingA, ratingB)
	expectedB := 1 - expectedA
	return e.k * (scoreA - expectedA), e.k * (scoreB - expectedB), nil
}

// Calculate 計算雙方的新評分
func (e *Engine) Calculate(ratingA, ratingB int, scoreA, scoreB float64) (int, int, error) {
	deltaA, deltaB, err := e.Deltas(ratingA, ratingB, scoreA, scoreB)
	if err != nil {
		return 0, 0, err
	}
	newA := int(math.Round(float64(ratingA) + deltaA))
	newB := int(math.Round(float64(ratingB) + deltaB))
	return newA, newB, nil
}

// 只接受勝負 (1,0)/(0,1) 或平手 (0.5,0.5)
func validateScores(scoreA, scoreB float64) error {
	switch {
	case scoreA == ScoreWin && scoreB == ScoreLoss,
		scoreA == ScoreLoss && scoreB == ScoreWin,
		scoreA == ScoreDraw && scoreB == ScoreDraw:
		return nil
	}
	return fmt.Errorf("invalid score pair (%v, %v)", scoreA, scoreB)
}
