package models

import (
	"time"

	"gorm.io/gorm"
)

// Match 表示一場多回合的辯論比賽
type Match struct {
	gorm.Model
	TopicID      uint        `gorm:"not null;index" json:"topic_id"`
	SideAUserID  uint        `gorm:"not null;index" json:"side_a_user_id"` // 正方
	SideBUserID  uint        `gorm:"not null;index" json:"side_b_user_id"` // 反方
	Status       MatchStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RoundCount   int         `gorm:"not null" json:"round_count"`
	ConsecutiveA int         `gorm:"not null;default:0" json:"consecutive_a"`
	ConsecutiveB int         `gorm:"not null;default:0" json:"consecutive_b"`
	WinnerID     *uint       `json:"winner_id"`
	// 達到回合上限但無勝負時為 true，等待管理員判定
	AwaitingAdjudication bool       `gorm:"not null;default:false" json:"awaiting_adjudication"`
	FinishedAt           *time.Time `json:"finished_at"`
	Rounds               []Round    `gorm:"foreignKey:MatchID" json:"rounds,omitempty"`
}

// MatchStatus 定義比賽狀態的類型
type MatchStatus string

const (
	MatchStatusOngoing  MatchStatus = "ONGOING"
	MatchStatusFinished MatchStatus = "FINISHED"
)

// ParticipantFor 回傳指定一方的參賽者 ID
func (m *Match) ParticipantFor(side Side) uint {
	if side == SideA {
		return m.SideAUserID
	}
	return m.SideBUserID
}

// SideOf 回傳用戶在比賽中的一方
func (m *Match) SideOf(userID uint) (Side, bool) {
	switch userID {
	case m.SideAUserID:
		return SideA, true
	case m.SideBUserID:
		return SideB, true
	default:
		return "", false
	}
}

// IsParticipant 用戶是否為本場辯手
func (m *Match) IsParticipant(userID uint) bool {
	_, ok := m.SideOf(userID)
	return ok
}

func (m *Match) IsOngoing() bool {
	return m.Status == MatchStatusOngoing
}

// CanForceFinish 是否接受管理員強制結束
func (m *Match) CanForceFinish() bool {
	return m.Status == MatchStatusOngoing || (m.Status == MatchStatusFinished && m.AwaitingAdjudication)
}

// JudgeAssignment 比賽的評審指派
type JudgeAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MatchID   uint      `gorm:"not null;uniqueIndex:idx_judge_match_user" json:"match_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_judge_match_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
