package models

import "time"

// Vote 投票紀錄，只新增不修改
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoundID   uint      `gorm:"not null;uniqueIndex:idx_vote_round_voter" json:"round_id"`
	VoterID   uint      `gorm:"not null;uniqueIndex:idx_vote_round_voter" json:"voter_id"`
	SideVoted Side      `gorm:"type:varchar(1);not null" json:"side_voted"`
	IsJudge   bool      `gorm:"not null" json:"is_judge"`
	Weight    int       `gorm:"not null" json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}
