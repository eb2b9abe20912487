package models

import "time"

// Result 比賽對單一參賽者的結果
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// RatingRecord 比賽結束後每位參賽者的評分變動，寫入後不可修改
type RatingRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MatchID      uint      `gorm:"not null;uniqueIndex:idx_rating_match_user" json:"match_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_rating_match_user;index" json:"user_id"`
	OpponentID   uint      `gorm:"not null;default:0" json:"opponent_id"`
	Result       Result    `gorm:"type:varchar(8);not null" json:"result"`
	RatingBefore int       `gorm:"not null" json:"rating_before"`
	RatingAfter  int       `gorm:"not null" json:"rating_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// Change 評分變化量
func (r RatingRecord) Change() int {
	return r.RatingAfter - r.RatingBefore
}
