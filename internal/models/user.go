package models

import (
	"gorm.io/gorm"
)

// User 表示系統中的用戶
type User struct {
	gorm.Model        // 內嵌 gorm.Model，提供 ID、CreatedAt、UpdatedAt 和 DeletedAt 字段
	Username   string `gorm:"uniqueIndex;not null" json:"username"` // 用戶名，必須唯一
	Password   string `gorm:"not null" json:"-"`                    // 密碼，json 序列化時會被忽略
	Nickname   string `json:"nickname"`
	Rating     int    `gorm:"not null" json:"rating"`
	Wins       int    `gorm:"not null;default:0" json:"wins"`
	Losses     int    `gorm:"not null;default:0" json:"losses"`
	Draws      int    `gorm:"not null;default:0" json:"draws"`
	IsAdmin    bool   `gorm:"not null;default:false" json:"is_admin"`
}

// MatchesPlayed 已完成評分的比賽場數
func (u *User) MatchesPlayed() int {
	return u.Wins + u.Losses + u.Draws
}

// WinRate 勝率（百分比）
func (u *User) WinRate() float64 {
	played := u.MatchesPlayed()
	if played == 0 {
		return 0
	}
	return float64(u.Wins) / float64(played) * 100
}

// All 回傳需要遷移的所有模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Match{},
		&Round{},
		&Vote{},
		&RatingRecord{},
		&JudgeAssignment{},
	}
}
