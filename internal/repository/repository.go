package repository

import (
	"context"

	"debate_arena/internal/storage"

	"gorm.io/gorm"
)

// Repositories 聚合所有 repository，Transaction 內的實例綁定同一個交易
type Repositories struct {
	db *gorm.DB

	User   UserRepository
	Match  MatchRepository
	Round  RoundRepository
	Vote   VoteRepository
	Rating RatingRepository
	Judge  JudgeRepository
}

func NewRepositories(db *storage.DB) *Repositories {
	return newRepositories(db.DB)
}

func newRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:     db,
		User:   NewUserRepository(db),
		Match:  NewMatchRepository(db),
		Round:  NewRoundRepository(db),
		Vote:   NewVoteRepository(db),
		Rating: NewRatingRepository(db),
		Judge:  NewJudgeRepository(db),
	}
}

// Transaction 在單一交易中執行 fn，fn 回傳錯誤時整筆回滾
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}
