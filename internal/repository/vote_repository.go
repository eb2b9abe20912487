package repository

import (
	"context"

	"debate_arena/internal/models"

	"gorm.io/gorm"
)

// VoteTotals 回合中雙方的加權票數
type VoteTotals struct {
	A int
	B int
}

type VoteRepository interface {
	// Create 新增投票，同一回合同一投票者重複時回傳 ErrDuplicate
	Create(ctx context.Context, vote *models.Vote) error
	Totals(ctx context.Context, roundID uint) (VoteTotals, error)
	ListByRound(ctx context.Context, roundID uint) ([]models.Vote, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Create(ctx context.Context, vote *models.Vote) error {
	return translate(r.db.WithContext(ctx).Create(vote).Error)
}

func (r *voteRepository) Totals(ctx context.Context, roundID uint) (VoteTotals, error) {
	var rows []struct {
		SideVoted models.Side
		Total     int
	}
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("side_voted, COALESCE(SUM(weight), 0) AS total").
		Where("round_id = ?", roundID).
		Group("side_voted").
		Scan(&rows).Error
	if err != nil {
		return VoteTotals{}, translate(err)
	}

	var totals VoteTotals
	for _, row := range rows {
		switch row.SideVoted {
		case models.SideA:
			totals.A = row.Total
		case models.SideB:
			totals.B = row.Total
		}
	}
	return totals, nil
}

func (r *voteRepository) ListByRound(ctx context.Context, roundID uint) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).Where("round_id = ?", roundID).Order("id ASC").Find(&votes).Error
	return votes, translate(err)
}
