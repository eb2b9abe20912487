package repository

import (
	"context"

	"debate_arena/internal/models"

	"gorm.io/gorm"
)

type JudgeRepository interface {
	Assign(ctx context.Context, assignment *models.JudgeAssignment) error
	IsJudge(ctx context.Context, matchID, userID uint) (bool, error)
	ListByMatch(ctx context.Context, matchID uint) ([]models.JudgeAssignment, error)
}

type judgeRepository struct {
	db *gorm.DB
}

func NewJudgeRepository(db *gorm.DB) JudgeRepository {
	return &judgeRepository{db: db}
}

func (r *judgeRepository) Assign(ctx context.Context, assignment *models.JudgeAssignment) error {
	return translate(r.db.WithContext(ctx).Create(assignment).Error)
}

func (r *judgeRepository) IsJudge(ctx context.Context, matchID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.JudgeAssignment{}).
		Where("match_id = ? AND user_id = ?", matchID, userID).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *judgeRepository) ListByMatch(ctx context.Context, matchID uint) ([]models.JudgeAssignment, error) {
	var judges []models.JudgeAssignment
	err := r.db.WithContext(ctx).Where("match_id = ?", matchID).Order("id ASC").Find(&judges).Error
	return judges, translate(err)
}
