package repository

import (
	"context"

	"debate_arena/internal/models"

	"gorm.io/gorm"
)

type RatingRepository interface {
	// Create 新增評分紀錄，同一場比賽同一用戶只能有一筆
	Create(ctx context.Context, record *models.RatingRecord) error
	ExistsForMatch(ctx context.Context, matchID uint) (bool, error)
	ListByMatch(ctx context.Context, matchID uint) ([]models.RatingRecord, error)
	// ListByUser 依時間由新到舊
	ListByUser(ctx context.Context, userID uint) ([]models.RatingRecord, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) Create(ctx context.Context, record *models.RatingRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

func (r *ratingRepository) ExistsForMatch(ctx context.Context, matchID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RatingRecord{}).Where("match_id = ?", matchID).Count(&count).Error
	return count > 0, translate(err)
}

func (r *ratingRepository) ListByMatch(ctx context.Context, matchID uint) ([]models.RatingRecord, error) {
	var records []models.RatingRecord
	err := r.db.WithContext(ctx).Where("match_id = ?", matchID).Order("id ASC").Find(&records).Error
	return records, translate(err)
}

func (r *ratingRepository) ListByUser(ctx context.Context, userID uint) ([]models.RatingRecord, error) {
	var records []models.RatingRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error
	return records, translate(err)
}
