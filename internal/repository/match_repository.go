package repository

import (
	"context"
	"time"

	"debate_arena/internal/models"

	"gorm.io/gorm"
)

// MatchProgress 回合結束後更新的比賽進度
type MatchProgress struct {
	ConsecutiveA int
	ConsecutiveB int
	RoundCount   int
}

// MatchFinish 結束比賽時寫入的欄位
type MatchFinish struct {
	WinnerID             *uint
	AwaitingAdjudication bool
	FinishedAt           time.Time
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	FindByID(ctx context.Context, id uint) (*models.Match, error)
	// FindByIDForUpdate 讀取並鎖定比賽，僅在交易中使用
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Match, error)
	FindWithRounds(ctx context.Context, id uint) (*models.Match, error)
	List(ctx context.Context, status models.MatchStatus) ([]models.Match, error)
	// UpdateProgress 只在比賽仍進行中時更新，回傳是否成功
	UpdateProgress(ctx context.Context, id uint, progress MatchProgress) (bool, error)
	// Finish 只在比賽進行中或等待判定時結束比賽，回傳是否成功
	Finish(ctx context.Context, id uint, finish MatchFinish) (bool, error)
}

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, match *models.Match) error {
	return translate(r.db.WithContext(ctx).Create(match).Error)
}

func (r *matchRepository) FindByID(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	if err := r.db.WithContext(ctx).First(&match, id).Error; err != nil {
		return nil, translate(err)
	}
	return &match, nil
}

func (r *matchRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	if err := forUpdate(r.db.WithContext(ctx)).First(&match, id).Error; err != nil {
		return nil, translate(err)
	}
	return &match, nil
}

func (r *matchRepository) FindWithRounds(ctx context.Context, id uint) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).
		Preload("Rounds", func(db *gorm.DB) *gorm.DB {
			return db.Order("round_number ASC")
		}).
		First(&match, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &match, nil
}

// List 查詢比賽，status 為空時回傳全部
func (r *matchRepository) List(ctx context.Context, status models.MatchStatus) ([]models.Match, error) {
	var matches []models.Match
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&matches).Error
	return matches, translate(err)
}

func (r *matchRepository) UpdateProgress(ctx context.Context, id uint, progress MatchProgress) (bool, error) {
	return applied(r.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND status = ?", id, models.MatchStatusOngoing).
		Updates(map[string]interface{}{
			"consecutive_a": progress.ConsecutiveA,
			"consecutive_b": progress.ConsecutiveB,
			"round_count":   progress.RoundCount,
		}))
}

func (r *matchRepository) Finish(ctx context.Context, id uint, finish MatchFinish) (bool, error) {
	return applied(r.db.WithContext(ctx).Model(&models.Match{}).
		Where("id = ?", id).
		Where("(status = ? OR (status = ? AND awaiting_adjudication = ?))",
			models.MatchStatusOngoing, models.MatchStatusFinished, true).
		Updates(map[string]interface{}{
			"status":                models.MatchStatusFinished,
			"winner_id":             finish.WinnerID,
			"awaiting_adjudication": finish.AwaitingAdjudication,
			"finished_at":           finish.FinishedAt,
		}))
}
