package repository

import (
	"context"
	"fmt"
	"time"

	"debate_arena/internal/models"

	"gorm.io/gorm"
)

type RoundRepository interface {
	Create(ctx context.Context, round *models.Round) error
	FindByID(ctx context.Context, id uint) (*models.Round, error)
	// FindByIDForShare 讀取回合並持有共享鎖，阻擋同時進行的關閉
	FindByIDForShare(ctx context.Context, id uint) (*models.Round, error)
	// Current 回傳比賽中編號最大的回合
	Current(ctx context.Context, matchID uint) (*models.Round, error)
	ListByMatch(ctx context.Context, matchID uint) ([]models.Round, error)
	// ListExpiredVoting 列出投票期限已過但仍在投票中的回合
	ListExpiredVoting(ctx context.Context, now time.Time, limit int) ([]models.Round, error)
	// AdvancePhase 寫入 from 階段的內容並前進，update 帶有內容、新階段與投票期限
	AdvancePhase(ctx context.Context, id uint, from models.Phase, update *models.Round) (bool, error)
	TransitionPhase(ctx context.Context, id uint, from, to models.Phase, at time.Time) (bool, error)
	RecordOutcome(ctx context.Context, id uint, from models.Phase, outcome models.Outcome) (bool, error)
	// CloseOpen 將比賽中尚未結束的回合設為 VOTING_CLOSED
	CloseOpen(ctx context.Context, matchID uint, at time.Time) (int64, error)
}

type roundRepository struct {
	db *gorm.DB
}

func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepository{db: db}
}

func (r *roundRepository) Create(ctx context.Context, round *models.Round) error {
	return translate(r.db.WithContext(ctx).Create(round).Error)
}

func (r *roundRepository) FindByID(ctx context.Context, id uint) (*models.Round, error) {
	var round models.Round
	if err := r.db.WithContext(ctx).First(&round, id).Error; err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func (r *roundRepository) FindByIDForShare(ctx context.Context, id uint) (*models.Round, error) {
	var round models.Round
	if err := forShare(r.db.WithContext(ctx)).First(&round, id).Error; err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func (r *roundRepository) Current(ctx context.Context, matchID uint) (*models.Round, error) {
	var round models.Round
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("round_number DESC").
		First(&round).Error
	if err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func (r *roundRepository) ListByMatch(ctx context.Context, matchID uint) ([]models.Round, error) {
	var rounds []models.Round
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("round_number ASC").
		Find(&rounds).Error
	return rounds, translate(err)
}

func (r *roundRepository) ListExpiredVoting(ctx context.Context, now time.Time, limit int) ([]models.Round, error) {
	var rounds []models.Round
	query := r.db.WithContext(ctx).
		Where("phase = ? AND voting_deadline <= ?", models.PhaseWaitVoting, now).
		Order("voting_deadline ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rounds).Error
	return rounds, translate(err)
}

func (r *roundRepository) AdvancePhase(ctx context.Context, id uint, from models.Phase, update *models.Round) (bool, error) {
	column, ok := models.ContentColumn(from)
	if !ok {
		return false, fmt.Errorf("phase %s has no content column", from)
	}
	// 以結構更新，questions 欄位才會經過 json serializer
	return applied(r.db.WithContext(ctx).Model(&models.Round{}).
		Where("id = ? AND phase = ?", id, from).
		Select(column, "phase", "voting_deadline").
		Updates(update))
}

func (r *roundRepository) TransitionPhase(ctx context.Context, id uint, from, to models.Phase, at time.Time) (bool, error) {
	values := map[string]interface{}{"phase": to}
	if to.IsTerminal() {
		values["closed_at"] = at
	}
	return applied(r.db.WithContext(ctx).Model(&models.Round{}).
		Where("id = ? AND phase = ?", id, from).
		Updates(values))
}

func (r *roundRepository) RecordOutcome(ctx context.Context, id uint, from models.Phase, outcome models.Outcome) (bool, error) {
	return applied(r.db.WithContext(ctx).Model(&models.Round{}).
		Where("id = ? AND phase = ?", id, from).
		Updates(map[string]interface{}{
			"phase":       models.PhaseRoundResult,
			"winner_side": outcome,
		}))
}

func (r *roundRepository) CloseOpen(ctx context.Context, matchID uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Round{}).
		Where("match_id = ? AND phase NOT IN ?", matchID,
			[]models.Phase{models.PhaseVotingClosed, models.PhaseRoundResult}).
		Updates(map[string]interface{}{
			"phase":     models.PhaseVotingClosed,
			"closed_at": at,
		})
	return result.RowsAffected, translate(result.Error)
}
