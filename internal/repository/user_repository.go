package repository

import (
	"context"
	"fmt"

	"debate_arena/internal/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	// FindByIDForUpdate 讀取並鎖定用戶，僅在交易中使用
	FindByIDForUpdate(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetAdmin(ctx context.Context, id uint, admin bool) error
	// ApplyResult 寫入新評分並累加勝、負或和的場數
	ApplyResult(ctx context.Context, id uint, rating int, result models.Result) error
	// Ranked 依評分排序已有比賽紀錄的用戶
	Ranked(ctx context.Context, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := forUpdate(r.db.WithContext(ctx)).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, translate(err)
}

func (r *userRepository) SetAdmin(ctx context.Context, id uint, admin bool) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", admin)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) ApplyResult(ctx context.Context, id uint, rating int, result models.Result) error {
	var counter string
	switch result {
	case models.ResultWin:
		counter = "wins"
	case models.ResultLoss:
		counter = "losses"
	case models.ResultDraw:
		counter = "draws"
	default:
		return fmt.Errorf("unknown result %q", result)
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"rating": rating,
		counter:  gorm.Expr(counter + " + 1"),
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) Ranked(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	query := r.db.WithContext(ctx).
		Where("wins + losses + draws > 0").
		Order("rating DESC").
		Order("wins DESC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&users).Error
	return users, translate(err)
}
