package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/HA0N1/pre-onboarding/internal/models"
)

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Preload("Authorities").
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user with the default ROLE_USER authority.
// Uniqueness is checked by exact username lookup inside the transaction.
func (r *GormRepo) CreateUser(ctx context.Context, username, nickname, passwordHash string) (*models.User, error) {
	user := models.User{
		Username:     username,
		Nickname:     nickname,
		PasswordHash: passwordHash,
		Authorities: []models.Authority{
			{AuthorityName: models.RoleUser},
		},
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("username = ?", username).First(&existing).Error
		if err == nil {
			return ErrUserAlreadyExist
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetRefreshToken overwrites the stored refresh token. A prior token is
// implicitly invalidated by the overwrite.
func (r *GormRepo) SetRefreshToken(ctx context.Context, username, token string) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("refresh_token", token).Error
}

// ClearRefreshToken is idempotent, clearing an already empty token is a no-op.
func (r *GormRepo) ClearRefreshToken(ctx context.Context, username string) error {
	return r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("refresh_token", "").Error
}
