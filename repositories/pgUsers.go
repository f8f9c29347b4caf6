package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"weather-server/db"
	"weather-server/entities"
)

type userPgRepository struct {
	db db.Database
}

func NewUserPgRepository(database db.Database) UserRepository {
	return &userPgRepository{db: database}
}

func (r *userPgRepository) Create(ctx context.Context, user *entities.User) error {
	if err := r.db.GetDB().WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return nil
}

func (r *userPgRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.GetDB().WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entities.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userPgRepository) SetPassword(ctx context.Context, id uint64, passwordHash string) error {
	res := r.db.GetDB().WithContext(ctx).Model(&entities.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *userPgRepository) SetEnabled(ctx context.Context, id uint64, enabled bool) error {
	res := r.db.GetDB().WithContext(ctx).Model(&entities.User{}).
		Where("id = ?", id).
		Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *userPgRepository) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.GetDB().WithContext(ctx).Model(&entities.User{}).
		Where("id = ?", id).
		Update("last_login_date", at.UTC()).Error
}
