package logics

import (
	"context"
	"errors"

	"dopple-server/internal/apperrors"
	"dopple-server/internal/models"

	"gorm.io/gorm"
)

// UserService reads user accounts. Accounts are provisioned by the
// identity provider's webhook, so this service only ever looks them up.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// GetByExternalID resolves the identity provider's subject to a local
// user row.
func (us *UserService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := us.db.WithContext(ctx).First(&user, "external_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "couldn't find user")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to fetch user", err)
	}
	return &user, nil
}

// GetByID fetches a user row by primary key.
func (us *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := us.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "couldn't find user")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to fetch user", err)
	}
	return &user, nil
}
