package repository

import (
	"context"

	"helphand/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	IncrementCounter(ctx context.Context, userID, field string, delta int) error
}
