package repository

import (
	"context"

	"helphand/internal/domain/entity"
)

type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id string) (*entity.Request, error)
	// ListBrowsable returns open and in-progress requests, newest first.
	ListBrowsable(ctx context.Context) ([]*entity.Request, error)
	// ListAll skips filtering and ordering; used when the browse index is missing.
	ListAll(ctx context.Context) ([]*entity.Request, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*entity.Request, error)
}
