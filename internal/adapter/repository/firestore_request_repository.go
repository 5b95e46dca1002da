package repository

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
)

type firestoreRequestRepository struct {
	client *firestore.Client
}

func NewFirestoreRequestRepository(client *firestore.Client) repository.RequestRepository {
	return &firestoreRequestRepository{
		client: client,
	}
}

func (r *firestoreRequestRepository) Create(ctx context.Context, req *entity.Request) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	_, err := r.client.Collection(requestsCollection).Doc(req.ID).Set(ctx, req)
	if err != nil {
		return errors.Internal("Failed to create request", err)
	}
	return nil
}

func (r *firestoreRequestRepository) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	doc, err := r.client.Collection(requestsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Request", err)
		}
		return nil, errors.Internal("Failed to get request", err)
	}

	var req entity.Request
	if err := doc.DataTo(&req); err != nil {
		return nil, errors.Internal("Failed to parse request data", err)
	}
	req.ID = doc.Ref.ID
	return &req, nil
}

func (r *firestoreRequestRepository) ListBrowsable(ctx context.Context) ([]*entity.Request, error) {
	query := r.client.Collection(requestsCollection).
		Where("status", "in", []string{entity.RequestStatusOpen, entity.RequestStatusInProgress}).
		OrderBy("createdAt", firestore.Desc)
	return r.list(ctx, query)
}

func (r *firestoreRequestRepository) ListAll(ctx context.Context) ([]*entity.Request, error) {
	return r.list(ctx, r.client.Collection(requestsCollection).Query)
}

func (r *firestoreRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]*entity.Request, error) {
	return r.list(ctx, r.client.Collection(requestsCollection).Where("requesterId", "==", requesterID))
}

func (r *firestoreRequestRepository) list(ctx context.Context, query firestore.Query) ([]*entity.Request, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list requests", err)
	}

	requests := make([]*entity.Request, 0, len(docs))
	for _, doc := range docs {
		var req entity.Request
		if err := doc.DataTo(&req); err != nil {
			log.Printf("Error parsing request %s: %v", doc.Ref.ID, err)
			continue
		}
		req.ID = doc.Ref.ID
		requests = append(requests, &req)
	}
	return requests, nil
}
