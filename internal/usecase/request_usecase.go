package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
	"helphand/pkg/logger"
	"helphand/pkg/retry"
)

// IndexBuildingAdvisory is returned once per user when browsing had to fall
// back to the unordered query.
const IndexBuildingAdvisory = "Search is still being set up. Requests are sorted on our side for now, so the list may load a little slower."

type RequestUseCase struct {
	requestRepo repository.RequestRepository
	userRepo    repository.UserRepository
	retry       retry.Policy
	now         clock

	advised sync.Map
}

func NewRequestUseCase(
	requestRepo repository.RequestRepository,
	userRepo repository.UserRepository,
	policy retry.Policy,
) *RequestUseCase {
	return &RequestUseCase{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		retry:       policy,
		now:         time.Now,
	}
}

type CreateRequestInput struct {
	Category      string
	Description   string
	EstimatedTime int
}

type BrowseFilter struct {
	Category         string
	MaxEstimatedTime int
}

type BrowseResult struct {
	Requests []*entity.Request `json:"requests"`
	Advisory string            `json:"advisory,omitempty"`
}

func (uc *RequestUseCase) Create(ctx context.Context, requesterID string, input CreateRequestInput) (*entity.Request, error) {
	if !entity.ValidCategory(input.Category) {
		return nil, errors.Validation("Category must be one of: " + strings.Join(entity.Categories, ", "))
	}
	if !entity.ValidEstimatedTime(input.EstimatedTime) {
		return nil, errors.Validation("Estimated time must be 10, 15, 30 or 60 minutes")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, errors.Validation("Description is required")
	}

	requester, err := uc.userRepo.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.ProfileSet {
		return nil, errors.Forbidden("Complete your profile before posting a request", nil)
	}

	req := &entity.Request{
		RequesterID:   requesterID,
		Category:      input.Category,
		Description:   description,
		EstimatedTime: input.EstimatedTime,
		Status:        entity.RequestStatusOpen,
		CreatedAt:     uc.now(),
	}

	err = uc.retry.Do(ctx, "CreateRequest", func(ctx context.Context) error {
		return uc.requestRepo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	if err := uc.userRepo.IncrementCounter(ctx, requesterID, entity.CounterRequestsMade, 1); err != nil {
		logger.BestEffort("increment requestsMade", requesterID, err)
	}

	logger.Info("Request %s created by %s", req.ID, requesterID)
	return req, nil
}

// Browse lists open and in-progress requests, newest first.
func (uc *RequestUseCase) Browse(ctx context.Context, userID string, filter BrowseFilter) (*BrowseResult, error) {
	result := &BrowseResult{}

	requests, err := uc.requestRepo.ListBrowsable(ctx)
	if err != nil {
		if !repository.IsIndexNotReady(err) {
			return nil, err
		}

		logger.Warn("Browse index not ready, falling back to unordered query: %v", err)
		all, err := uc.requestRepo.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		requests = requests[:0]
		for _, req := range all {
			if req.IsBrowsable() {
				requests = append(requests, req)
			}
		}
		sortNewestFirst(requests)

		if _, seen := uc.advised.LoadOrStore(userID, true); !seen {
			result.Advisory = IndexBuildingAdvisory
		}
	}

	result.Requests = applyFilter(requests, filter)
	return result, nil
}

// ListMine returns the requester's own requests in every status.
func (uc *RequestUseCase) ListMine(ctx context.Context, requesterID string) ([]*entity.Request, error) {
	requests, err := uc.requestRepo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(requests)
	return requests, nil
}

func (uc *RequestUseCase) Get(ctx context.Context, requestID string) (*entity.Request, error) {
	return uc.requestRepo.GetByID(ctx, requestID)
}

func applyFilter(requests []*entity.Request, filter BrowseFilter) []*entity.Request {
	filtered := make([]*entity.Request, 0, len(requests))
	for _, req := range requests {
		if filter.Category != "" && req.Category != filter.Category {
			continue
		}
		if filter.MaxEstimatedTime > 0 && req.EstimatedTime > filter.MaxEstimatedTime {
			continue
		}
		filtered = append(filtered, req)
	}
	return filtered
}

func sortNewestFirst(requests []*entity.Request) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}
