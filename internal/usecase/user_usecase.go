package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"helphand/internal/domain/entity"
	"helphand/internal/domain/repository"
	"helphand/pkg/errors"
	"helphand/pkg/logger"
)

type UserUseCase struct {
	userRepo repository.UserRepository
	now      clock
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		now:      time.Now,
	}
}

type ProfileInput struct {
	DisplayName string
	Age         int
	Gender      string
}

type UserStats struct {
	UserID         string `json:"user_id"`
	DisplayName    string `json:"display_name"`
	Trophies       int    `json:"trophies"`
	RequestsMade   int    `json:"requests_made"`
	RequestsHelped int    `json:"requests_helped"`
}

// Register creates the profile document for a freshly signed-up account.
// Counters start at zero and the profile stays incomplete until onboarding.
func (uc *UserUseCase) Register(ctx context.Context, userID, email string) (*entity.User, error) {
	now := uc.now()
	user := &entity.User{
		ID:        userID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info("User registered: %s", userID)
	return user, nil
}

// CompleteProfile stores the onboarding form and unlocks the rest of the app.
func (uc *UserUseCase) CompleteProfile(ctx context.Context, userID string, input ProfileInput) (*entity.User, error) {
	if err := validateProfile(input); err != nil {
		return nil, err
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.DisplayName = strings.TrimSpace(input.DisplayName)
	user.Age = input.Age
	user.Gender = input.Gender
	user.ProfileSet = true
	user.UpdatedAt = uc.now()

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, errors.Internal("Failed to update user profile", err)
	}

	return user, nil
}

func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *UserUseCase) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		UserID:         user.ID,
		DisplayName:    user.DisplayName,
		Trophies:       user.Trophies,
		RequestsMade:   user.RequestsMade,
		RequestsHelped: user.RequestsHelped,
	}, nil
}

func validateProfile(input ProfileInput) error {
	if strings.TrimSpace(input.DisplayName) == "" {
		return errors.Validation("Display name is required")
	}
	if input.Age < entity.MinimumAge {
		return errors.Validation(fmt.Sprintf("You must be at least %d years old to use HelpHand", entity.MinimumAge))
	}
	if input.Age > entity.MaximumAge {
		return errors.Validation("Please enter a valid age")
	}
	for _, g := range entity.Genders {
		if g == input.Gender {
			return nil
		}
	}
	return errors.Validation("Gender must be one of: " + strings.Join(entity.Genders, ", "))
}
