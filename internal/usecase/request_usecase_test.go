package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"helphand/internal/adapter/repository/memory"
	"helphand/internal/domain/entity"
	"helphand/pkg/errors"
)

func TestCreateRequest(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "U1")

	req, err := env.requestUC.Create(env.ctx, "U1", CreateRequestInput{
		Category:      "Editing",
		Description:   "  Proofread my cover letter  ",
		EstimatedTime: 15,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, entity.RequestStatusOpen, req.Status)
	assert.Equal(t, "Proofread my cover letter", req.Description)
	assert.Nil(t, req.HelperID)
	assert.Equal(t, 1, env.user(t, "U1").RequestsMade)
}

func TestCreateRequest_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "U1")
	env.store.PutUser(&entity.User{ID: "U5"})

	tests := []struct {
		name   string
		userID string
		input  CreateRequestInput
		code   string
	}{
		{"unknown category", "U1", CreateRequestInput{Category: "Plumbing", Description: "x", EstimatedTime: 10}, "VALIDATION_ERROR"},
		{"bad duration", "U1", CreateRequestInput{Category: "Artwork", Description: "x", EstimatedTime: 45}, "VALIDATION_ERROR"},
		{"empty description", "U1", CreateRequestInput{Category: "Artwork", Description: " ", EstimatedTime: 10}, "VALIDATION_ERROR"},
		{"no profile", "U5", CreateRequestInput{Category: "Artwork", Description: "x", EstimatedTime: 10}, "FORBIDDEN"},
		{"unknown user", "U9", CreateRequestInput{Category: "Artwork", Description: "x", EstimatedTime: 10}, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.requestUC.Create(env.ctx, tt.userID, tt.input)
			assert.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestCreateRequest_CounterFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "U1")
	env.store.InjectError(memory.FaultIncrement, status.Error(codes.Unavailable, "backend unavailable"))

	req, err := env.requestUC.Create(env.ctx, "U1", CreateRequestInput{
		Category:      "Consulting",
		Description:   "Pricing advice",
		EstimatedTime: 60,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, 0, env.user(t, "U1").RequestsMade)
}

func seedBrowseFixture(t *testing.T, env *testEnv) (open, claimed, done *entity.Request) {
	t.Helper()
	env.seedUser(t, "U1")
	env.seedUser(t, "U2")

	open = env.seedRequest(t, "U1")
	claimed, err := env.requestUC.Create(env.ctx, "U1", CreateRequestInput{
		Category:      "Artwork",
		Description:   "Sketch a logo",
		EstimatedTime: 60,
	})
	require.NoError(t, err)
	done = env.seedRequest(t, "U1")

	_, err = env.chatUC.OpenOrCreate(env.ctx, claimed.ID, "U2")
	require.NoError(t, err)
	result, err := env.chatUC.OpenOrCreate(env.ctx, done.ID, "U2")
	require.NoError(t, err)
	_, err = env.chatUC.Complete(env.ctx, result.Chat.ID, "U1", false)
	require.NoError(t, err)
	return open, claimed, done
}

func TestBrowse_NewestFirstAndFiltered(t *testing.T) {
	env := newTestEnv(t)
	open, claimed, _ := seedBrowseFixture(t, env)

	result, err := env.requestUC.Browse(env.ctx, "U2", BrowseFilter{})
	require.NoError(t, err)
	assert.Empty(t, result.Advisory)
	require.Len(t, result.Requests, 2)
	assert.Equal(t, claimed.ID, result.Requests[0].ID)
	assert.Equal(t, open.ID, result.Requests[1].ID)

	result, err = env.requestUC.Browse(env.ctx, "U2", BrowseFilter{Category: "Artwork"})
	require.NoError(t, err)
	require.Len(t, result.Requests, 1)
	assert.Equal(t, claimed.ID, result.Requests[0].ID)

	result, err = env.requestUC.Browse(env.ctx, "U2", BrowseFilter{MaxEstimatedTime: 30})
	require.NoError(t, err)
	require.Len(t, result.Requests, 1)
	assert.Equal(t, open.ID, result.Requests[0].ID)
}

func TestBrowse_FallbackAdvisesOncePerUser(t *testing.T) {
	env := newTestEnv(t)
	open, claimed, _ := seedBrowseFixture(t, env)
	env.store.DropIndex("requests")

	first, err := env.requestUC.Browse(env.ctx, "U2", BrowseFilter{})
	require.NoError(t, err)
	assert.Equal(t, IndexBuildingAdvisory, first.Advisory)
	require.Len(t, first.Requests, 2)
	assert.Equal(t, claimed.ID, first.Requests[0].ID)
	assert.Equal(t, open.ID, first.Requests[1].ID)

	second, err := env.requestUC.Browse(env.ctx, "U2", BrowseFilter{})
	require.NoError(t, err)
	assert.Empty(t, second.Advisory)
	assert.Len(t, second.Requests, 2)

	other, err := env.requestUC.Browse(env.ctx, "U1", BrowseFilter{})
	require.NoError(t, err)
	assert.Equal(t, IndexBuildingAdvisory, other.Advisory)
}

func TestListMine(t *testing.T) {
	env := newTestEnv(t)
	open, claimed, done := seedBrowseFixture(t, env)

	mine, err := env.requestUC.ListMine(env.ctx, "U1")
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, done.ID, mine[0].ID)
	assert.Equal(t, claimed.ID, mine[1].ID)
	assert.Equal(t, open.ID, mine[2].ID)
	assert.Equal(t, entity.RequestStatusCompleted, mine[0].Status)

	none, err := env.requestUC.ListMine(env.ctx, "U2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
