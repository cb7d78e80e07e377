package onboarding_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coa-registry/internal/apperr"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	onboardingdb "coa-registry/internal/onboarding/db"
	onboarding "coa-registry/internal/onboarding/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var (
	applicant = models.Actor{UserID: "user-1", Email: "u1@example.com"}
	admin     = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
)

func setup(t *testing.T) (*onboarding.OnboardingService, *bun.DB) {
	ctx := context.Background()
	bunDB, err := database.OpenSQLite(ctx, "onboarding_"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	now := time.Now().UTC()
	_, err = bunDB.NewInsert().Model(&models.Profile{
		ID: applicant.UserID, Email: applicant.Email, CreatedAt: now, UpdatedAt: now,
	}).Exec(ctx)
	require.NoError(t, err)

	return onboarding.NewOnboardingService(&onboardingdb.DB{Bun: bunDB}, nil, logger.Discard()), bunDB
}

func roleOf(t *testing.T, bunDB *bun.DB, id string) models.Role {
	var p models.Profile
	require.NoError(t, bunDB.NewSelect().Model(&p).Where("id = ?", id).Scan(context.Background()))
	return p.Role
}

func application() models.ArtistRequestInput {
	return models.ArtistRequestInput{FullName: "Sam Inker", PortfolioURL: "https://portfolio.example.com/sam"}
}

func TestApproveSetsStatusAndRole(t *testing.T) {
	svc, bunDB := setup(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, applicant, application())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)

	reviewed, err := svc.Review(ctx, admin, req.ID, models.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, reviewed.Status)
	assert.Equal(t, admin.UserID, reviewed.ReviewedBy)
	assert.Equal(t, models.RoleArtist, roleOf(t, bunDB, applicant.UserID))

	_, err = svc.Review(ctx, admin, req.ID, models.DecisionReject)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestRejectLeavesRoleAlone(t *testing.T) {
	svc, bunDB := setup(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, applicant, application())
	require.NoError(t, err)

	reviewed, err := svc.Review(ctx, admin, req.ID, models.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, reviewed.Status)
	assert.Equal(t, models.RoleCollector, roleOf(t, bunDB, applicant.UserID))

	// A rejected applicant may apply again.
	_, err = svc.Submit(ctx, applicant, application())
	assert.NoError(t, err)
}

func TestSubmitGuards(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, models.Actor{}, application())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = svc.Submit(ctx, models.Actor{UserID: "a", Role: models.RoleArtist}, application())
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.Submit(ctx, models.Actor{UserID: "r", Role: models.RoleReviewer}, application())
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.Submit(ctx, applicant, models.ArtistRequestInput{FullName: "x", PortfolioURL: "not a url"})
	ve, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Contains(t, ve.Fields, "portfolio_url")

	_, err = svc.Submit(ctx, applicant, application())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, applicant, application())
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	mine, err := svc.ListMine(ctx, applicant)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestReviewGuards(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	req, err := svc.Submit(ctx, applicant, application())
	require.NoError(t, err)

	_, err = svc.Review(ctx, models.Actor{UserID: "artist", Role: models.RoleArtist}, req.ID, models.DecisionApprove)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Review(ctx, admin, req.ID, "maybe")
	_, ok := apperr.AsValidation(err)
	assert.True(t, ok)

	_, err = svc.Review(ctx, admin, "missing", models.DecisionApprove)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	list, err := svc.List(ctx, admin, models.StatusPending)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.List(ctx, applicant, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

type MockArtistRequestDB struct {
	mock.Mock
}

func (m *MockArtistRequestDB) CreateArtistRequest(ctx context.Context, req models.ArtistRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockArtistRequestDB) GetArtistRequest(ctx context.Context, id string) (*models.ArtistRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArtistRequest), args.Error(1)
}

func (m *MockArtistRequestDB) HasPending(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtistRequestDB) ListByUser(ctx context.Context, userID string) ([]models.ArtistRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.ArtistRequest), args.Error(1)
}

func (m *MockArtistRequestDB) ListArtistRequests(ctx context.Context, status models.RequestStatus) ([]models.ArtistRequest, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]models.ArtistRequest), args.Error(1)
}

func (m *MockArtistRequestDB) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockArtistRequestDB) ApproveArtistRequest(ctx context.Context, id, userID, reviewerID string, reviewedAt time.Time) error {
	return m.Called(ctx, id, userID, reviewerID, reviewedAt).Error(0)
}

func (m *MockArtistRequestDB) RejectArtistRequest(ctx context.Context, id, reviewerID string, reviewedAt time.Time) error {
	return m.Called(ctx, id, reviewerID, reviewedAt).Error(0)
}

func TestApprove_CommitUnknownIsDependencyFailure(t *testing.T) {
	mockDB := new(MockArtistRequestDB)
	svc := onboarding.NewOnboardingService(mockDB, nil, logger.Discard())
	ctx := context.Background()

	mockDB.On("GetArtistRequest", ctx, "req-1").
		Return(&models.ArtistRequest{ID: "req-1", UserID: "user-1", Status: models.StatusPending}, nil)
	mockDB.On("GetProfile", ctx, "user-1").Return(&models.Profile{ID: "user-1"}, nil)
	mockDB.On("ApproveArtistRequest", ctx, "req-1", "user-1", admin.UserID, mock.AnythingOfType("time.Time")).
		Return(fmt.Errorf("%w: driver: bad connection", database.ErrCommitUnknown))

	_, err := svc.Review(ctx, admin, "req-1", models.DecisionApprove)
	df, ok := apperr.AsDependencyFailure(err)
	require.True(t, ok)
	assert.Contains(t, df.Error(), "req-1")
	mockDB.AssertExpectations(t)
}

func TestApprove_StaffApplicantRefused(t *testing.T) {
	mockDB := new(MockArtistRequestDB)
	svc := onboarding.NewOnboardingService(mockDB, nil, logger.Discard())
	ctx := context.Background()

	mockDB.On("GetArtistRequest", ctx, "req-2").
		Return(&models.ArtistRequest{ID: "req-2", UserID: "user-2", Status: models.StatusPending}, nil)
	mockDB.On("GetProfile", ctx, "user-2").Return(&models.Profile{ID: "user-2", Role: models.RoleOwner}, nil)

	_, err := svc.Review(ctx, admin, "req-2", models.DecisionApprove)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	mockDB.AssertNotCalled(t, "ApproveArtistRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
