package analytics_test

import (
	"context"
	"testing"
	"time"

	"coa-registry/internal/analytics"
	"coa-registry/internal/apperr"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var (
	owner   = models.Actor{UserID: "artist-1", Role: models.RoleArtist}
	other   = models.Actor{UserID: "artist-2", Role: models.RoleArtist}
	staffer = models.Actor{UserID: "staff-1", Role: models.RoleReviewer}
)

func seed(t *testing.T) (*analytics.Service, string) {
	ctx := context.Background()
	bunDB, err := database.OpenSQLite(ctx, "analytics_"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { bunDB.Close() })

	day1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	event := &models.Event{
		ID: uuid.NewString(), Slug: "wondercon-aaaaaa", ArtistName: "A", ArtistID: owner.UserID,
		Name: "WonderCon", Location: "Anaheim", StartDate: day1, EndDate: day2, IsActive: true,
		CreatedAt: day1, UpdatedAt: day1,
	}
	_, err = bunDB.NewInsert().Model(event).Exec(ctx)
	require.NoError(t, err)

	insert := func(status models.RequestStatus, at time.Time) {
		_, err := bunDB.NewInsert().Model(&models.CoaRequest{
			ID: uuid.NewString(), Status: status, ComicTitle: "Hellboy", IssueNumber: "1",
			CollectorID: "c", EventID: event.ID, CreatedAt: at,
		}).Exec(ctx)
		require.NoError(t, err)
	}
	insert(models.StatusApproved, day1)
	insert(models.StatusRejected, day1.Add(time.Hour))
	insert(models.StatusPending, day2)
	insert(models.StatusApproved, day2.Add(time.Hour))

	certificate(t, bunDB, event.ID, models.CertificateActive)
	certificate(t, bunDB, event.ID, models.CertificateRevoked)

	return analytics.NewService(analytics.NewDB(bunDB), logger.Discard()), event.ID
}

func certificate(t *testing.T, bunDB *bun.DB, eventID string, status models.CertificateStatus) {
	now := time.Now().UTC()
	_, err := bunDB.NewInsert().Model(&models.Certificate{
		ID: uuid.NewString(), QRID: uuid.NewString()[:12], ComicTitle: "Hellboy", IssueNumber: "1",
		SignerName: "A", SignedDate: now, Status: status, EventID: eventID, CreatedAt: now, UpdatedAt: now,
	}).Exec(context.Background())
	require.NoError(t, err)
}

func TestGetEventStats(t *testing.T) {
	svc, eventID := seed(t)

	stats, err := svc.GetEventStats(context.Background(), owner, eventID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Certificates)
	assert.Equal(t, []models.DailySubmitted{
		{Date: "2025-03-01", Submitted: 2, Approved: 1},
		{Date: "2025-03-02", Submitted: 2, Approved: 1},
	}, stats.Daily)
}

func TestGetEventStats_Access(t *testing.T) {
	svc, eventID := seed(t)
	ctx := context.Background()

	_, err := svc.GetEventStats(ctx, other, eventID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.GetEventStats(ctx, models.Actor{UserID: "collector"}, eventID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.GetEventStats(ctx, staffer, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.GetEventStats(ctx, staffer, eventID)
	assert.NoError(t, err)
}

func TestGetBatchEventStats(t *testing.T) {
	svc, eventID := seed(t)
	ctx := context.Background()

	mine, err := svc.GetBatchEventStats(ctx, owner, nil)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, eventID, mine[0].EventID)

	none, err := svc.GetBatchEventStats(ctx, other, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.GetBatchEventStats(ctx, other, []string{eventID})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.GetBatchEventStats(ctx, staffer, nil)
	_, ok := apperr.AsValidation(err)
	assert.True(t, ok)
}
