package coa_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coa-registry/internal/apperr"
	coadb "coa-registry/internal/coa/db"
	coa "coa-registry/internal/coa/service"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitLostDB commits the issuance but reports the outcome as unknown, the
// way a dropped connection during COMMIT looks to the caller.
type commitLostDB struct {
	*coadb.DB
}

func (d commitLostDB) IssueCertificate(ctx context.Context, cert models.Certificate, reviewerID string, reviewedAt time.Time) error {
	if err := d.DB.IssueCertificate(ctx, cert, reviewerID, reviewedAt); err != nil {
		return err
	}
	return fmt.Errorf("%w: connection reset by peer", database.ErrCommitUnknown)
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, qrID string) {
	c.invalidated = append(c.invalidated, qrID)
}

func (f *fixture) intents(t *testing.T) map[string]models.IssuanceIntent {
	var list []models.IssuanceIntent
	require.NoError(t, f.bun.NewSelect().Model(&list).Scan(context.Background()))
	out := make(map[string]models.IssuanceIntent, len(list))
	for _, i := range list {
		out[i.ID] = i
	}
	return out
}

func (f *fixture) ageIntents(t *testing.T, by time.Duration) {
	_, err := f.bun.NewUpdate().
		Model((*models.IssuanceIntent)(nil)).
		Set("created_at = ?", time.Now().UTC().Add(-by)).
		Where("1 = 1").
		Exec(context.Background())
	require.NoError(t, err)
}

func TestApprove_CommitUnknownLeavesIntentOpen(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	req := f.submit(t, f.event(t, true).ID, spiderMan())

	f.workflow.DB = commitLostDB{DB: &coadb.DB{Bun: f.bun}}
	cert, err := f.workflow.ApproveRequest(ctx, reviewer, req.ID)
	df, ok := apperr.AsDependencyFailure(err)
	require.True(t, ok, "got %v", err)
	require.NotNil(t, cert)
	assert.Contains(t, df.Completed, cert.QRID)

	intents := f.intents(t)
	require.Len(t, intents, 1)
	for _, i := range intents {
		assert.Equal(t, models.IntentOpen, i.Status)
	}

	// The commit did land, so the sweep closes the intent without revoking.
	f.workflow.DB = &coadb.DB{Bun: f.bun}
	f.ageIntents(t, time.Hour)
	report, err := f.workflow.SweepIntents(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Completed)
	assert.Empty(t, report.Orphaned)

	var stored models.Certificate
	require.NoError(t, f.bun.NewSelect().Model(&stored).Where("id = ?", cert.ID).Scan(ctx))
	assert.Equal(t, models.CertificateActive, stored.Status)
}

func TestSweep_MissingCertificateAbandonsIntent(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	req := f.submit(t, f.event(t, true).ID, spiderMan())

	intent := models.IssuanceIntent{
		ID:            uuid.NewString(),
		RequestID:     req.ID,
		CertificateID: uuid.NewString(),
		QRID:          "AbCdEfGh1234",
		Status:        models.IntentOpen,
		CreatedAt:     time.Now().UTC().Add(-time.Hour),
	}
	_, err := f.bun.NewInsert().Model(&intent).Exec(ctx)
	require.NoError(t, err)

	report, err := f.workflow.SweepIntents(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Abandoned)
	assert.Equal(t, models.IntentAbandoned, f.intents(t)[intent.ID].Status)
	assert.Equal(t, models.StatusPending, f.load(t, req.ID).Status)
}

func TestSweep_RevokesOrphanedCertificate(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	cache := &recordingCache{}
	f.workflow.Cache = cache
	event := f.event(t, true)
	req := f.submit(t, event.ID, spiderMan())

	now := time.Now().UTC()
	orphan := models.Certificate{
		ID:              uuid.NewString(),
		QRID:            "Orphan123456",
		ComicTitle:      req.ComicTitle,
		IssueNumber:     req.IssueNumber,
		SignerName:      event.ArtistName,
		SignedDate:      event.StartDate,
		Status:          models.CertificateActive,
		SourceRequestID: req.ID,
		EventID:         event.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := f.bun.NewInsert().Model(&orphan).Exec(ctx)
	require.NoError(t, err)
	intent := models.IssuanceIntent{
		ID:            uuid.NewString(),
		RequestID:     req.ID,
		CertificateID: orphan.ID,
		QRID:          orphan.QRID,
		Status:        models.IntentOpen,
		CreatedAt:     now.Add(-time.Hour),
	}
	_, err = f.bun.NewInsert().Model(&intent).Exec(ctx)
	require.NoError(t, err)

	report, err := f.workflow.SweepIntents(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan.QRID}, report.Orphaned)
	assert.Equal(t, []string{orphan.QRID}, cache.invalidated)

	var stored models.Certificate
	require.NoError(t, f.bun.NewSelect().Model(&stored).Where("id = ?", orphan.ID).Scan(ctx))
	assert.Equal(t, models.CertificateRevoked, stored.Status)
	assert.Equal(t, coa.OrphanedIssuanceReason, stored.RevokedReason)
	assert.Equal(t, models.IntentAbandoned, f.intents(t)[intent.ID].Status)
	assert.Contains(t, f.publisher.types(), models.EventCertificateRevoked)

	// The request can still be approved afterwards.
	_, err = f.workflow.ApproveRequest(ctx, reviewer, req.ID)
	assert.NoError(t, err)
}

func TestSweep_IgnoresRecentIntents(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	req := f.submit(t, f.event(t, true).ID, spiderMan())

	f.workflow.DB = commitLostDB{DB: &coadb.DB{Bun: f.bun}}
	_, err := f.workflow.ApproveRequest(ctx, reviewer, req.ID)
	require.Error(t, err)
	f.workflow.DB = &coadb.DB{Bun: f.bun}

	report, err := f.workflow.SweepIntents(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, report.Examined)
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	f := setup(t, false)
	f.workflow.Logger = logger.Discard()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.workflow.RunSweeper(ctx, 10*time.Millisecond, time.Minute)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
