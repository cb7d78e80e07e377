package coa_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coa-registry/internal/apperr"
	coadb "coa-registry/internal/coa/db"
	"coa-registry/internal/database"
	"coa-registry/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collidingDB fails the first collisions issuance attempts with the error
// PostgreSQL returns for a duplicate qr_id.
type collidingDB struct {
	*coadb.DB
	collisions int
	attempted  []string
}

func (d *collidingDB) IssueCertificate(ctx context.Context, cert models.Certificate, reviewerID string, reviewedAt time.Time) error {
	d.attempted = append(d.attempted, cert.QRID)
	if len(d.attempted) <= d.collisions {
		return fmt.Errorf("failed to insert certificate: %w", &pq.Error{
			Code:       "23505",
			Constraint: "certificates_qr_id_key",
		})
	}
	return d.DB.IssueCertificate(ctx, cert, reviewerID, reviewedAt)
}

func intentsByQRID(intents map[string]models.IssuanceIntent) map[string]models.IssuanceIntent {
	out := make(map[string]models.IssuanceIntent, len(intents))
	for _, i := range intents {
		out[i.QRID] = i
	}
	return out
}

func TestApprove_RetriesOnQRIDCollision(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	req := f.submit(t, f.event(t, true).ID, spiderMan())

	db := &collidingDB{DB: &coadb.DB{Bun: f.bun}, collisions: 1}
	f.workflow.DB = db

	cert, err := f.workflow.ApproveRequest(ctx, reviewer, req.ID)
	require.NoError(t, err)
	require.NotNil(t, cert)

	require.Len(t, db.attempted, 2)
	assert.NotEqual(t, db.attempted[0], db.attempted[1])
	assert.Equal(t, db.attempted[1], cert.QRID)
	assert.Equal(t, 1, f.certificateCount(t))

	stored := f.load(t, req.ID)
	assert.Equal(t, models.StatusApproved, stored.Status)
	assert.Equal(t, cert.ID, stored.IssuedCoaID)

	intents := intentsByQRID(f.intents(t))
	require.Len(t, intents, 2)
	first := intents[db.attempted[0]]
	assert.Equal(t, models.IntentAbandoned, first.Status)
	assert.Equal(t, "qr id collision", first.Note)
	assert.NotNil(t, first.ResolvedAt)
	assert.Equal(t, models.IntentCompleted, intents[cert.QRID].Status)
}

func TestApprove_QRIDCollisionsExhausted(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	req := f.submit(t, f.event(t, true).ID, spiderMan())

	// Three attempts, all colliding.
	db := &collidingDB{DB: &coadb.DB{Bun: f.bun}, collisions: 3}
	f.workflow.DB = db

	cert, err := f.workflow.ApproveRequest(ctx, reviewer, req.ID)
	require.Error(t, err)
	assert.Nil(t, cert)
	assert.True(t, database.IsUniqueViolation(err))
	_, isDependency := apperr.AsDependencyFailure(err)
	assert.False(t, isDependency)

	require.Len(t, db.attempted, 3)
	assert.Equal(t, 0, f.certificateCount(t))
	assert.Equal(t, models.StatusPending, f.load(t, req.ID).Status)

	intents := intentsByQRID(f.intents(t))
	require.Len(t, intents, 3)
	assert.Equal(t, "qr id collision", intents[db.attempted[0]].Note)
	assert.Equal(t, "qr id collision", intents[db.attempted[1]].Note)
	assert.Equal(t, "issuance failed", intents[db.attempted[2]].Note)
	for _, i := range intents {
		assert.Equal(t, models.IntentAbandoned, i.Status)
	}
}
