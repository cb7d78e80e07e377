package coa

import (
	"context"
	"fmt"
	"time"

	"coa-registry/internal/database"
	"coa-registry/internal/models"
)

// SweepIntents reconciles issuance intents left open for longer than
// olderThan:
//   - no certificate: the transaction never committed, abandon the intent
//   - certificate referenced by its request: complete the intent
//   - certificate not referenced: revoke it as an orphan and abandon the intent
func (w *Workflow) SweepIntents(ctx context.Context, olderThan time.Duration) (*models.SweepReport, error) {
	intents, err := w.DB.ListOpenIntents(ctx, w.now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to list open intents: %w", err)
	}

	report := &models.SweepReport{}
	for _, intent := range intents {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Examined++

		cert, err := w.DB.GetCertificate(ctx, intent.CertificateID)
		if database.IsNoRows(err) {
			if err := w.DB.ResolveIntent(ctx, intent.ID, models.IntentAbandoned, "certificate never committed"); err != nil {
				return report, fmt.Errorf("failed to abandon intent %s: %w", intent.ID, err)
			}
			report.Abandoned++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to load certificate %s: %w", intent.CertificateID, err)
		}

		req, err := w.DB.GetRequest(ctx, intent.RequestID)
		if err != nil && !database.IsNoRows(err) {
			return report, fmt.Errorf("failed to load request %s: %w", intent.RequestID, err)
		}
		if req != nil && req.IssuedCoaID == cert.ID {
			if err := w.DB.ResolveIntent(ctx, intent.ID, models.IntentCompleted, "reconciled by sweep"); err != nil {
				return report, fmt.Errorf("failed to complete intent %s: %w", intent.ID, err)
			}
			report.Completed++
			continue
		}

		if err := w.DB.RevokeCertificate(ctx, cert.ID, OrphanedIssuanceReason); err != nil {
			return report, fmt.Errorf("failed to revoke orphan %s: %w", cert.QRID, err)
		}
		if w.Cache != nil {
			w.Cache.Invalidate(ctx, cert.QRID)
		}
		if err := w.DB.ResolveIntent(ctx, intent.ID, models.IntentAbandoned, OrphanedIssuanceReason); err != nil {
			return report, fmt.Errorf("failed to abandon intent %s: %w", intent.ID, err)
		}
		report.Abandoned++
		report.Orphaned = append(report.Orphaned, cert.QRID)

		w.Logger.Warn("SWEEP", fmt.Sprintf("Revoked orphaned certificate %s for request %s", cert.QRID, intent.RequestID))
		if err := w.publish(ctx, models.WorkflowEvent{
			Type:      models.EventCertificateRevoked,
			RequestID: intent.RequestID,
			EventID:   cert.EventID,
			QRID:      cert.QRID,
		}); err != nil {
			w.Logger.Warn("SWEEP", fmt.Sprintf("Failed to publish revocation of %s: %v", cert.QRID, err))
		}
	}

	if report.Examined > 0 {
		w.Logger.Info("SWEEP", fmt.Sprintf("Examined %d intents: %d completed, %d abandoned, %d orphaned",
			report.Examined, report.Completed, report.Abandoned, len(report.Orphaned)))
	}
	return report, nil
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (w *Workflow) RunSweeper(ctx context.Context, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.SweepIntents(ctx, olderThan); err != nil && ctx.Err() == nil {
				w.Logger.Error("SWEEP", fmt.Sprintf("Sweep failed: %v", err))
			}
		}
	}
}
