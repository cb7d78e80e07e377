package analytics

import (
	"context"
	"fmt"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
)

// maxBatchEvents caps a single batch stats call.
const maxBatchEvents = 50

type StatsDBLayer interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetStatusCountsByEventID(ctx context.Context, eventID string) ([]StatusCount, error)
	GetActiveCertificateCountByEventID(ctx context.Context, eventID string) (int, error)
	GetRequestActivityByEventID(ctx context.Context, eventID string) ([]RequestActivity, error)
	GetEventIDsByArtist(ctx context.Context, artistID string) ([]string, error)
}

// Service handles analytics operations
type Service struct {
	db     StatsDBLayer
	logger *logger.Logger
}

// NewService creates a new analytics service
func NewService(db StatsDBLayer, log *logger.Logger) *Service {
	return &Service{db: db, logger: log}
}

// authorize lets staff read any event and artists read their own.
func (s *Service) authorize(ctx context.Context, actor models.Actor, eventID string) error {
	if err := auth.EnsureArtistOrStaff(actor); err != nil {
		return err
	}

	event, err := s.db.GetEvent(ctx, eventID)
	if database.IsNoRows(err) {
		return apperr.NotFound("event", eventID)
	}
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if !auth.IsStaff(actor.Role) && event.ArtistID != actor.UserID {
		return apperr.Forbidden("event belongs to another artist")
	}
	return nil
}

// GetEventStats returns the request breakdown for one event
func (s *Service) GetEventStats(ctx context.Context, actor models.Actor, eventID string) (*models.EventRequestStats, error) {
	if err := s.authorize(ctx, actor, eventID); err != nil {
		return nil, err
	}
	return s.eventStats(ctx, eventID)
}

func (s *Service) eventStats(ctx context.Context, eventID string) (*models.EventRequestStats, error) {
	stats := &models.EventRequestStats{EventID: eventID, Daily: []models.DailySubmitted{}}

	counts, err := s.db.GetStatusCountsByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests for %s: %w", eventID, err)
	}
	for _, c := range counts {
		stats.Total += c.Count
		switch c.Status {
		case models.StatusPending:
			stats.Pending = c.Count
		case models.StatusApproved:
			stats.Approved = c.Count
		case models.StatusRejected:
			stats.Rejected = c.Count
		}
	}

	stats.Certificates, err = s.db.GetActiveCertificateCountByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count certificates for %s: %w", eventID, err)
	}

	activity, err := s.db.GetRequestActivityByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request activity for %s: %w", eventID, err)
	}
	stats.Daily = bucketByDay(activity)

	s.logger.Debug("ANALYTICS", fmt.Sprintf("Stats for %s: %d requests, %d certificates", eventID, stats.Total, stats.Certificates))
	return stats, nil
}

// bucketByDay groups activity by UTC submission date, preserving order.
func bucketByDay(activity []RequestActivity) []models.DailySubmitted {
	daily := []models.DailySubmitted{}
	index := map[string]int{}
	for _, a := range activity {
		day := a.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(daily)
			index[day] = i
			daily = append(daily, models.DailySubmitted{Date: day})
		}
		daily[i].Submitted++
		if a.Status == models.StatusApproved {
			daily[i].Approved++
		}
	}
	return daily
}

// GetBatchEventStats returns stats for several events at once. An empty list
// means every event the artist owns; staff must name the events.
func (s *Service) GetBatchEventStats(ctx context.Context, actor models.Actor, eventIDs []string) ([]models.EventRequestStats, error) {
	if err := auth.EnsureArtistOrStaff(actor); err != nil {
		return nil, err
	}

	if len(eventIDs) == 0 {
		if auth.IsStaff(actor.Role) {
			return nil, apperr.NewValidation("event_ids", "is required")
		}
		ids, err := s.db.GetEventIDsByArtist(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to list events for %s: %w", actor.UserID, err)
		}
		eventIDs = ids
	}
	if len(eventIDs) > maxBatchEvents {
		return nil, apperr.NewValidation("event_ids", fmt.Sprintf("at most %d events per call", maxBatchEvents))
	}

	results := make([]models.EventRequestStats, 0, len(eventIDs))
	for _, id := range eventIDs {
		if err := s.authorize(ctx, actor, id); err != nil {
			return nil, err
		}
		stats, err := s.eventStats(ctx, id)
		if err != nil {
			return nil, err
		}
		results = append(results, *stats)
	}
	return results, nil
}
