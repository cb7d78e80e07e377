package events

import (
	"context"
	"fmt"
	"time"

	"coa-registry/internal/apperr"
	"coa-registry/internal/auth"
	"coa-registry/internal/database"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/qr"
	"coa-registry/internal/utils"
)

const maxSlugAttempts = 3

type EventDBLayer interface {
	CreateEvent(ctx context.Context, event models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
	ListEvents(ctx context.Context, artistID string) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) error
	SetActive(ctx context.Context, id string, active bool) (int64, error)
	DeleteEvent(ctx context.Context, id string) (int64, error)
}

type EventService struct {
	DB     EventDBLayer
	QR     *qr.Generator
	Logger *logger.Logger
}

func NewEventService(db EventDBLayer, qrGen *qr.Generator, log *logger.Logger) *EventService {
	return &EventService{DB: db, QR: qrGen, Logger: log}
}

func sanitizeEventInput(in *models.EventInput) {
	in.Name = utils.SanitizeText(in.Name)
	in.ArtistName = utils.SanitizeText(in.ArtistName)
	in.Location = utils.SanitizeText(in.Location)
}

// CreateEvent registers an event. Staff may create events for any artist;
// an artist's events always belong to that artist.
func (s *EventService) CreateEvent(ctx context.Context, actor models.Actor, in models.EventInput) (*models.Event, error) {
	if err := auth.EnsureArtistOrStaff(actor); err != nil {
		return nil, err
	}

	sanitizeEventInput(&in)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	event := models.Event{
		ID:         utils.GenerateUUID(),
		Name:       in.Name,
		ArtistName: in.ArtistName,
		ArtistID:   in.ArtistID,
		Location:   in.Location,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.IsActive != nil {
		event.IsActive = *in.IsActive
	}

	if !auth.IsStaff(actor.Role) {
		event.ArtistID = actor.UserID
		if event.ArtistName == "" {
			event.ArtistName = utils.SanitizeText(actor.DisplayName)
		}
		if event.ArtistName == "" {
			event.ArtistName = actor.Email
		}
	}
	if event.ArtistName == "" {
		return nil, apperr.NewValidation("artist_name", "is required")
	}

	for attempt := 1; ; attempt++ {
		slug, err := utils.EventSlug(event.Name)
		if err != nil {
			return nil, err
		}
		event.Slug = slug

		err = s.DB.CreateEvent(ctx, event)
		if err == nil {
			break
		}
		if database.IsUniqueViolation(err) && attempt < maxSlugAttempts {
			s.Logger.Warn("EVENTS", fmt.Sprintf("Slug collision on %s, retrying", slug))
			continue
		}
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.Logger.Info("EVENTS", fmt.Sprintf("Event %s (%s) created by %s", event.ID, event.Slug, actor.UserID))
	return &event, nil
}

// loadManaged returns the event if actor is staff or the owning artist.
func (s *EventService) loadManaged(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	if err := auth.EnsureArtistOrStaff(actor); err != nil {
		return nil, err
	}

	event, err := s.DB.GetEvent(ctx, id)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", id, err)
	}

	if !auth.IsStaff(actor.Role) && event.ArtistID != actor.UserID {
		return nil, apperr.Forbidden("event belongs to another artist")
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, actor models.Actor, id string) (*models.Event, error) {
	return s.loadManaged(ctx, actor, id)
}

// UpdateEvent changes everything but the slug.
func (s *EventService) UpdateEvent(ctx context.Context, actor models.Actor, id string, in models.EventInput) (*models.Event, error) {
	event, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	sanitizeEventInput(&in)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	event.Name = in.Name
	event.Location = in.Location
	event.StartDate = in.StartDate
	event.EndDate = in.EndDate
	if in.ArtistName != "" {
		event.ArtistName = in.ArtistName
	}
	if auth.IsStaff(actor.Role) {
		event.ArtistID = in.ArtistID
	}
	if in.IsActive != nil {
		event.IsActive = *in.IsActive
	}
	event.UpdatedAt = time.Now().UTC()

	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", id, err)
	}
	return event, nil
}

func (s *EventService) SetActive(ctx context.Context, actor models.Actor, id string, active bool) (*models.Event, error) {
	event, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.DB.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", id, err)
	}
	event.IsActive = active

	s.Logger.Info("EVENTS", fmt.Sprintf("Event %s active=%t by %s", id, active, actor.UserID))
	return event, nil
}

// DeleteEvent hard-deletes an event. Requests and certificates that reference
// it are kept and keep the dangling id.
func (s *EventService) DeleteEvent(ctx context.Context, actor models.Actor, id string) error {
	if err := auth.EnsureStaff(actor); err != nil {
		return err
	}

	rows, err := s.DB.DeleteEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	if rows == 0 {
		return apperr.NotFound("event", id)
	}

	s.Logger.Warn("EVENTS", fmt.Sprintf("Event %s deleted by %s", id, actor.UserID))
	return nil
}

// ListEvents returns all events for staff and the caller's own for artists.
func (s *EventService) ListEvents(ctx context.Context, actor models.Actor) ([]models.Event, error) {
	if err := auth.EnsureArtistOrStaff(actor); err != nil {
		return nil, err
	}

	artistID := ""
	if !auth.IsStaff(actor.Role) {
		artistID = actor.UserID
	}
	events, err := s.DB.ListEvents(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *EventService) PublicEvent(ctx context.Context, slug string) (*models.PublicEvent, error) {
	event, err := s.DB.GetEventBySlug(ctx, slug)
	if database.IsNoRows(err) {
		return nil, apperr.NotFound("event", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", slug, err)
	}
	public := event.Public()
	return &public, nil
}

// EventQR renders the QR code linking to the event's public page.
func (s *EventService) EventQR(ctx context.Context, slug string) ([]byte, error) {
	if _, err := s.PublicEvent(ctx, slug); err != nil {
		return nil, err
	}
	return s.QR.EventPNG(slug)
}
