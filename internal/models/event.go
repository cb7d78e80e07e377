package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID         string    `bun:"id,pk" json:"id"`
	Slug       string    `bun:"slug,unique,notnull" json:"slug"`
	ArtistName string    `bun:"artist_name,notnull" json:"artist_name"`
	ArtistID   string    `bun:"artist_id,nullzero" json:"artist_id,omitempty"`
	Name       string    `bun:"name,notnull" json:"name"`
	Location   string    `bun:"location,notnull" json:"location"`
	StartDate  time.Time `bun:"start_date,notnull" json:"start_date"`
	EndDate    time.Time `bun:"end_date,notnull" json:"end_date"`
	IsActive   bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// EventInput is the create/update payload. ArtistID is only honored for staff.
type EventInput struct {
	Name       string    `json:"name" validate:"required,max=200"`
	ArtistName string    `json:"artist_name" validate:"max=200"`
	ArtistID   string    `json:"artist_id" validate:"max=128"`
	Location   string    `json:"location" validate:"required,max=300"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	IsActive   *bool     `json:"is_active"`
}

type PublicEvent struct {
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	ArtistName string    `json:"artist_name"`
	Location   string    `json:"location"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	IsActive   bool      `json:"is_active"`
}

func (e *Event) Public() PublicEvent {
	return PublicEvent{
		Slug:       e.Slug,
		Name:       e.Name,
		ArtistName: e.ArtistName,
		Location:   e.Location,
		StartDate:  e.StartDate,
		EndDate:    e.EndDate,
		IsActive:   e.IsActive,
	}
}
