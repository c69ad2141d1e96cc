package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
	"tickethub/internal/repository"
)

// EventService gives read access to events and answers ownership questions
// for the other services.
type EventService struct {
	store repository.Store
}

func NewEventService(store repository.Store) *EventService {
	return &EventService{store: store}
}

func (s *EventService) Create(ctx context.Context, organizerID int64, title string, capacity int, startsAt time.Time) (*models.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.Invalidf("title is required")
	}
	if capacity < 0 {
		return nil, apperrors.Invalidf("capacity must not be negative")
	}

	r := s.store.Repos()
	organizer, err := r.Organizers.GetByID(ctx, organizerID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Invalidf("organizer %d does not exist", organizerID)
		}
		return nil, fmt.Errorf("failed to load organizer: %w", err)
	}
	if organizer.IsDeleted {
		return nil, apperrors.Invalidf("organizer %d is deleted", organizerID)
	}

	event := &models.Event{
		OrganizerID: organizerID,
		Title:       title,
		Capacity:    capacity,
		StartsAt:    startsAt,
	}
	if err := r.Events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

func (s *EventService) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	if eventID <= 0 {
		return nil, apperrors.Invalidf("invalid event id %d", eventID)
	}
	return s.store.Repos().Events.GetByID(ctx, eventID)
}

// Authorize loads the event and checks that the caller is its organizer or
// an admin.
func (s *EventService) Authorize(ctx context.Context, caller *models.Caller, eventID int64) (*models.Event, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrganizer(event.OrganizerID) {
		return nil, fmt.Errorf("%w: event %d belongs to another organizer", apperrors.ErrForbidden, eventID)
	}
	return event, nil
}

func (s *EventService) ListByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error) {
	events, err := s.store.Repos().Events.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
