package repository

import (
	"context"
	"fmt"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
)

type eventRepo struct {
	db database.Querier
}

func NewEventRepository(db database.Querier) EventRepository {
	return &eventRepo{db: db}
}

const eventColumns = `id, organizer_id, title, capacity, confirmed_count, starts_at, created_at`

func (r *eventRepo) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (organizer_id, title, capacity, starts_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, confirmed_count, created_at`

	err := r.db.QueryRowContext(ctx, query,
		event.OrganizerID,
		event.Title,
		event.Capacity,
		event.StartsAt,
	).Scan(&event.ID, &event.ConfirmedCount, &event.CreatedAt)
	if isForeignKeyViolation(err) {
		return apperrors.Invalidf("organizer %d does not exist", event.OrganizerID)
	}
	return err
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Capacity,
		&event.ConfirmedCount,
		&event.StartsAt,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "event %d", id)
	}

	return event, nil
}

func (r *eventRepo) ListByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE organizer_id = $1
		ORDER BY starts_at, id`
	return r.list(ctx, query, organizerID)
}

func (r *eventRepo) AdjustConfirmed(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE events
		SET confirmed_count = confirmed_count + $1
		WHERE id = $2
		  AND confirmed_count + $1 BETWEEN 0 AND capacity`

	res, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("adjust confirmed count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if delta > 0 {
			return apperrors.ErrCapacityExceeded
		}
		return fmt.Errorf("%w: confirmed count of event %d would go negative", apperrors.ErrConflict, id)
	}
	return nil
}

func (r *eventRepo) SetCapacity(ctx context.Context, id int64, capacity int) error {
	query := `
		UPDATE events
		SET capacity = $1
		WHERE id = $2 AND confirmed_count <= $1`

	res, err := r.db.ExecContext(ctx, query, capacity, id)
	if err != nil {
		return fmt.Errorf("set capacity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: capacity below confirmed bookings", apperrors.ErrConflict)
	}
	return nil
}

func (r *eventRepo) ListPromotable(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e
		WHERE e.confirmed_count < e.capacity
		  AND EXISTS (
		      SELECT 1 FROM waitlist_entries w
		      WHERE w.event_id = e.id AND NOT w.converted AND NOT w.withdrawn
		  )
		ORDER BY e.id`
	return r.list(ctx, query)
}

func (r *eventRepo) list(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.OrganizerID,
			&event.Title,
			&event.Capacity,
			&event.ConfirmedCount,
			&event.StartsAt,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
