package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"

	"github.com/lib/pq"
)

// PostgresStore serializes per-event work with SELECT ... FOR UPDATE on the
// event row.
type PostgresStore struct {
	db *database.DB
}

func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func NewRepositories(q database.Querier) Repos {
	return Repos{
		Events:     NewEventRepository(q),
		Bookings:   NewBookingRepository(q),
		Waitlist:   NewWaitlistRepository(q),
		Tickets:    NewTicketRepository(q),
		Users:      NewUserRepository(q),
		Organizers: NewOrganizerRepository(q),
	}
}

func (s *PostgresStore) Repos() Repos {
	return NewRepositories(s.db)
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(r Repos) error) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(NewRepositories(tx))
	})
}

func (s *PostgresStore) WithEventLock(ctx context.Context, eventID int64, fn func(r Repos, ev *models.Event) error) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ev := &models.Event{}
		query := `
			SELECT id, organizer_id, title, capacity, confirmed_count, starts_at, created_at
			FROM events
			WHERE id = $1
			FOR UPDATE`

		err := tx.QueryRowContext(ctx, query, eventID).Scan(
			&ev.ID,
			&ev.OrganizerID,
			&ev.Title,
			&ev.Capacity,
			&ev.ConfirmedCount,
			&ev.StartsAt,
			&ev.CreatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFoundf("event %d", eventID)
		}
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}

		return fn(NewRepositories(tx), ev)
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFoundf(format, args...)
	}
	return err
}
