package repository

import (
	"context"
	"fmt"
	"time"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
)

type waitlistRepo struct {
	db database.Querier
}

func NewWaitlistRepository(db database.Querier) WaitlistRepository {
	return &waitlistRepo{db: db}
}

const waitlistColumns = `w.id, w.event_id, w.requester_email, w.position, w.notified, w.notified_at,
	w.converted, w.converted_at, w.withdrawn, w.withdrawn_at, w.booking_id, w.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanWaitlistEntry(s scanner, entry *models.WaitlistEntry) error {
	return s.Scan(
		&entry.ID,
		&entry.EventID,
		&entry.RequesterEmail,
		&entry.Position,
		&entry.Notified,
		&entry.NotifiedAt,
		&entry.Converted,
		&entry.ConvertedAt,
		&entry.Withdrawn,
		&entry.WithdrawnAt,
		&entry.BookingID,
		&entry.CreatedAt,
	)
}

func (r *waitlistRepo) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (event_id, requester_email, position)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.EventID,
		entry.RequesterEmail,
		entry.Position,
	).Scan(&entry.ID, &entry.CreatedAt)
	if isUniqueViolation(err) {
		return apperrors.ErrDuplicateEntry
	}
	return err
}

func (r *waitlistRepo) GetByID(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	entry := &models.WaitlistEntry{}
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries w WHERE w.id = $1`

	if err := scanWaitlistEntry(r.db.QueryRowContext(ctx, query, id), entry); err != nil {
		return nil, notFoundOr(err, "waitlist entry %d", id)
	}
	return entry, nil
}

func (r *waitlistRepo) FindPending(ctx context.Context, eventID int64, email string) (*models.WaitlistEntry, error) {
	entry := &models.WaitlistEntry{}
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries w
		WHERE w.event_id = $1 AND w.requester_email = $2 AND NOT w.converted AND NOT w.withdrawn`

	if err := scanWaitlistEntry(r.db.QueryRowContext(ctx, query, eventID, email), entry); err != nil {
		return nil, notFoundOr(err, "pending waitlist entry for event %d", eventID)
	}
	return entry, nil
}

func (r *waitlistRepo) MaxPosition(ctx context.Context, eventID int64) (int64, error) {
	var max int64
	query := `SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE event_id = $1`
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(&max)
	return max, err
}

func (r *waitlistRepo) NextPending(ctx context.Context, eventID int64) (*models.WaitlistEntry, error) {
	entry := &models.WaitlistEntry{}
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries w
		WHERE w.event_id = $1 AND NOT w.converted AND NOT w.withdrawn
		ORDER BY w.position
		LIMIT 1`

	if err := scanWaitlistEntry(r.db.QueryRowContext(ctx, query, eventID), entry); err != nil {
		return nil, notFoundOr(err, "pending waitlist entry for event %d", eventID)
	}
	return entry, nil
}

func (r *waitlistRepo) MarkConverted(ctx context.Context, id, bookingID int64, at time.Time) error {
	query := `
		UPDATE waitlist_entries
		SET converted = TRUE, converted_at = $1, booking_id = $2,
		    notified = TRUE, notified_at = COALESCE(notified_at, $1)
		WHERE id = $3 AND NOT converted AND NOT withdrawn`

	res, err := r.db.ExecContext(ctx, query, at, bookingID, id)
	if err != nil {
		return fmt.Errorf("mark waitlist entry converted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrAlreadyConverted
	}
	return nil
}

func (r *waitlistRepo) MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE waitlist_entries
		SET notified = TRUE, notified_at = $1
		WHERE id = $2 AND NOT notified`

	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("mark waitlist entry notified: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *waitlistRepo) MarkWithdrawn(ctx context.Context, id int64, at time.Time) (bool, error) {
	var converted, withdrawn bool
	err := r.db.QueryRowContext(ctx,
		`SELECT converted, withdrawn FROM waitlist_entries WHERE id = $1 FOR UPDATE`, id,
	).Scan(&converted, &withdrawn)
	if err != nil {
		return false, notFoundOr(err, "waitlist entry %d", id)
	}
	if converted {
		return false, apperrors.ErrAlreadyConverted
	}
	if withdrawn {
		return false, nil
	}

	query := `
		UPDATE waitlist_entries
		SET withdrawn = TRUE, withdrawn_at = $1
		WHERE id = $2 AND NOT converted AND NOT withdrawn`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("mark waitlist entry withdrawn: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *waitlistRepo) ListByEvent(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries w
		WHERE w.event_id = $1
		ORDER BY w.position`
	return r.list(ctx, query, eventID)
}

func (r *waitlistRepo) ListByOrganizer(ctx context.Context, organizerID int64) ([]models.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + `
		FROM waitlist_entries w
		JOIN events e ON e.id = w.event_id
		WHERE e.organizer_id = $1
		ORDER BY w.position, w.event_id`
	return r.list(ctx, query, organizerID)
}

func (r *waitlistRepo) list(ctx context.Context, query string, arg any) ([]models.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		var entry models.WaitlistEntry
		if err := scanWaitlistEntry(rows, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
