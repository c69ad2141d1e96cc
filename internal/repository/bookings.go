package repository

import (
	"context"
	"fmt"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
)

type bookingRepo struct {
	db database.Querier
}

func NewBookingRepository(db database.Querier) BookingRepository {
	return &bookingRepo{db: db}
}

const bookingColumns = `id, event_id, requester_email, status, created_at`

func (r *bookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (event_id, requester_email, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query,
		booking.EventID,
		booking.RequesterEmail,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt)
}

func (r *bookingRepo) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.EventID,
		&booking.RequesterEmail,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "booking %d", id)
	}

	return booking, nil
}

func (r *bookingRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFoundf("booking %d", id)
	}
	return nil
}

func (r *bookingRepo) ListByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE requester_email = $1
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, email)
}

func (r *bookingRepo) ListByEvent(ctx context.Context, eventID int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE event_id = $1
		ORDER BY created_at, id`
	return r.list(ctx, query, eventID)
}

func (r *bookingRepo) list(ctx context.Context, query string, arg any) ([]models.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.EventID,
			&booking.RequesterEmail,
			&booking.Status,
			&booking.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
