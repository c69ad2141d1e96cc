package repository

import (
	"context"
	"fmt"
	"time"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
)

type ticketRepo struct {
	db database.Querier
}

func NewTicketRepository(db database.Querier) TicketRepository {
	return &ticketRepo{db: db}
}

const ticketColumns = `id, booking_id, ticket_number, token, status, issued_at, checked_in_at`

func scanTicket(s scanner, ticket *models.Ticket) error {
	return s.Scan(
		&ticket.ID,
		&ticket.BookingID,
		&ticket.TicketNumber,
		&ticket.Token,
		&ticket.Status,
		&ticket.IssuedAt,
		&ticket.CheckedInAt,
	)
}

func (r *ticketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (booking_id, ticket_number, token, status, issued_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		ticket.BookingID,
		ticket.TicketNumber,
		ticket.Token,
		ticket.Status,
		ticket.IssuedAt,
	).Scan(&ticket.ID)
	if isUniqueViolation(err) {
		return apperrors.ErrTicketExists
	}
	return err
}

func (r *ticketRepo) GetByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number = $1`

	if err := scanTicket(r.db.QueryRowContext(ctx, query, number), ticket); err != nil {
		return nil, notFoundOr(err, "ticket %s", number)
	}
	return ticket, nil
}

func (r *ticketRepo) GetByBookingID(ctx context.Context, bookingID int64) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_id = $1`

	if err := scanTicket(r.db.QueryRowContext(ctx, query, bookingID), ticket); err != nil {
		return nil, notFoundOr(err, "ticket for booking %d", bookingID)
	}
	return ticket, nil
}

func (r *ticketRepo) MarkCheckedIn(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $1, checked_in_at = $2
		WHERE id = $3 AND status = $4`

	res, err := r.db.ExecContext(ctx, query, models.TicketCheckedIn, at, id, models.TicketIssued)
	if err != nil {
		return false, fmt.Errorf("check in ticket: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ticketRepo) DeleteIssuedByBookingID(ctx context.Context, bookingID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tickets WHERE booking_id = $1 AND status = 'ISSUED'`, bookingID)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var used bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE booking_id = $1)`, bookingID).Scan(&used)
	if err != nil {
		return fmt.Errorf("check ticket: %w", err)
	}
	if used {
		return apperrors.ErrAlreadyCheckedIn
	}
	return nil
}
