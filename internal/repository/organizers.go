package repository

import (
	"context"
	"fmt"
	"time"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
)

type organizerRepo struct {
	db database.Querier
}

func NewOrganizerRepository(db database.Querier) OrganizerRepository {
	return &organizerRepo{db: db}
}

func (r *organizerRepo) Create(ctx context.Context, organizer *models.Organizer) error {
	query := `
		INSERT INTO organizers (name)
		VALUES ($1)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query, organizer.Name).Scan(&organizer.ID, &organizer.CreatedAt)
}

func (r *organizerRepo) GetByID(ctx context.Context, id int64) (*models.Organizer, error) {
	organizer := &models.Organizer{}
	query := `
		SELECT id, name, is_deleted, deleted_at, created_at
		FROM organizers
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&organizer.ID,
		&organizer.Name,
		&organizer.IsDeleted,
		&organizer.DeletedAt,
		&organizer.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "organizer %d", id)
	}

	return organizer, nil
}

// SoftDelete keeps the first deletion timestamp when called again.
func (r *organizerRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE organizers
		SET is_deleted = TRUE, deleted_at = COALESCE(deleted_at, $1)
		WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete organizer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFoundf("organizer %d", id)
	}
	return nil
}
