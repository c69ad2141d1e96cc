package repository

import (
	"context"
	"fmt"
	"time"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
)

type userRepo struct {
	db database.Querier
}

func NewUserRepository(db database.Querier) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, role, organizer_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.Role,
		user.OrganizerID,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email %s is taken", apperrors.ErrConflict, user.Email)
	}
	return err
}

func (r *userRepo) GetActiveByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, role, organizer_id, is_deleted, deleted_at, created_at
		FROM users
		WHERE id = $1 AND NOT is_deleted`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.OrganizerID,
		&user.IsDeleted,
		&user.DeletedAt,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "user %d", id)
	}

	return user, nil
}

func (r *userRepo) ListActiveByOrganizer(ctx context.Context, organizerID int64) ([]models.User, error) {
	query := `
		SELECT id, email, role, organizer_id, is_deleted, deleted_at, created_at
		FROM users
		WHERE organizer_id = $1 AND NOT is_deleted
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Role,
			&user.OrganizerID,
			&user.IsDeleted,
			&user.DeletedAt,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *userRepo) SoftDeleteByOrganizer(ctx context.Context, organizerID int64, at time.Time) ([]int64, error) {
	query := `
		UPDATE users
		SET is_deleted = TRUE, deleted_at = $1
		WHERE organizer_id = $2 AND NOT is_deleted
		RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, at, organizerID)
	if err != nil {
		return nil, fmt.Errorf("soft delete users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
