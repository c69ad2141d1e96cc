package service

import (
	"context"
	"fmt"

	"tickethub/internal/cache"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/logger"
	"tickethub/internal/metrics"
	"tickethub/internal/models"
	"tickethub/internal/repository"
)

// CascadeCoordinator removes organizers together with the users they own.
type CascadeCoordinator struct {
	store      repository.Store
	identities *cache.IdentityCache
	events     *notifier
}

func NewCascadeCoordinator(store repository.Store, identities *cache.IdentityCache, events *notifier) *CascadeCoordinator {
	return &CascadeCoordinator{
		store:      store,
		identities: identities,
		events:     events,
	}
}

// DeleteOrganizer soft-deletes every active user of the organizer and then
// the organizer, in one transaction. The users are found by a fresh scan, so
// calling it again reports only what is still active (zero after success).
func (c *CascadeCoordinator) DeleteOrganizer(ctx context.Context, organizerID int64, callerRole string) (*models.CascadeResult, error) {
	if callerRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins can delete organizers", apperrors.ErrForbidden)
	}
	if err := validID("organizer", organizerID); err != nil {
		return nil, err
	}

	var deleted []int64
	err := c.store.WithTx(ctx, func(r repository.Repos) error {
		if _, err := r.Organizers.GetByID(ctx, organizerID); err != nil {
			return err
		}

		at := now()
		ids, err := r.Users.SoftDeleteByOrganizer(ctx, organizerID, at)
		if err != nil {
			return err
		}
		if err := r.Organizers.SoftDelete(ctx, organizerID, at); err != nil {
			return err
		}
		deleted = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.identities.Invalidate(ctx, deleted...); err != nil {
		logger.WithContext(ctx).Error("Failed to evict deleted identities",
			"error", err,
			"organizer_id", organizerID)
	}

	metrics.OrganizersDeleted.Inc()
	metrics.CascadeUsersDeleted.Add(float64(len(deleted)))

	logger.WithContext(ctx).Info("Organizer deleted",
		"organizer_id", organizerID,
		"deleted_users", len(deleted))

	c.events.publish(ctx, models.EventOrganizerDeleted, models.OrganizerDeletedEvent{
		OrganizerID:    organizerID,
		DeletedUserIDs: nonNil(deleted),
		Timestamp:      now(),
	})

	return &models.CascadeResult{
		OrganizerID:       organizerID,
		DeletedUsersCount: len(deleted),
	}, nil
}
