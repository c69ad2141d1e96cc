//go:build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"tickethub/internal/database"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: DATABASE_URL=postgres://... go test -tags integration ./internal/repository/
func newIntegrationStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL is not set")
	}

	conn, err := sql.Open("postgres", url)
	require.NoError(t, err)
	db := &database.DB{DB: conn}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Ping())
	require.NoError(t, db.RunMigrations())
	return NewPostgresStore(db)
}

func seedPostgresEvent(t *testing.T, s *PostgresStore, capacity int) (*models.Organizer, *models.Event) {
	t.Helper()
	ctx := context.Background()
	r := s.Repos()

	org := &models.Organizer{Name: "Org " + uuid.NewString()}
	require.NoError(t, r.Organizers.Create(ctx, org))
	ev := &models.Event{OrganizerID: org.ID, Title: "Show", Capacity: capacity, StartsAt: time.Now().Add(time.Hour)}
	require.NoError(t, r.Events.Create(ctx, ev))
	return org, ev
}

func uniqueEmail(name string) string {
	return name + "+" + uuid.NewString() + "@example.com"
}

func TestPostgres_AdjustConfirmedBounds(t *testing.T) {
	s := newIntegrationStore(t)
	_, ev := seedPostgresEvent(t, s, 1)
	ctx := context.Background()
	events := s.Repos().Events

	require.NoError(t, events.AdjustConfirmed(ctx, ev.ID, 1))
	assert.ErrorIs(t, events.AdjustConfirmed(ctx, ev.ID, 1), apperrors.ErrCapacityExceeded)
	require.NoError(t, events.AdjustConfirmed(ctx, ev.ID, -1))
	assert.True(t, apperrors.IsConflict(events.AdjustConfirmed(ctx, ev.ID, -1)))

	got, err := events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConfirmedCount)
}

func TestPostgres_CreateEventUnknownOrganizer(t *testing.T) {
	s := newIntegrationStore(t)

	err := s.Repos().Events.Create(context.Background(), &models.Event{OrganizerID: -1, Title: "Ghost", Capacity: 1, StartsAt: time.Now()})
	assert.True(t, apperrors.IsInvalid(err))
}

func TestPostgres_WithEventLockSerializes(t *testing.T) {
	s := newIntegrationStore(t)
	_, ev := seedPostgresEvent(t, s, 5)
	ctx := context.Background()

	// Each admission reads the locked count and writes it back; without the
	// row lock concurrent admissions would overbook.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithEventLock(ctx, ev.ID, func(r Repos, locked *models.Event) error {
				if locked.ConfirmedCount >= locked.Capacity {
					return apperrors.ErrCapacityExceeded
				}
				return r.Events.AdjustConfirmed(ctx, locked.ID, 1)
			})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, admitted)
	got, err := s.Repos().Events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ConfirmedCount)
}

func TestPostgres_WithEventLockRollsBack(t *testing.T) {
	s := newIntegrationStore(t)
	_, ev := seedPostgresEvent(t, s, 2)
	ctx := context.Background()

	err := s.WithEventLock(ctx, ev.ID, func(r Repos, locked *models.Event) error {
		require.NoError(t, r.Events.AdjustConfirmed(ctx, locked.ID, 1))
		return apperrors.ErrConflict
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := s.Repos().Events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConfirmedCount)

	err = s.WithEventLock(ctx, -1, func(Repos, *models.Event) error { return nil })
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPostgres_MarkConvertedKeepsFirstNotification(t *testing.T) {
	s := newIntegrationStore(t)
	_, ev := seedPostgresEvent(t, s, 1)
	ctx := context.Background()
	r := s.Repos()

	notified := &models.WaitlistEntry{EventID: ev.ID, RequesterEmail: uniqueEmail("n"), Position: 1}
	silent := &models.WaitlistEntry{EventID: ev.ID, RequesterEmail: uniqueEmail("s"), Position: 2}
	require.NoError(t, r.Waitlist.Create(ctx, notified))
	require.NoError(t, r.Waitlist.Create(ctx, silent))

	notifiedAt := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)
	ok, err := r.Waitlist.MarkNotified(ctx, notified.ID, notifiedAt)
	require.NoError(t, err)
	require.True(t, ok)

	convertedAt := time.Now().UTC().Truncate(time.Microsecond)
	for _, entry := range []*models.WaitlistEntry{notified, silent} {
		b := &models.Booking{EventID: ev.ID, RequesterEmail: entry.RequesterEmail, Status: models.BookingConfirmed}
		require.NoError(t, r.Bookings.Create(ctx, b))
		require.NoError(t, r.Waitlist.MarkConverted(ctx, entry.ID, b.ID, convertedAt))
		assert.ErrorIs(t, r.Waitlist.MarkConverted(ctx, entry.ID, b.ID, convertedAt), apperrors.ErrAlreadyConverted)
	}

	got, err := r.Waitlist.GetByID(ctx, notified.ID)
	require.NoError(t, err)
	require.NotNil(t, got.NotifiedAt)
	assert.True(t, notifiedAt.Equal(*got.NotifiedAt))

	got, err = r.Waitlist.GetByID(ctx, silent.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
	require.NotNil(t, got.NotifiedAt)
	assert.True(t, convertedAt.Equal(*got.NotifiedAt))
}

func TestPostgres_MarkWithdrawnKeepsPosition(t *testing.T) {
	s := newIntegrationStore(t)
	_, ev := seedPostgresEvent(t, s, 0)
	ctx := context.Background()
	r := s.Repos()

	email := uniqueEmail("w")
	entry := &models.WaitlistEntry{EventID: ev.ID, RequesterEmail: email, Position: 1}
	require.NoError(t, r.Waitlist.Create(ctx, entry))

	changed, err := r.Waitlist.MarkWithdrawn(ctx, entry.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = r.Waitlist.MarkWithdrawn(ctx, entry.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	max, err := r.Waitlist.MaxPosition(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), max)

	_, err = r.Waitlist.NextPending(ctx, ev.ID)
	assert.True(t, apperrors.IsNotFound(err))

	// The pending-email index excludes withdrawn rows.
	require.NoError(t, r.Waitlist.Create(ctx, &models.WaitlistEntry{EventID: ev.ID, RequesterEmail: email, Position: 2}))
}

func TestPostgres_DeleteIssuedTicketOnly(t *testing.T) {
	s := newIntegrationStore(t)
	_, ev := seedPostgresEvent(t, s, 2)
	ctx := context.Background()
	r := s.Repos()

	b := &models.Booking{EventID: ev.ID, RequesterEmail: uniqueEmail("t"), Status: models.BookingConfirmed}
	require.NoError(t, r.Bookings.Create(ctx, b))
	ticket := &models.Ticket{BookingID: b.ID, TicketNumber: uuid.NewString(), Token: uuid.NewString(), Status: models.TicketIssued}
	require.NoError(t, r.Tickets.Create(ctx, ticket))

	ok, err := r.Tickets.MarkCheckedIn(ctx, ticket.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, r.Tickets.DeleteIssuedByBookingID(ctx, b.ID), apperrors.ErrAlreadyCheckedIn)
	_, err = r.Tickets.GetByBookingID(ctx, b.ID)
	require.NoError(t, err)

	assert.NoError(t, r.Tickets.DeleteIssuedByBookingID(ctx, -1))
}

func TestPostgres_SoftDeleteByOrganizerReturnsChangedIDs(t *testing.T) {
	s := newIntegrationStore(t)
	org, _ := seedPostgresEvent(t, s, 0)
	ctx := context.Background()
	r := s.Repos()

	var created []int64
	for _, name := range []string{"a", "b"} {
		u := &models.User{Email: uniqueEmail(name), Role: models.RoleUser, OrganizerID: &org.ID}
		require.NoError(t, r.Users.Create(ctx, u))
		created = append(created, u.ID)
	}

	ids, err := r.Users.SoftDeleteByOrganizer(ctx, org.ID, time.Now())
	require.NoError(t, err)
	assert.ElementsMatch(t, created, ids)

	ids, err = r.Users.SoftDeleteByOrganizer(ctx, org.ID, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range created {
		_, err := r.Users.GetActiveByID(ctx, id)
		assert.True(t, apperrors.IsNotFound(err))
	}
}
