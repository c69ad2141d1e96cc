package service

import (
	"fmt"
	"sync"
	"testing"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_PositionsStartAtOneAndIncrease(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		entry, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, email)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), entry.Position)
		assert.False(t, entry.Converted)
		assert.False(t, entry.Notified)
	}

	_, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "B@Example.com")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEntry)
	assert.True(t, apperrors.IsConflict(err))
}

func TestEnqueue_ConcurrentPositionsAreUnique(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	const n = 40
	positions := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, fmt.Sprintf("w%d@example.com", i))
			if assert.NoError(t, err) {
				positions <- entry.Position
			}
		}(i)
	}
	wg.Wait()
	close(positions)

	seen := make(map[int64]bool)
	for p := range positions {
		assert.False(t, seen[p], "duplicate position %d", p)
		seen[p] = true
	}
	assert.Len(t, seen, n)
	for p := int64(1); p <= n; p++ {
		assert.True(t, seen[p])
	}
}

func TestPromoteNext_FIFO(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, email)
		require.NoError(t, err)
	}

	_, err := f.svc.Waitlist.PromoteNext(f.ctx, ev.ID)
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)

	raise(t, f, ev.ID, 3)

	var order []string
	for i := 0; i < 3; i++ {
		p, err := f.svc.Waitlist.PromoteNext(f.ctx, ev.ID)
		require.NoError(t, err)
		require.NotNil(t, p)
		order = append(order, p.Entry.RequesterEmail)
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, order)

	p, err := f.svc.Waitlist.PromoteNext(f.ctx, ev.ID)
	require.NoError(t, err)
	assert.Nil(t, p, "empty waitlist is a no-op")
}

func TestPromoteNext_SkipsWithdrawnEntries(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	a, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "a@example.com")
	require.NoError(t, err)
	_, err = f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "b@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.Waitlist.Withdraw(f.ctx, guest("a@example.com"), a.ID))
	raise(t, f, ev.ID, 1)

	p, err := f.svc.Waitlist.PromoteNext(f.ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "b@example.com", p.Entry.RequesterEmail)
	assert.Equal(t, int64(2), p.Entry.Position, "positions are never recomputed")

	c, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.Position)
}

func TestPromoteAvailable(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	for i := 0; i < 4; i++ {
		_, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, fmt.Sprintf("w%d@example.com", i))
		require.NoError(t, err)
	}
	raise(t, f, ev.ID, 3)

	promotions, err := f.svc.Waitlist.PromoteAvailable(f.ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, promotions, 3)
	for i, p := range promotions {
		assert.Equal(t, int64(i+1), p.Entry.Position)
	}

	got := f.reload(t, ev.ID)
	assert.Equal(t, 3, got.ConfirmedCount)

	stats, err := f.svc.Waitlist.Stats(f.ctx, f.staff, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Converted)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 3, stats.Notified)
	assert.Equal(t, 0, stats.Remaining)
}

func TestListForOrganizer(t *testing.T) {
	f := newFixture(t)
	first := f.event(t, 0)
	second := f.event(t, 0)

	_, err := f.svc.Waitlist.Enqueue(f.ctx, first.ID, "a@example.com")
	require.NoError(t, err)
	_, err = f.svc.Waitlist.Enqueue(f.ctx, second.ID, "b@example.com")
	require.NoError(t, err)
	_, err = f.svc.Waitlist.Enqueue(f.ctx, first.ID, "c@example.com")
	require.NoError(t, err)

	entries, err := f.svc.Waitlist.ListForOrganizer(f.ctx, f.staff, f.organizer.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].Position, entries[i].Position)
	}

	rival := &models.Organizer{Name: "Rival"}
	require.NoError(t, f.store.Repos().Organizers.Create(f.ctx, rival))
	outsider := &models.Caller{UserID: 77, Email: "x@rival.io", Role: models.RoleOrganizer, OrganizerID: &rival.ID}

	_, err = f.svc.Waitlist.ListForOrganizer(f.ctx, outsider, f.organizer.ID)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Waitlist.ListForEvent(f.ctx, outsider, first.ID)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Waitlist.ListForEvent(f.ctx, guest("a@example.com"), first.ID)
	assert.True(t, apperrors.IsForbidden(err))

	all, err := f.svc.Waitlist.ListForOrganizer(f.ctx, f.admin, f.organizer.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMarkNotified_KeepsFirstTimestamp(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	entry, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "a@example.com")
	require.NoError(t, err)

	first, err := f.svc.Waitlist.MarkNotified(f.ctx, f.staff, entry.ID)
	require.NoError(t, err)
	require.True(t, first.Notified)
	require.NotNil(t, first.NotifiedAt)

	second, err := f.svc.Waitlist.MarkNotified(f.ctx, f.staff, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.NotifiedAt, *second.NotifiedAt)
	assert.Equal(t, 1, f.published.count(models.EventWaitlistNotified))

	_, err = f.svc.Waitlist.MarkNotified(f.ctx, guest("a@example.com"), entry.ID)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	entry, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "a@example.com")
	require.NoError(t, err)

	err = f.svc.Waitlist.Withdraw(f.ctx, guest("b@example.com"), entry.ID)
	assert.True(t, apperrors.IsForbidden(err))

	raise(t, f, ev.ID, 1)
	_, err = f.svc.Waitlist.PromoteNext(f.ctx, ev.ID)
	require.NoError(t, err)

	err = f.svc.Waitlist.Withdraw(f.ctx, guest("a@example.com"), entry.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyConverted)
}

func TestWithdraw_PositionIsNeverReused(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 0)

	_, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "a@example.com")
	require.NoError(t, err)
	b, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "b@example.com")
	require.NoError(t, err)

	require.NoError(t, f.svc.Waitlist.Withdraw(f.ctx, guest("b@example.com"), b.ID))
	require.NoError(t, f.svc.Waitlist.Withdraw(f.ctx, guest("b@example.com"), b.ID), "second withdraw is a no-op")

	c, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "c@example.com")
	require.NoError(t, err)
	assert.Greater(t, c.Position, b.Position)

	withdrawn, err := f.store.Repos().Waitlist.GetByID(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, withdrawn.Withdrawn)
	assert.NotNil(t, withdrawn.WithdrawnAt)
	assert.Equal(t, b.Position, withdrawn.Position)

	// b may queue again and gets a fresh tail position
	again, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "b@example.com")
	require.NoError(t, err)
	assert.Greater(t, again.Position, c.Position)

	stats, err := f.svc.Waitlist.Stats(f.ctx, f.staff, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 1, stats.Withdrawn)

	raise(t, f, ev.ID, 3)
	promotions, err := f.svc.Waitlist.PromoteAvailable(f.ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, promotions, 3)
	assert.Equal(t, []string{"a@example.com", "c@example.com", "b@example.com"}, []string{
		promotions[0].Entry.RequesterEmail,
		promotions[1].Entry.RequesterEmail,
		promotions[2].Entry.RequesterEmail,
	})
	assert.Equal(t, again.ID, promotions[2].Entry.ID)
}

// raise adds places in storage without promoting anybody.
func raise(t *testing.T, f *fixture, eventID int64, by int) {
	t.Helper()
	ev := f.reload(t, eventID)
	require.NoError(t, f.store.Repos().Events.SetCapacity(f.ctx, eventID, ev.Capacity+by))
}
