package service

import (
	"testing"

	apperrors "tickethub/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBooking_ForcedPathFailsWhenFull(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	booking, ticket, err := f.svc.Ledger.RequestBooking(f.ctx, ev.ID, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, ticket.BookingID)

	_, _, err = f.svc.Ledger.RequestBooking(f.ctx, ev.ID, "b@example.com")
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)

	entries, err := f.svc.Waitlist.ListForEvent(f.ctx, f.admin, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "forced path never waitlists")
	assert.Equal(t, 1, f.reload(t, ev.ID).ConfirmedCount)
}

func TestRequestBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	_, _, err := f.svc.Ledger.RequestBooking(f.ctx, 4242, "a@example.com")
	assert.True(t, apperrors.IsNotFound(err))

	_, _, err = f.svc.Ledger.RequestBooking(f.ctx, 0, "a@example.com")
	assert.True(t, apperrors.IsInvalid(err))

	_, _, err = f.svc.Ledger.RequestBooking(f.ctx, ev.ID, "")
	assert.True(t, apperrors.IsInvalid(err))
}

func TestReleaseCapacity_NeverBelowZero(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 2)

	promotion, err := f.svc.Ledger.ReleaseCapacity(f.ctx, ev.ID)
	require.NoError(t, err)
	assert.Nil(t, promotion)
	assert.Equal(t, 0, f.reload(t, ev.ID).ConfirmedCount)
}

func TestReleaseCapacity_PromotesHead(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	_, _, err := f.svc.Ledger.RequestBooking(f.ctx, ev.ID, "a@example.com")
	require.NoError(t, err)
	_, err = f.svc.Waitlist.Enqueue(f.ctx, ev.ID, "b@example.com")
	require.NoError(t, err)

	promotion, err := f.svc.Ledger.ReleaseCapacity(f.ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, promotion)
	assert.Equal(t, "b@example.com", promotion.Booking.RequesterEmail)
	assert.Equal(t, 1, f.reload(t, ev.ID).ConfirmedCount)
}

func TestResize_PromotesIntoNewPlaces(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	_, _, err := f.svc.Ledger.RequestBooking(f.ctx, ev.ID, "a@example.com")
	require.NoError(t, err)
	for _, email := range []string{"b@example.com", "c@example.com", "d@example.com"} {
		_, err := f.svc.Waitlist.Enqueue(f.ctx, ev.ID, email)
		require.NoError(t, err)
	}

	res, err := f.svc.Ledger.Resize(f.ctx, f.staff, ev.ID, 3)
	require.NoError(t, err)
	require.Len(t, res.Promoted, 2)
	assert.Equal(t, "b@example.com", res.Promoted[0].Entry.RequesterEmail)
	assert.Equal(t, "c@example.com", res.Promoted[1].Entry.RequesterEmail)
	assert.Equal(t, 3, res.Event.ConfirmedCount)

	_, err = f.svc.Ledger.Resize(f.ctx, f.staff, ev.ID, 2)
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.svc.Ledger.Resize(f.ctx, guest("a@example.com"), ev.ID, 10)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Ledger.Resize(f.ctx, f.staff, ev.ID, -1)
	assert.True(t, apperrors.IsInvalid(err))
}
