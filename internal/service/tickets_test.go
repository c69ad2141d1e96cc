package service

import (
	"regexp"
	"testing"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/metrics"
	"tickethub/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuedTicketShape(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 2)

	out, err := f.svc.Bookings.Create(f.ctx, guest("a@example.com"), ev.ID, "")
	require.NoError(t, err)

	ticket := out.Ticket
	assert.Regexp(t, regexp.MustCompile(`^TKT-\d+-[0-9A-F]{8}$`), ticket.TicketNumber)
	assert.Len(t, ticket.Token, 32)
	assert.Equal(t, models.TicketIssued, ticket.Status)
	assert.Nil(t, ticket.CheckedInAt)
}

func TestIssue_SecondTicketConflicts(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 2)

	out, err := f.svc.Bookings.Create(f.ctx, guest("a@example.com"), ev.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Tickets.Issue(f.ctx, f.staff, out.Booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrTicketExists)
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.svc.Tickets.Issue(f.ctx, guest("a@example.com"), out.Booking.ID)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Tickets.Issue(f.ctx, f.staff, 987654)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCheckIn_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	out, err := f.svc.Bookings.Create(f.ctx, guest("a@example.com"), ev.ID, "")
	require.NoError(t, err)
	number := out.Ticket.TicketNumber

	checked, err := f.svc.Tickets.CheckIn(f.ctx, f.staff, number)
	require.NoError(t, err)
	assert.Equal(t, models.TicketCheckedIn, checked.Status)
	require.NotNil(t, checked.CheckedInAt)

	_, err = f.svc.Tickets.CheckIn(f.ctx, f.admin, number)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCheckedIn)

	view, err := f.svc.Tickets.Retrieve(f.ctx, number, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.TicketCheckedIn, view.Ticket.Status)
	require.NotNil(t, view.Ticket.CheckedInAt)
	assert.True(t, checked.CheckedInAt.Equal(*view.Ticket.CheckedInAt), "timestamp unchanged by the repeat")
}

func TestCheckIn_ConcurrentOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	out, err := f.svc.Bookings.Create(f.ctx, guest("a@example.com"), ev.ID, "")
	require.NoError(t, err)

	okBefore := testutil.ToFloat64(metrics.CheckIns.WithLabelValues(metrics.CheckInOK))
	repeatedBefore := testutil.ToFloat64(metrics.CheckIns.WithLabelValues(metrics.CheckInRepeated))

	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := f.svc.Tickets.CheckIn(f.ctx, f.staff, out.Ticket.TicketNumber)
			results <- err
		}()
	}

	var ok, repeated int
	for i := 0; i < 10; i++ {
		err := <-results
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, apperrors.ErrAlreadyCheckedIn):
			repeated++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, repeated)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.CheckIns.WithLabelValues(metrics.CheckInOK)))
	assert.Equal(t, repeatedBefore+9, testutil.ToFloat64(metrics.CheckIns.WithLabelValues(metrics.CheckInRepeated)))
}

func TestCheckIn_Authorization(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	out, err := f.svc.Bookings.Create(f.ctx, guest("a@example.com"), ev.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Tickets.CheckIn(f.ctx, guest("a@example.com"), out.Ticket.TicketNumber)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Tickets.CheckIn(f.ctx, f.staff, "TKT-0-DEADBEEF")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.Tickets.CheckIn(f.ctx, f.staff, "  ")
	assert.True(t, apperrors.IsInvalid(err))
}

func TestRetrieve_OwnershipByEmail(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 1)

	out, err := f.svc.Bookings.Create(f.ctx, guest("a@example.com"), ev.ID, "")
	require.NoError(t, err)

	view, err := f.svc.Tickets.RetrieveByBooking(f.ctx, out.Booking.ID, "A@example.com")
	require.NoError(t, err)
	assert.Equal(t, out.Ticket.TicketNumber, view.Ticket.TicketNumber)
	assert.Equal(t, ev.Title, view.Event.Title)
	assert.Equal(t, out.Booking.ID, view.Booking.ID)

	_, err = f.svc.Tickets.Retrieve(f.ctx, out.Ticket.TicketNumber, "b@example.com")
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Tickets.RetrieveByBooking(f.ctx, out.Booking.ID, "staff@acme.io")
	assert.True(t, apperrors.IsForbidden(err), "ownership is the booking email, not the role")
}
