package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tickethub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPromoter struct {
	mock.Mock
}

func (m *mockPromoter) PromoteAvailable(ctx context.Context, eventID int64) ([]models.Promotion, error) {
	args := m.Called(eventID)
	promotions, _ := args.Get(0).([]models.Promotion)
	return promotions, args.Error(1)
}

type mockEvictor struct {
	mock.Mock
}

func (m *mockEvictor) Invalidate(ctx context.Context, userIDs ...int64) error {
	args := m.Called(userIDs)
	return args.Error(0)
}

func payload(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestOnBookingCancelled_PromotesEvent(t *testing.T) {
	promoter := &mockPromoter{}
	promoter.On("PromoteAvailable", int64(7)).Return([]models.Promotion{{}}, nil).Once()
	h := NewHandlers(promoter, &mockEvictor{})

	err := h.onBookingCancelled(context.Background(), payload(t, models.BookingCancelledEvent{
		BookingID: 3,
		EventID:   7,
		Timestamp: time.Now(),
	}))

	require.NoError(t, err)
	promoter.AssertExpectations(t)
}

func TestOnBookingCancelled_StorageFailureIsRetried(t *testing.T) {
	promoter := &mockPromoter{}
	promoter.On("PromoteAvailable", int64(7)).Return(nil, errors.New("connection refused"))
	h := NewHandlers(promoter, &mockEvictor{})

	err := h.onBookingCancelled(context.Background(), payload(t, models.BookingCancelledEvent{EventID: 7}))

	require.Error(t, err)
	assert.False(t, errors.Is(err, errMalformed))
}

func TestMalformedPayloads(t *testing.T) {
	h := NewHandlers(&mockPromoter{}, &mockEvictor{})
	ctx := context.Background()
	garbage := []byte("{not json")

	for name, handle := range map[string]func(context.Context, []byte) error{
		"booking.cancelled": h.onBookingCancelled,
		"waitlist.promoted": h.onWaitlistPromoted,
		"ticket.checked_in": h.onTicketCheckedIn,
		"organizer.deleted": h.onOrganizerDeleted,
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, handle(ctx, garbage), errMalformed)
		})
	}
}

func TestOnOrganizerDeleted_EvictsIdentities(t *testing.T) {
	evictor := &mockEvictor{}
	evictor.On("Invalidate", []int64{11, 12}).Return(nil).Once()
	h := NewHandlers(&mockPromoter{}, evictor)

	err := h.onOrganizerDeleted(context.Background(), payload(t, models.OrganizerDeletedEvent{
		OrganizerID:    5,
		DeletedUserIDs: []int64{11, 12},
	}))

	require.NoError(t, err)
	evictor.AssertExpectations(t)
}

func TestOnWaitlistPromoted_LogsOnly(t *testing.T) {
	promoter := &mockPromoter{}
	h := NewHandlers(promoter, &mockEvictor{})

	err := h.onWaitlistPromoted(context.Background(), payload(t, models.WaitlistPromotedEvent{EntryID: 1, EventID: 2, BookingID: 3}))

	require.NoError(t, err)
	promoter.AssertNotCalled(t, "PromoteAvailable", mock.Anything)
}
