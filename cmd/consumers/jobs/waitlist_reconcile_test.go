package jobs

import (
	"context"
	"testing"
	"time"

	"tickethub/internal/models"
	"tickethub/internal/repository/memory"
	"tickethub/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_PromotesIntoFreedCapacity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	services := service.NewServices(store, nil, nil)
	r := store.Repos()

	org := &models.Organizer{Name: "Org"}
	require.NoError(t, r.Organizers.Create(ctx, org))

	full, err := services.Events.Create(ctx, org.ID, "Full", 0, time.Now().Add(time.Hour))
	require.NoError(t, err)
	idle, err := services.Events.Create(ctx, org.ID, "Idle", 0, time.Now().Add(time.Hour))
	require.NoError(t, err)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := services.Waitlist.Enqueue(ctx, full.ID, email)
		require.NoError(t, err)
	}
	_, err = services.Waitlist.Enqueue(ctx, idle.ID, "d@example.com")
	require.NoError(t, err)

	// Capacity freed outside of a promoting path
	require.NoError(t, r.Events.SetCapacity(ctx, full.ID, 2))

	job := NewWaitlistReconcileJob(r.Events, services.Waitlist, time.Minute)
	assert.Equal(t, 2, job.Reconcile(ctx))
	assert.Equal(t, 0, job.Reconcile(ctx))

	ev, err := r.Events.GetByID(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ev.ConfirmedCount)

	next, err := r.Waitlist.NextPending(ctx, full.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", next.RequesterEmail)
}

func TestStartStop(t *testing.T) {
	store := memory.NewStore()
	services := service.NewServices(store, nil, nil)

	job := NewWaitlistReconcileJob(store.Repos().Events, services.Waitlist, 10*time.Millisecond)
	job.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	job.Stop()
}
