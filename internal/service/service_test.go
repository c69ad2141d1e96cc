package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tickethub/internal/models"
	"tickethub/internal/repository/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(subject string, data interface{}) error {
	args := m.Called(subject, data)
	return args.Error(0)
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	svc       *Services
	published *recordingPublisher

	organizer *models.Organizer
	staff     *models.Caller
	admin     *models.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	pub := &recordingPublisher{}
	f := &fixture{
		ctx:       context.Background(),
		store:     store,
		svc:       NewServices(store, pub, nil),
		published: pub,
	}

	f.organizer = &models.Organizer{Name: "Acme Live"}
	require.NoError(t, store.Repos().Organizers.Create(f.ctx, f.organizer))

	staff := &models.User{Email: "staff@acme.io", Role: models.RoleOrganizer, OrganizerID: &f.organizer.ID}
	require.NoError(t, store.Repos().Users.Create(f.ctx, staff))
	f.staff = callerFor(staff)

	admin := &models.User{Email: "root@tickethub.io", Role: models.RoleAdmin}
	require.NoError(t, store.Repos().Users.Create(f.ctx, admin))
	f.admin = callerFor(admin)

	return f
}

func callerFor(u *models.User) *models.Caller {
	return &models.Caller{UserID: u.ID, Email: u.Email, Role: u.Role, OrganizerID: u.OrganizerID}
}

func guest(email string) *models.Caller {
	return &models.Caller{UserID: 1000, Email: email, Role: models.RoleUser}
}

func (f *fixture) event(t *testing.T, capacity int) *models.Event {
	t.Helper()
	ev, err := f.svc.Events.Create(f.ctx, f.organizer.ID, "Concert", capacity, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	return ev
}

func (f *fixture) reload(t *testing.T, eventID int64) *models.Event {
	t.Helper()
	ev, err := f.store.Repos().Events.GetByID(f.ctx, eventID)
	require.NoError(t, err)
	return ev
}
