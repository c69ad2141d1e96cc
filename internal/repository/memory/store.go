// Package memory is an in-process implementation of repository.Store. It
// mirrors the constraints of the Postgres schema so services behave the same
// on both backends.
package memory

import (
	"context"
	"sync"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
	"tickethub/internal/repository"
)

type Store struct {
	// txMu lets event scopes run side by side while WithTx runs alone.
	txMu   sync.RWMutex
	events keyedMutex

	mu         sync.Mutex
	seq        int64
	organizers map[int64]*models.Organizer
	users      map[int64]*models.User
	eventRows  map[int64]*models.Event
	bookings   map[int64]*models.Booking
	waitlist   map[int64]*models.WaitlistEntry
	tickets    map[int64]*models.Ticket
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		events:     keyedMutex{locks: make(map[int64]*refLock)},
		organizers: make(map[int64]*models.Organizer),
		users:      make(map[int64]*models.User),
		eventRows:  make(map[int64]*models.Event),
		bookings:   make(map[int64]*models.Booking),
		waitlist:   make(map[int64]*models.WaitlistEntry),
		tickets:    make(map[int64]*models.Ticket),
	}
}

func (s *Store) Repos() repository.Repos {
	return (&tx{s: s}).repos()
}

func (s *Store) WithTx(ctx context.Context, fn func(r repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	return s.run(fn)
}

func (s *Store) WithEventLock(ctx context.Context, eventID int64, fn func(r repository.Repos, ev *models.Event) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.RLock()
	defer s.txMu.RUnlock()

	unlock := s.events.Lock(eventID)
	defer unlock()

	s.mu.Lock()
	row, ok := s.eventRows[eventID]
	var ev models.Event
	if ok {
		ev = *row
	}
	s.mu.Unlock()
	if !ok {
		return apperrors.NotFoundf("event %d", eventID)
	}

	return s.run(func(r repository.Repos) error {
		return fn(r, &ev)
	})
}

func (s *Store) run(fn func(r repository.Repos) error) error {
	t := &tx{s: s, undo: []func(){}}
	if err := fn(t.repos()); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// tx collects undo steps for writes made through its repositories. A nil
// undo slice means writes are applied without rollback support.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) repos() repository.Repos {
	return repository.Repos{
		Events:     &eventRepo{t},
		Bookings:   &bookingRepo{t},
		Waitlist:   &waitlistRepo{t},
		Tickets:    &ticketRepo{t},
		Users:      &userRepo{t},
		Organizers: &organizerRepo{t},
	}
}

// record must be called with s.mu held.
func (t *tx) record(fn func()) {
	if t.undo != nil {
		t.undo = append(t.undo, fn)
	}
}

func (t *tx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refLock
}

func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
