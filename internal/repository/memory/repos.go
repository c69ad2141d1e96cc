package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
)

type eventRepo struct{ t *tx }

func (r *eventRepo) Create(ctx context.Context, event *models.Event) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.organizers[event.OrganizerID]; !ok {
		return apperrors.Invalidf("organizer %d does not exist", event.OrganizerID)
	}
	if event.Capacity < 0 {
		return apperrors.Invalidf("capacity must not be negative")
	}

	event.ID = s.nextID()
	event.ConfirmedCount = 0
	event.CreatedAt = time.Now().UTC()
	if event.StartsAt.IsZero() {
		event.StartsAt = event.CreatedAt
	}
	row := *event
	s.eventRows[row.ID] = &row
	r.t.record(func() { delete(s.eventRows, row.ID) })
	return nil
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.eventRows[id]
	if !ok {
		return nil, apperrors.NotFoundf("event %d", id)
	}
	ev := *row
	return &ev, nil
}

func (r *eventRepo) ListByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []models.Event
	for _, row := range s.eventRows {
		if row.OrganizerID == organizerID {
			events = append(events, *row)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].StartsAt.Before(events[j].StartsAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (r *eventRepo) AdjustConfirmed(ctx context.Context, id int64, delta int) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.eventRows[id]
	if !ok {
		return apperrors.NotFoundf("event %d", id)
	}
	next := row.ConfirmedCount + delta
	if next > row.Capacity {
		return apperrors.ErrCapacityExceeded
	}
	if next < 0 {
		return fmt.Errorf("%w: confirmed count of event %d would go negative", apperrors.ErrConflict, id)
	}

	prev := row.ConfirmedCount
	row.ConfirmedCount = next
	r.t.record(func() { row.ConfirmedCount = prev })
	return nil
}

func (r *eventRepo) SetCapacity(ctx context.Context, id int64, capacity int) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.eventRows[id]
	if !ok {
		return apperrors.NotFoundf("event %d", id)
	}
	if capacity < row.ConfirmedCount {
		return fmt.Errorf("%w: capacity below confirmed bookings", apperrors.ErrConflict)
	}

	prev := row.Capacity
	row.Capacity = capacity
	r.t.record(func() { row.Capacity = prev })
	return nil
}

func (r *eventRepo) ListPromotable(ctx context.Context) ([]models.Event, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[int64]bool)
	for _, w := range s.waitlist {
		if w.Pending() {
			pending[w.EventID] = true
		}
	}

	var events []models.Event
	for _, row := range s.eventRows {
		if row.HasCapacity() && pending[row.ID] {
			events = append(events, *row)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

type bookingRepo struct{ t *tx }

func (r *bookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eventRows[booking.EventID]; !ok {
		return apperrors.NotFoundf("event %d", booking.EventID)
	}

	booking.ID = s.nextID()
	booking.CreatedAt = time.Now().UTC()
	row := *booking
	s.bookings[row.ID] = &row
	r.t.record(func() { delete(s.bookings, row.ID) })
	return nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.NotFoundf("booking %d", id)
	}
	b := *row
	return &b, nil
}

// Delete also removes the booking's ticket and detaches converted waitlist
// entries, like the foreign keys do in Postgres.
func (r *bookingRepo) Delete(ctx context.Context, id int64) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.bookings[id]
	if !ok {
		return apperrors.NotFoundf("booking %d", id)
	}
	delete(s.bookings, id)
	r.t.record(func() { s.bookings[id] = row })

	for tid, ticket := range s.tickets {
		if ticket.BookingID == id {
			delete(s.tickets, tid)
			tid, ticket := tid, ticket
			r.t.record(func() { s.tickets[tid] = ticket })
		}
	}
	for _, w := range s.waitlist {
		if w.BookingID != nil && *w.BookingID == id {
			w, prev := w, w.BookingID
			w.BookingID = nil
			r.t.record(func() { w.BookingID = prev })
		}
	}
	return nil
}

func (r *bookingRepo) ListByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	bookings := r.filter(func(b *models.Booking) bool { return b.RequesterEmail == email })
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID > bookings[j].ID })
	return bookings, nil
}

func (r *bookingRepo) ListByEvent(ctx context.Context, eventID int64) ([]models.Booking, error) {
	bookings := r.filter(func(b *models.Booking) bool { return b.EventID == eventID })
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

func (r *bookingRepo) filter(keep func(*models.Booking) bool) []models.Booking {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var bookings []models.Booking
	for _, row := range s.bookings {
		if keep(row) {
			bookings = append(bookings, *row)
		}
	}
	return bookings
}

type waitlistRepo struct{ t *tx }

func (r *waitlistRepo) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eventRows[entry.EventID]; !ok {
		return apperrors.NotFoundf("event %d", entry.EventID)
	}
	if entry.Position <= 0 {
		return apperrors.Invalidf("position must be positive")
	}
	for _, w := range s.waitlist {
		if w.EventID != entry.EventID {
			continue
		}
		if w.Pending() && w.RequesterEmail == entry.RequesterEmail {
			return apperrors.ErrDuplicateEntry
		}
		if w.Position == entry.Position {
			return fmt.Errorf("%w: position %d is taken", apperrors.ErrConflict, entry.Position)
		}
	}

	entry.ID = s.nextID()
	entry.CreatedAt = time.Now().UTC()
	row := *entry
	s.waitlist[row.ID] = &row
	r.t.record(func() { delete(s.waitlist, row.ID) })
	return nil
}

func (r *waitlistRepo) GetByID(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.waitlist[id]
	if !ok {
		return nil, apperrors.NotFoundf("waitlist entry %d", id)
	}
	e := *row
	return &e, nil
}

func (r *waitlistRepo) FindPending(ctx context.Context, eventID int64, email string) (*models.WaitlistEntry, error) {
	entries := r.filter(func(w *models.WaitlistEntry) bool {
		return w.EventID == eventID && w.Pending() && w.RequesterEmail == email
	})
	if len(entries) == 0 {
		return nil, apperrors.NotFoundf("pending waitlist entry for event %d", eventID)
	}
	return &entries[0], nil
}

func (r *waitlistRepo) MaxPosition(ctx context.Context, eventID int64) (int64, error) {
	var max int64
	for _, w := range r.filter(func(w *models.WaitlistEntry) bool { return w.EventID == eventID }) {
		if w.Position > max {
			max = w.Position
		}
	}
	return max, nil
}

func (r *waitlistRepo) NextPending(ctx context.Context, eventID int64) (*models.WaitlistEntry, error) {
	entries := r.filter(func(w *models.WaitlistEntry) bool {
		return w.EventID == eventID && w.Pending()
	})
	if len(entries) == 0 {
		return nil, apperrors.NotFoundf("pending waitlist entry for event %d", eventID)
	}
	sortByPosition(entries)
	return &entries[0], nil
}

func (r *waitlistRepo) MarkConverted(ctx context.Context, id, bookingID int64, at time.Time) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.waitlist[id]
	if !ok || !row.Pending() {
		return apperrors.ErrAlreadyConverted
	}

	prev := *row
	row.Converted = true
	row.ConvertedAt = &at
	row.BookingID = &bookingID
	row.Notified = true
	if row.NotifiedAt == nil {
		row.NotifiedAt = &at
	}
	r.t.record(func() { *row = prev })
	return nil
}

func (r *waitlistRepo) MarkNotified(ctx context.Context, id int64, at time.Time) (bool, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.waitlist[id]
	if !ok || row.Notified {
		return false, nil
	}

	prev := *row
	row.Notified = true
	row.NotifiedAt = &at
	r.t.record(func() { *row = prev })
	return true, nil
}

func (r *waitlistRepo) MarkWithdrawn(ctx context.Context, id int64, at time.Time) (bool, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.waitlist[id]
	if !ok {
		return false, apperrors.NotFoundf("waitlist entry %d", id)
	}
	if row.Converted {
		return false, apperrors.ErrAlreadyConverted
	}
	if row.Withdrawn {
		return false, nil
	}

	prev := *row
	row.Withdrawn = true
	row.WithdrawnAt = &at
	r.t.record(func() { *row = prev })
	return true, nil
}

func (r *waitlistRepo) ListByEvent(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error) {
	entries := r.filter(func(w *models.WaitlistEntry) bool { return w.EventID == eventID })
	sortByPosition(entries)
	return entries, nil
}

func (r *waitlistRepo) ListByOrganizer(ctx context.Context, organizerID int64) ([]models.WaitlistEntry, error) {
	s := r.t.s
	s.mu.Lock()
	owned := make(map[int64]bool)
	for _, ev := range s.eventRows {
		if ev.OrganizerID == organizerID {
			owned[ev.ID] = true
		}
	}
	s.mu.Unlock()

	entries := r.filter(func(w *models.WaitlistEntry) bool { return owned[w.EventID] })
	sortByPosition(entries)
	return entries, nil
}

func (r *waitlistRepo) filter(keep func(*models.WaitlistEntry) bool) []models.WaitlistEntry {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.WaitlistEntry
	for _, row := range s.waitlist {
		if keep(row) {
			entries = append(entries, *row)
		}
	}
	return entries
}

func sortByPosition(entries []models.WaitlistEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].EventID < entries[j].EventID
	})
}

type ticketRepo struct{ t *tx }

func (r *ticketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[ticket.BookingID]; !ok {
		return apperrors.NotFoundf("booking %d", ticket.BookingID)
	}
	for _, existing := range s.tickets {
		if existing.BookingID == ticket.BookingID {
			return apperrors.ErrTicketExists
		}
		if existing.TicketNumber == ticket.TicketNumber || existing.Token == ticket.Token {
			return fmt.Errorf("%w: ticket identifier collision", apperrors.ErrConflict)
		}
	}

	ticket.ID = s.nextID()
	row := *ticket
	s.tickets[row.ID] = &row
	r.t.record(func() { delete(s.tickets, row.ID) })
	return nil
}

func (r *ticketRepo) GetByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.TicketNumber == number }, "ticket %s", number)
}

func (r *ticketRepo) GetByBookingID(ctx context.Context, bookingID int64) (*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.BookingID == bookingID }, "ticket for booking %d", bookingID)
}

func (r *ticketRepo) find(match func(*models.Ticket) bool, format string, args ...any) (*models.Ticket, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.tickets {
		if match(row) {
			t := *row
			return &t, nil
		}
	}
	return nil, apperrors.NotFoundf(format, args...)
}

func (r *ticketRepo) MarkCheckedIn(ctx context.Context, id int64, at time.Time) (bool, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.tickets[id]
	if !ok || row.Status != models.TicketIssued {
		return false, nil
	}

	prev := *row
	row.Status = models.TicketCheckedIn
	row.CheckedInAt = &at
	r.t.record(func() { *row = prev })
	return true, nil
}

func (r *ticketRepo) DeleteIssuedByBookingID(ctx context.Context, bookingID int64) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, row := range s.tickets {
		if row.BookingID == bookingID {
			if row.Status != models.TicketIssued {
				return apperrors.ErrAlreadyCheckedIn
			}
			delete(s.tickets, id)
			id, row := id, row
			r.t.record(func() { s.tickets[id] = row })
		}
	}
	return nil
}

type userRepo struct{ t *tx }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: email %s is taken", apperrors.ErrConflict, user.Email)
		}
	}
	if user.OrganizerID != nil {
		if _, ok := s.organizers[*user.OrganizerID]; !ok {
			return apperrors.Invalidf("organizer %d does not exist", *user.OrganizerID)
		}
	}

	user.ID = s.nextID()
	user.CreatedAt = time.Now().UTC()
	row := *user
	s.users[row.ID] = &row
	r.t.record(func() { delete(s.users, row.ID) })
	return nil
}

func (r *userRepo) GetActiveByID(ctx context.Context, id int64) (*models.User, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.users[id]
	if !ok || row.IsDeleted {
		return nil, apperrors.NotFoundf("user %d", id)
	}
	u := *row
	return &u, nil
}

func (r *userRepo) ListActiveByOrganizer(ctx context.Context, organizerID int64) ([]models.User, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	for _, row := range s.users {
		if !row.IsDeleted && row.OrganizerID != nil && *row.OrganizerID == organizerID {
			users = append(users, *row)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *userRepo) SoftDeleteByOrganizer(ctx context.Context, organizerID int64, at time.Time) ([]int64, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for _, row := range s.users {
		if row.IsDeleted || row.OrganizerID == nil || *row.OrganizerID != organizerID {
			continue
		}
		row, prev := row, *row
		row.IsDeleted = true
		row.DeletedAt = &at
		r.t.record(func() { *row = prev })
		ids = append(ids, row.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type organizerRepo struct{ t *tx }

func (r *organizerRepo) Create(ctx context.Context, organizer *models.Organizer) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	organizer.ID = s.nextID()
	organizer.CreatedAt = time.Now().UTC()
	row := *organizer
	s.organizers[row.ID] = &row
	r.t.record(func() { delete(s.organizers, row.ID) })
	return nil
}

func (r *organizerRepo) GetByID(ctx context.Context, id int64) (*models.Organizer, error) {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.organizers[id]
	if !ok {
		return nil, apperrors.NotFoundf("organizer %d", id)
	}
	o := *row
	return &o, nil
}

func (r *organizerRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	s := r.t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.organizers[id]
	if !ok {
		return apperrors.NotFoundf("organizer %d", id)
	}

	prev := *row
	row.IsDeleted = true
	if row.DeletedAt == nil {
		row.DeletedAt = &at
	}
	r.t.record(func() { *row = prev })
	return nil
}
