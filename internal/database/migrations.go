package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createOrganizersTable,
		createUsersTable,
		createUsersOrganizerIndex,
		createEventsTable,
		createBookingsTable,
		createBookingsEmailIndex,
		createWaitlistTable,
		createWaitlistPendingEmailIndex,
		createWaitlistPendingPositionIndex,
		createTicketsTable,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createOrganizersTable = `
CREATE TABLE IF NOT EXISTS organizers (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'user',
    organizer_id BIGINT REFERENCES organizers(id),
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (role IN ('user', 'organizer', 'admin'))
);`

const createUsersOrganizerIndex = `
CREATE INDEX IF NOT EXISTS users_active_organizer_idx
ON users (organizer_id) WHERE NOT is_deleted;`

// Events are weakly owned by organizers: a cascade only soft-deletes users.
const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    organizer_id BIGINT NOT NULL REFERENCES organizers(id),
    title VARCHAR(500) NOT NULL,
    capacity INTEGER NOT NULL,
    confirmed_count INTEGER NOT NULL DEFAULT 0,
    starts_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (capacity >= 0),
    CHECK (confirmed_count >= 0 AND confirmed_count <= capacity)
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    requester_email VARCHAR(255) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'CONFIRMED',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('CONFIRMED'))
);`

const createBookingsEmailIndex = `
CREATE INDEX IF NOT EXISTS bookings_requester_email_idx ON bookings (requester_email);`

const createWaitlistTable = `
CREATE TABLE IF NOT EXISTS waitlist_entries (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    requester_email VARCHAR(255) NOT NULL,
    position BIGINT NOT NULL,
    notified BOOLEAN NOT NULL DEFAULT FALSE,
    notified_at TIMESTAMPTZ,
    converted BOOLEAN NOT NULL DEFAULT FALSE,
    converted_at TIMESTAMPTZ,
    withdrawn BOOLEAN NOT NULL DEFAULT FALSE,
    withdrawn_at TIMESTAMPTZ,
    booking_id BIGINT REFERENCES bookings(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE (event_id, position),
    CHECK (position > 0),
    CHECK (NOT (converted AND withdrawn))
);`

const createWaitlistPendingEmailIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS waitlist_pending_email_idx
ON waitlist_entries (event_id, requester_email) WHERE NOT converted AND NOT withdrawn;`

const createWaitlistPendingPositionIndex = `
CREATE INDEX IF NOT EXISTS waitlist_pending_position_idx
ON waitlist_entries (event_id, position) WHERE NOT converted AND NOT withdrawn;`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id BIGSERIAL PRIMARY KEY,
    booking_id BIGINT UNIQUE NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
    ticket_number VARCHAR(64) UNIQUE NOT NULL,
    token VARCHAR(128) UNIQUE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'ISSUED',
    issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    checked_in_at TIMESTAMPTZ,

    CHECK (status IN ('ISSUED', 'CHECKED_IN'))
);`
