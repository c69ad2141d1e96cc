package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"tickethub/internal/auth"
	"tickethub/internal/config"
	"tickethub/internal/database"
	"tickethub/internal/logger"
	"tickethub/internal/models"
	"tickethub/internal/repository"

	"github.com/google/uuid"
)

var (
	organizers   = flag.Int("organizers", 2, "Number of organizers to create")
	staffPerOrg  = flag.Int("staff", 2, "Organizer users per organizer")
	eventsPerOrg = flag.Int("events", 3, "Events per organizer")
	maxCapacity  = flag.Int("capacity", 50, "Upper bound for generated event capacity")
	guests       = flag.Int("guests", 5, "Plain user accounts to create")
	tokenTTL     = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of printed development tokens")
	dryRun       = flag.Bool("dry-run", false, "Show what would be generated without making changes")
)

// Seeder creates development fixtures and prints bearer tokens for them
type Seeder struct {
	store repository.Store
	gate  *auth.Gate
	rnd   *rand.Rand
	run   string
}

func main() {
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting seeder...",
		"organizers", *organizers,
		"staff_per_organizer", *staffPerOrg,
		"events_per_organizer", *eventsPerOrg,
		"guests", *guests)

	if *dryRun {
		slog.Info("Dry run, nothing is written",
			"users", *organizers**staffPerOrg+*guests+1,
			"events", *organizers**eventsPerOrg)
		return
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewPostgresStore(db)
	seeder := &Seeder{
		store: store,
		gate:  auth.NewGate(cfg.Auth.JWTSecret, cfg.Auth.Issuer, store.Repos().Users, nil),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		run:   strings.ToLower(uuid.NewString()[:8]),
	}

	if err := seeder.Seed(context.Background()); err != nil {
		slog.Error("Failed to seed", "error", err)
		os.Exit(1)
	}

	slog.Info("Seeding completed successfully!")
}

func (s *Seeder) Seed(ctx context.Context) error {
	var created []models.User

	err := s.store.WithTx(ctx, func(r repository.Repos) error {
		admin := &models.User{Email: s.email("admin", 0), Role: models.RoleAdmin}
		if err := r.Users.Create(ctx, admin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		created = append(created, *admin)

		for i := 1; i <= *organizers; i++ {
			org := &models.Organizer{Name: fmt.Sprintf("Organizer %s-%d", s.run, i)}
			if err := r.Organizers.Create(ctx, org); err != nil {
				return fmt.Errorf("create organizer: %w", err)
			}

			for j := 1; j <= *staffPerOrg; j++ {
				staff := &models.User{
					Email:       s.email(fmt.Sprintf("staff%d.org", j), org.ID),
					Role:        models.RoleOrganizer,
					OrganizerID: &org.ID,
				}
				if err := r.Users.Create(ctx, staff); err != nil {
					return fmt.Errorf("create staff: %w", err)
				}
				created = append(created, *staff)
			}

			for j := 1; j <= *eventsPerOrg; j++ {
				event := &models.Event{
					OrganizerID: org.ID,
					Title:       fmt.Sprintf("Event %d of organizer %d", j, org.ID),
					Capacity:    s.rnd.Intn(*maxCapacity + 1),
					StartsAt:    time.Now().UTC().Add(time.Duration(s.rnd.Intn(60)+1) * 24 * time.Hour),
				}
				if err := r.Events.Create(ctx, event); err != nil {
					return fmt.Errorf("create event: %w", err)
				}
				slog.Info("Created event", "event_id", event.ID, "organizer_id", org.ID, "capacity", event.Capacity)
			}
		}

		for i := 1; i <= *guests; i++ {
			guest := &models.User{Email: s.email(fmt.Sprintf("guest%d", i), 0), Role: models.RoleUser}
			if err := r.Users.Create(ctx, guest); err != nil {
				return fmt.Errorf("create guest: %w", err)
			}
			created = append(created, *guest)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, u := range created {
		token, err := s.gate.IssueToken(u.ID, u.Role, *tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token for user %d: %w", u.ID, err)
		}
		fmt.Printf("%-8s %-40s %s\n", u.Role, u.Email, token)
	}

	return nil
}

func (s *Seeder) email(local string, organizerID int64) string {
	if organizerID > 0 {
		return fmt.Sprintf("%s%d.%s@tickethub.local", local, organizerID, s.run)
	}
	return fmt.Sprintf("%s.%s@tickethub.local", local, s.run)
}
