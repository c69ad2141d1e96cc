package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"tickethub/internal/cache"
	"tickethub/internal/config"
	"tickethub/internal/database"
	"tickethub/internal/messaging"
	"tickethub/internal/models"
	"tickethub/internal/repository"
	"tickethub/internal/service"

	"github.com/nats-io/stan.go"
)

const queueGroup = "consumers"

type ConsumerService struct {
	db            *database.DB
	nats          *messaging.NATSClient
	identities    *cache.IdentityCache
	store         repository.Store
	services      *service.Services
	handlers      *Handlers
	subscriptions []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, err
	}

	var identities *cache.IdentityCache
	if cfg.Redis.Enabled {
		identities, err = cache.NewIdentityCache(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis, identity eviction is disabled", "error", err)
			identities = nil
		}
	}

	store := repository.NewPostgresStore(db)
	services := service.NewServices(store, natsClient, identities)

	return &ConsumerService{
		db:         db,
		nats:       natsClient,
		identities: identities,
		store:      store,
		services:   services,
		handlers:   NewHandlers(services.Waitlist, identities),
	}, nil
}

// Store exposes the storage used by the consumers, for background jobs.
func (cs *ConsumerService) Store() repository.Store {
	return cs.store
}

// Services exposes the service layer, for background jobs.
func (cs *ConsumerService) Services() *service.Services {
	return cs.services
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	subscriptions := []struct {
		subject string
		handler stan.MsgHandler
	}{
		{models.EventBookingCancelled, cs.handlers.HandleBookingCancelled},
		{models.EventWaitlistPromoted, cs.handlers.HandleWaitlistPromoted},
		{models.EventTicketCheckedIn, cs.handlers.HandleTicketCheckedIn},
		{models.EventOrganizerDeleted, cs.handlers.HandleOrganizerDeleted},
	}

	for _, s := range subscriptions {
		sub, err := cs.nats.SubscribeQueue(s.subject, queueGroup, s.handler)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", s.subject, err)
		}
		cs.subscriptions = append(cs.subscriptions, sub)
	}

	slog.Info("All consumers started successfully", "subscriptions", len(cs.subscriptions))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	for _, sub := range cs.subscriptions {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if err := cs.identities.Close(); err != nil {
		slog.Error("Error closing Redis connection", "error", err)
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
