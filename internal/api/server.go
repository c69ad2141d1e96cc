package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"tickethub/internal/auth"
	"tickethub/internal/cache"
	"tickethub/internal/config"
	"tickethub/internal/database"
	"tickethub/internal/handlers"
	"tickethub/internal/messaging"
	"tickethub/internal/middleware"
	"tickethub/internal/models"
	"tickethub/internal/repository"
	"tickethub/internal/repository/memory"
	"tickethub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the server is built from. DB is optional and
// only feeds the health check.
type Deps struct {
	Store      repository.Store
	Publisher  messaging.Publisher
	Identities *cache.IdentityCache
	DB         *database.DB
	NATS       *messaging.NATSClient
}

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	deps     Deps
	services *service.Services
	gate     *auth.Gate
}

// New builds a server from already connected dependencies.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Publisher == nil {
		deps.Publisher = messaging.NopPublisher{}
	}

	services := service.NewServices(deps.Store, deps.Publisher, deps.Identities)
	gate := auth.NewGate(cfg.Auth.JWTSecret, cfg.Auth.Issuer, deps.Store.Repos().Users, deps.Identities)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		deps:     deps,
		services: services,
		gate:     gate,
	}

	server.setupRoutes()

	return server
}

// NewServer создает новый экземпляр сервера, подключаясь к хранилищу,
// NATS и Redis согласно конфигурации
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	deps := Deps{}

	switch cfg.StorageDriver {
	case config.StorageMemory:
		slog.Warn("Using in-memory storage, data is lost on restart")
		deps.Store = memory.NewStore()
	case config.StoragePostgres:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		deps.DB = db
		deps.Store = repository.NewPostgresStore(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.NATS.Enabled {
		natsClient, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			slog.Error("Failed to connect to NATS, domain events are disabled", "error", err)
		} else {
			deps.NATS = natsClient
			deps.Publisher = natsClient
		}
	}

	if cfg.Redis.Enabled {
		identities, err := cache.NewIdentityCache(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis, identity cache is disabled", "error", err)
		} else {
			deps.Identities = identities
		}
	}

	return New(cfg, deps), nil
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.Timeout(s.config.RequestTimeout))
	// Обязательная Bearer авторизация для всех API роутов
	api.Use(middleware.BearerAuth(s.gate))
	{
		events := api.Group("/events")
		{
			events.POST("", middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin), h.CreateEvent)
			events.GET("/:id", h.GetEvent)
			events.PATCH("/:id/capacity", h.ResizeEvent)
			events.POST("/:id/bookings", h.CreateBooking)
			events.GET("/:id/bookings", h.ListEventBookings)
			events.POST("/:id/waitlist", h.JoinWaitlist)
			events.GET("/:id/waitlist", h.ListEventWaitlist)
			events.GET("/:id/waitlist/stats", h.WaitlistStats)
			events.POST("/:id/waitlist/promote", h.PromoteNext)
		}

		bookings := api.Group("/bookings")
		{
			bookings.GET("", h.ListBookings)
			bookings.DELETE("/:id", h.CancelBooking)
			bookings.POST("/:id/ticket", h.IssueTicket)
			bookings.GET("/:id/ticket", h.GetBookingTicket)
		}

		waitlist := api.Group("/waitlist")
		{
			waitlist.POST("/:id/notify", h.NotifyWaitlistEntry)
			waitlist.DELETE("/:id", h.WithdrawWaitlistEntry)
		}

		tickets := api.Group("/tickets")
		{
			tickets.GET("/:number", h.GetTicket)
			tickets.POST("/:number/check-in", h.CheckInTicket)
		}

		organizers := api.Group("/organizers")
		{
			organizers.GET("/:id/events", h.ListOrganizerEvents)
			organizers.GET("/:id/waitlist", h.ListOrganizerWaitlist)
			organizers.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), h.DeleteOrganizer)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	response := gin.H{
		"status":  "ok",
		"service": "tickethub-api",
		"storage": s.config.StorageDriver,
	}

	if s.deps.DB != nil {
		check := s.deps.DB.HealthCheck(c.Request.Context())
		response["database"] = check
		if check.Status != "healthy" {
			response["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

// Handler возвращает роутер для http.Server и тестов
func (s *Server) Handler() http.Handler {
	return s.router
}

// Gate exposes the identity gate, used to mint development tokens.
func (s *Server) Gate() *auth.Gate {
	return s.gate
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.deps.NATS != nil {
		if err := s.deps.NATS.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if err := s.deps.Identities.Close(); err != nil {
		slog.Error("Error closing Redis connection", "error", err)
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
