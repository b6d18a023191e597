package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/psds-microservice/portal-service/internal/config"
	"github.com/psds-microservice/portal-service/internal/database"
	"github.com/psds-microservice/portal-service/internal/handler"
	"github.com/psds-microservice/portal-service/internal/kafka"
	"github.com/psds-microservice/portal-service/internal/notify"
	"github.com/psds-microservice/portal-service/internal/relay"
	"github.com/psds-microservice/portal-service/internal/router"
	"github.com/psds-microservice/portal-service/internal/service"
)

// API is the portal HTTP application (mode api).
type API struct {
	cfg      *config.Config
	httpSrv  *http.Server
	producer *kafka.Producer
}

// NewAPI wires config -> migrations -> database -> services -> router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	chatSvc := service.NewChatService(db)
	projectSvc := service.NewProjectService(db)
	contactSvc := service.NewContactService(db)
	userSvc := service.NewUserService(db)

	hub := relay.NewHub()
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	notifier := notify.NewClient(cfg.NotifyServiceURL)

	handlers := router.Deps{
		Chat:           handler.NewChatHandler(chatSvc, hub, producer),
		WS:             handler.NewWSHandler(chatSvc, hub),
		Project:        handler.NewProjectHandler(projectSvc),
		Contact:        handler.NewContactHandler(contactSvc, notifier, producer),
		User:           handler.NewUserHandler(userSvc),
		Users:          userSvc,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(handlers),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:      cfg,
		httpSrv:  httpSrv,
		producer: producer,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.httpSrv.Addr)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Swagger spec:  %s/swagger/openapi.json", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  API v1:        %s/api/v1/", base)
	log.Printf("  Websocket:     ws://%s:%s/ws", host, a.cfg.HTTPPort)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.producer.Close(); err != nil {
		log.Printf("kafka: close: %v", err)
	}
	return nil
}
