package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/psds-microservice/complaint-service/internal/config"
	"github.com/psds-microservice/complaint-service/internal/database"
	"github.com/psds-microservice/complaint-service/internal/handler"
	"github.com/psds-microservice/complaint-service/internal/kafka"
	"github.com/psds-microservice/complaint-service/internal/router"
	"github.com/psds-microservice/complaint-service/internal/service"
	"github.com/psds-microservice/complaint-service/internal/store/gormstore"
)

// API is the HTTP application plus the after-hours attendance sweep.
type API struct {
	cfg        *config.Config
	httpSrv    *http.Server
	attendance *service.Attendance
	producer   *kafka.Producer
}

// NewAPI wires config, database, stores, services and handlers.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	st := gormstore.New(db)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	engine := service.NewEngine(st)
	lifecycle := service.NewLifecycle(st, engine, producer, nil)
	window := service.WorkWindow{Start: cfg.WorkDayStart, End: cfg.WorkDayEnd}
	attendance := service.NewAttendance(st, window, nil)

	ticketHandler := handler.NewTicketHandler(lifecycle)
	attendanceHandler := handler.NewAttendanceHandler(attendance)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(ticketHandler, attendanceHandler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:        cfg,
		httpSrv:    httpSrv,
		attendance: attendance,
		producer:   producer,
	}, nil
}

// Run starts the HTTP server and the sweep scheduler, blocks until ctx is
// cancelled, then shuts down gracefully.
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

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	go service.StartSweepScheduler(ctx, a.attendance, a.cfg.SweepSchedule)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.producer.Close(); err != nil {
		log.Printf("kafka close: %v", err)
	}
	return nil
}
