package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/supportchat-backend/internal/data/db"
	"github.com/yungbote/supportchat-backend/internal/http"
	"github.com/yungbote/supportchat-backend/internal/observability"
	"github.com/yungbote/supportchat-backend/internal/pkg/logger"
	"github.com/yungbote/supportchat-backend/internal/platform/events"
	"github.com/yungbote/supportchat-backend/internal/realtime"
	"github.com/yungbote/supportchat-backend/internal/realtime/bus"
	"github.com/yungbote/supportchat-backend/internal/services"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Server    *http.Server
	Cfg       Config
	Repos     Repos
	Services  Services
	Metrics   *observability.Metrics
	Hub       *realtime.Hub
	Bus       bus.Bus
	Publisher events.Publisher

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.UsesDefaultSecret() {
		log.Warn("JWT_SECRET_KEY is the development default; set it before exposing this server")
	}

	otelShutdown := observability.InitOTel(context.Background(), log, cfg.Otel)

	dbService, err := db.NewService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB()

	metrics := observability.NewMetrics()
	hub := realtime.NewHub(log, metrics)

	frameBus, err := wireBus(log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	publisher, err := wirePublisher(log, cfg)
	if err != nil {
		_ = frameBus.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, metrics, &services.BusEmitter{Bus: frameBus, Log: log}, publisher)
	if err != nil {
		_ = publisher.Close()
		_ = frameBus.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, cfg, serviceset, hub, metrics)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Hub:          hub,
		Bus:          frameBus,
		Publisher:    publisher,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

func wireBus(log *logger.Logger, cfg Config) (bus.Bus, error) {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		log.Info("REDIS_ADDR unset; realtime frames stay on this node")
		return bus.NewLocalBus(), nil
	}
	b, err := bus.NewRedisBus(log, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init realtime bus: %w", err)
	}
	return b, nil
}

func wirePublisher(log *logger.Logger, cfg Config) (events.Publisher, error) {
	if strings.TrimSpace(cfg.Events.URL) == "" {
		log.Info("AMQP_URL unset; handoff events are not published")
		return events.NopPublisher{}, nil
	}
	p, err := events.NewAMQPPublisher(context.Background(), cfg.Events, log)
	if err != nil {
		return nil, fmt.Errorf("init event publisher: %w", err)
	}
	return p, nil
}

func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	// Bus -> local hub
	if err := a.Bus.StartForwarder(ctx, func(env realtime.Envelope) {
		a.Hub.Broadcast(env)
	}); err != nil {
		cancel()
		a.cancel = nil
		return fmt.Errorf("start realtime forwarder: %w", err)
	}

	// Assistant workers
	if a.Services.Responder != nil {
		a.Services.Responder.Start(ctx)
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(a.Cfg.HTTPAddr)
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded by ctx.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		if a.Services.Responder != nil {
			a.Services.Responder.Wait()
		}
	}

	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.dbService != nil {
		errs = append(errs, a.dbService.Close())
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		errs = append(errs, a.otelShutdown(ctx))
		cancel()
	}
	if err := errors.Join(errs...); err != nil && a.Log != nil {
		a.Log.Warn("shutdown finished with errors", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
