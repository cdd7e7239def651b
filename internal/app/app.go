package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"analog-exit/internal/alerting"
	"analog-exit/internal/config"
	"analog-exit/internal/scheduler"
	"analog-exit/internal/series"
	"analog-exit/internal/service"
	"analog-exit/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newService wires the engine. A nil store disables persistence and alert auditing.
func (a *App) newService(cfg *config.Config, store *storage.Store, sched *scheduler.Scheduler, notifier alerting.Notifier) (*service.Service, error) {
	deps := service.Deps{Scheduler: sched, Notifier: notifier}
	if store != nil {
		deps.Series = store
		deps.Decisions = store
		deps.AlertStore = store
	}
	return service.New(cfg, deps, a.Logger)
}

// Run executes the long-running evaluation service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; run needs stored series")
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: true,
	}, a.Logger)

	svc, err := a.newService(a.Config, store, sched, a.newNotifier())
	if err != nil {
		return err
	}

	a.Logger.Info().Msg("starting evaluation service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("evaluation service stopped")
	return nil
}

// loadPool reads series from a JSON file, or from the store when path is empty.
func (a *App) loadPool(ctx context.Context, path string, svc *service.Service) (*series.Pool, error) {
	if path == "" {
		pool, err := svc.LoadPool(ctx)
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, errors.New("either --input or database.dsn is required")
		}
		return pool, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return series.ReadPool(file)
}

// EvaluateOptions configure a one-shot evaluation.
type EvaluateOptions struct {
	InputPath string
	Limit     int
	Metric    string
	DryRun    bool
	Output    io.Writer
}

// ExportOptions configure trajectory export for one order.
type ExportOptions struct {
	OrderID   string
	InputPath string
	PNGPath   string
	CSVPath   string
	MaxSeries int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit   int
	OrderID string
}

// IngestOptions configure loading series into the store.
type IngestOptions struct {
	InputPath string
	DryRun    bool
}
