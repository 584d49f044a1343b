package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/application/services"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/config"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/events"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/presets"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/receipt"
	csvrepo "github.com/vsinha/shipcheckout/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/repositories/sqlite"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/secrets"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/telemetry"
)

// App is the assembled checkout service graph
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Calendar  *domainservices.PickupCalendar
	Events    *events.InMemoryEventStore
	Quotes    *services.QuoteService
	Presets   *services.PresetService
	Checkout  *services.CheckoutService
	Autosaver *services.Autosaver

	closers []func() error
}

// BuildApp wires storage, rates, presets, receipts and the application services from cfg
func BuildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger}

	calendar, err := newCalendar(cfg)
	if err != nil {
		return nil, err
	}
	app.Calendar = calendar

	app.Events = events.NewInMemoryEventStore(logger, events.WithRetention(cfg.Checkout.EventRetention))
	audit := events.NewFuncHandler(func(e events.Event) error {
		logger.Debug("checkout event",
			zap.String("type", e.Type()),
			zap.String("stream", e.StreamID()),
			zap.Int("version", e.Version()))
		return nil
	})
	if err := app.Events.Subscribe([]string{events.Wildcard}, audit); err != nil {
		return nil, fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	quotes, err := newQuoteService(cfg, calendar, app.Events, logger, nil)
	if err != nil {
		return nil, err
	}
	app.Quotes = quotes

	catalog, err := newCatalog(cfg)
	if err != nil {
		return nil, err
	}
	app.Presets = services.NewPresetService(catalog, logger)

	repo, err := app.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	signer, err := newSigner(cfg, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	checkout, err := services.NewCheckoutService(services.CheckoutDeps{
		Transactions: repo,
		Quotes:       quotes,
		Presets:      app.Presets,
		Calendar:     calendar,
		Receipts:     signer,
		PINs:         secrets.NewPINHasher(secrets.DefaultParams),
		Events:       app.Events,
		Logger:       logger,
		Tracer:       telemetry.Tracer(),
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to create checkout service: %w", err)
	}
	app.Checkout = checkout
	app.Autosaver = services.NewAutosaver(checkout.AutosaveDraft, cfg.Checkout.AutosaveDelay, logger)
	return app, nil
}

// Close drains event delivery and releases storage. Pending autosaves are
// flushed by the HTTP server on shutdown.
func (a *App) Close() error {
	if a.Events != nil {
		a.Events.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStorage(ctx context.Context) (repositories.TransactionRepository, error) {
	switch a.Config.Storage.Backend {
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, a.Config.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.Logger.Info("using sqlite storage", zap.String("path", a.Config.Storage.SQLitePath))
		return store, nil
	default:
		a.Logger.Info("using in-memory storage")
		return memory.NewTransactionRepository(64), nil
	}
}

func newCalendar(cfg config.Config) (*domainservices.PickupCalendar, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cutoff, err := cfg.CutoffMinutes()
	if err != nil {
		return nil, err
	}
	calendar := domainservices.NewPickupCalendar(loc)
	calendar.CutoffMinutes = cutoff
	if cfg.Pickup.HorizonDays > 0 {
		calendar.HorizonDays = cfg.Pickup.HorizonDays
	}
	if cfg.Pickup.SlotCapacity > 0 {
		calendar.SlotCapacity = cfg.Pickup.SlotCapacity
	}
	return calendar, nil
}

func newQuoteService(cfg config.Config, calendar *domainservices.PickupCalendar, store events.EventStore, logger *zap.Logger, clock func() time.Time) (*services.QuoteService, error) {
	quotes, err := services.NewQuoteService(services.QuoteConfig{
		Rates:     csvrepo.NewRateTable(cfg.Checkout.RatesPath),
		Calendar:  calendar,
		TTL:       cfg.Checkout.QuoteTTL,
		CacheSize: cfg.Checkout.QuoteCacheSize,
		Events:    store,
		Logger:    logger,
		Tracer:    telemetry.Tracer(),
		Clock:     clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quote service: %w", err)
	}
	return quotes, nil
}

func newCatalog(cfg config.Config) (*presets.Catalog, error) {
	if cfg.Checkout.PresetsPath == "" {
		return presets.Builtin()
	}
	catalog, err := presets.Load(cfg.Checkout.PresetsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load presets: %w", err)
	}
	return catalog, nil
}

// newSigner uses the configured key, or an ephemeral one whose receipts stop
// verifying after a restart
func newSigner(cfg config.Config, logger *zap.Logger) (*receipt.Signer, error) {
	encoded := cfg.Receipt.PrivateKey
	if encoded == "" {
		private, _, err := receipt.GenerateKey()
		if err != nil {
			return nil, err
		}
		logger.Warn("no receipt signing key configured; using an ephemeral key",
			zap.String("env", config.EnvPrefix+"RECEIPT_PRIVATE_KEY"))
		encoded = private
	}
	key, err := receipt.DecodePrivateKey(encoded)
	if err != nil {
		return nil, err
	}
	signer, err := receipt.NewSigner(receipt.Config{
		Issuer:   cfg.Receipt.Issuer,
		Audience: cfg.Receipt.Audience,
		Key:      key,
		TTL:      cfg.Receipt.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt signer: %w", err)
	}
	return signer, nil
}
