package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/shipcheckout/pkg/application/dto"
	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/cache"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/events"
)

// Quote service defaults
const (
	DefaultQuoteTTL       = 15 * time.Minute
	DefaultQuoteCacheSize = 256
)

// QuoteConfig holds the quote service dependencies
type QuoteConfig struct {
	Rates     repositories.RateRepository
	Calendar  *domainservices.PickupCalendar
	TTL       time.Duration
	CacheSize int
	Events    events.EventStore
	Logger    *zap.Logger
	Tracer    trace.Tracer
	Clock     func() time.Time
}

// QuoteService prices shipments against the rate table and caches the result
type QuoteService struct {
	rates    repositories.RateRepository
	calendar *domainservices.PickupCalendar
	ttl      time.Duration
	cache    *cache.Cache[entities.Quote]
	events   events.EventStore
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewQuoteService creates a quote service
func NewQuoteService(cfg QuoteConfig) (*QuoteService, error) {
	if cfg.Rates == nil {
		return nil, fmt.Errorf("quote service requires a rate repository")
	}
	if cfg.Calendar == nil {
		cfg.Calendar = domainservices.NewPickupCalendar(time.UTC)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultQuoteTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultQuoteCacheSize
	}
	logger := loggerOrNop(cfg.Logger)
	now := clockOrNow(cfg.Clock)

	return &QuoteService{
		rates:    cfg.Rates,
		calendar: cfg.Calendar,
		ttl:      cfg.TTL,
		cache: cache.New[entities.Quote](cfg.CacheSize, cfg.TTL,
			cache.WithClock(now), cache.WithLogger(logger), cache.WithName("quotes")),
		events: cfg.Events,
		logger: logger,
		tracer: tracerOrGlobal(cfg.Tracer),
		now:    now,
	}, nil
}

// Calendar returns the calendar used for ship dates and delivery estimates
func (s *QuoteService) Calendar() *domainservices.PickupCalendar {
	return s.calendar
}

// CacheStats reports quote cache activity
func (s *QuoteService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Quote validates the request and returns ranked options. Identical requests
// within the quote TTL are served from the cache.
func (s *QuoteService) Quote(ctx context.Context, req dto.QuoteRequest) (*dto.QuoteResponse, error) {
	return s.QuoteFor(ctx, "", req)
}

// QuoteFor prices a request on behalf of a transaction; the quote event is
// recorded on the transaction's stream
func (s *QuoteService) QuoteFor(ctx context.Context, transactionID string, req dto.QuoteRequest) (resp *dto.QuoteResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "QuoteService.Quote")
	defer func() { finishSpan(span, err) }()
	defer func() {
		if err == nil {
			s.publish(transactionID, resp)
		}
	}()

	if result := req.Validate(); !result.Valid() {
		return nil, apperrors.Validation("quote request is invalid", result)
	}

	now := s.now()
	shipDate, err := s.shipDate(req.ShipDate, now)
	if err != nil {
		return nil, err
	}

	key, err := fingerprint(req.Shipment(), shipDate)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to fingerprint quote request", err)
	}
	span.SetAttributes(attribute.String("quote.fingerprint", key))

	if cached, ok := s.cache.Get(key); ok {
		// A cache hit is a new offer of the same prices, valid for a full TTL
		quote := copyQuote(cached)
		quote.QuotedAt = now.UTC()
		quote.ExpiresAt = now.UTC().Add(s.ttl)
		span.SetAttributes(attribute.Bool("quote.cached", true))
		s.logger.Debug("quote served from cache", zap.String("quote_id", quote.ID))
		return &dto.QuoteResponse{Quote: quote, Cached: true}, nil
	}

	options, err := s.price(ctx, req.Shipment(), shipDate)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, apperrors.New(apperrors.CodeNoServiceOptions, "no service can carry this shipment")
	}

	quote := entities.Quote{
		ID:        uuid.NewString(),
		Options:   options,
		ShipDate:  shipDate,
		QuotedAt:  now.UTC(),
		ExpiresAt: now.UTC().Add(s.ttl),
	}
	s.cache.Set(key, copyQuote(quote))

	span.SetAttributes(attribute.String("quote.id", quote.ID), attribute.Int("quote.options", len(options)))
	s.logger.Info("quote issued",
		zap.String("quote_id", quote.ID),
		zap.Int("options", len(options)),
		zap.String("ship_date", shipDate.Format(domainservices.DateLayout)))
	return &dto.QuoteResponse{Quote: quote}, nil
}

func (s *QuoteService) publish(transactionID string, resp *dto.QuoteResponse) {
	if s.events == nil || resp == nil {
		return
	}
	stream := transactionID
	if stream == "" {
		stream = "quotes"
	}
	event := events.NewEvent(events.QuoteIssuedEvent, stream, events.QuoteIssued{
		TransactionID: transactionID,
		QuoteID:       resp.Quote.ID,
		Options:       len(resp.Quote.Options),
		Cached:        resp.Cached,
	}, s.now())
	if err := s.events.AppendEvent(stream, event); err != nil {
		s.logger.Warn("failed to record quote event", zap.Error(err))
	}
}

func (s *QuoteService) shipDate(value string, now time.Time) (time.Time, error) {
	first, _ := s.calendar.Window(now)
	if value == "" {
		return first, nil
	}
	day, err := s.calendar.ParseDay(value)
	if err != nil {
		return time.Time{}, apperrors.New(apperrors.CodeInvalidArgument, "ship date must be YYYY-MM-DD")
	}
	if day.Before(first) {
		return first, nil
	}
	return day, nil
}

// price runs the calculator for each rate entry concurrently
func (s *QuoteService) price(ctx context.Context, shipment entities.Shipment, shipDate time.Time) ([]entities.PricingOption, error) {
	table, err := s.rates.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate table: %w", err)
	}
	calc := domainservices.NewRateCalculator(table, s.calendar)

	priced := make([]*entities.PricingOption, len(table))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range table {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if option, ok := calc.Price(entry, shipment, shipDate); ok {
				priced[i] = &option
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to price shipment: %w", err)
	}

	options := make([]entities.PricingOption, 0, len(priced))
	for _, option := range priced {
		if option != nil {
			options = append(options, *option)
		}
	}
	domainservices.RankOptions(options)
	return options, nil
}

// fingerprint identifies a pricing request by everything that affects the price
func fingerprint(shipment entities.Shipment, shipDate time.Time) (string, error) {
	data, err := json.Marshal(struct {
		Origin      entities.Address     `json:"origin"`
		Destination entities.Address     `json:"destination"`
		Package     entities.PackageInfo `json:"package"`
		ShipDate    string               `json:"shipDate"`
	}{
		Origin:      locationOnly(shipment.Origin),
		Destination: locationOnly(shipment.Destination),
		Package:     shipment.Package,
		ShipDate:    shipDate.Format(domainservices.DateLayout),
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// locationOnly drops the contact so two senders at one address share a quote
func locationOnly(a entities.Address) entities.Address {
	return entities.Address{
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		LocationType: a.LocationType,
	}
}

func copyQuote(q entities.Quote) entities.Quote {
	options := make([]entities.PricingOption, len(q.Options))
	for i, option := range q.Options {
		option.Tags = append([]string(nil), option.Tags...)
		option.Features = append([]string(nil), option.Features...)
		option.Charges.Accessorials = append([]entities.Fee(nil), option.Charges.Accessorials...)
		options[i] = option
	}
	q.Options = options
	return q
}
