// Package httpapi serves the checkout wizard as a JSON API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/application/services"
)

// maxBodyBytes bounds every request body
const maxBodyBytes = 1 << 20

// Deps are the services the API exposes
type Deps struct {
	Checkout  *services.CheckoutService
	Quotes    *services.QuoteService
	Presets   *services.PresetService
	Autosaver *services.Autosaver
	Logger    *zap.Logger
	Tracer    trace.Tracer
	Clock     func() time.Time
}

// Server routes API requests to the application services
type Server struct {
	checkout  *services.CheckoutService
	quotes    *services.QuoteService
	presets   *services.PresetService
	autosaver *services.Autosaver
	sections  services.SectionValidator
	logger    *zap.Logger
	tracer    trace.Tracer
	handler   http.Handler
}

// NewServer builds the API handler
func NewServer(deps Deps) (*Server, error) {
	if deps.Checkout == nil || deps.Quotes == nil || deps.Presets == nil || deps.Autosaver == nil {
		return nil, fmt.Errorf("http server requires checkout, quote, preset and autosave services")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/vsinha/shipcheckout/pkg/interfaces/http")
	}

	s := &Server{
		checkout:  deps.Checkout,
		quotes:    deps.Quotes,
		presets:   deps.Presets,
		autosaver: deps.Autosaver,
		sections:  services.SectionValidator{Calendar: deps.Checkout.Calendar(), Now: deps.Clock},
		logger:    logger,
		tracer:    tracer,
	}
	s.handler = s.recoverPanics(s.traceRequests(s.routes()))
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/presets", s.handleListPresets)
	mux.HandleFunc("POST /api/quotes", s.handleQuote)
	mux.HandleFunc("POST /api/pickup/availability", s.handleAvailability)
	mux.HandleFunc("POST /api/validate/{section}", s.handleValidate)
	mux.HandleFunc("GET /api/receipts/verify", s.handleVerifyReceipt)

	mux.HandleFunc("POST /api/transactions", s.handleCreate)
	mux.HandleFunc("GET /api/transactions", s.handleList)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/transactions/{id}/events", s.handleEvents)
	mux.HandleFunc("PATCH /api/transactions/{id}/draft", s.handleDraft)
	mux.HandleFunc("PUT /api/transactions/{id}/shipment", s.handleSaveShipment)
	mux.HandleFunc("POST /api/transactions/{id}/presets/{preset}", s.handleApplyPreset)
	mux.HandleFunc("POST /api/transactions/{id}/quote", s.handleTransactionQuote)
	mux.HandleFunc("POST /api/transactions/{id}/option", s.handleSelectOption)
	mux.HandleFunc("PUT /api/transactions/{id}/payment", s.handleSubmitPayment)
	mux.HandleFunc("GET /api/transactions/{id}/pickup/availability", s.handlePickupAvailability)
	mux.HandleFunc("PUT /api/transactions/{id}/pickup", s.handleSchedulePickup)
	mux.HandleFunc("GET /api/transactions/{id}/review", s.handleReview)
	mux.HandleFunc("POST /api/transactions/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /api/transactions/{id}/cancel", s.handleCancel)

	return mux
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully
// and flushes pending autosaves
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener, shutdownTimeout)
}

// Serve serves on listener until ctx ends
func (s *Server) Serve(ctx context.Context, listener net.Listener, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.logger.Info("http server listening", zap.String("addr", listener.Addr().String()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown HTTP: %w", err))
	}
	if err := s.autosaver.Close(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("flush autosaves: %w", err))
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("serve HTTP: %w", err))
	}
	s.logger.Info("http server stopped")
	return errors.Join(errs...)
}
