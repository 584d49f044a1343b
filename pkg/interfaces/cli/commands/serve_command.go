package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/infrastructure/telemetry"
	httpapi "github.com/vsinha/shipcheckout/pkg/interfaces/http"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	// Addr overrides http.addr from the configuration when set
	Addr string
}

// ServeCommand runs the HTTP API until interrupted
type ServeCommand struct {
	config ServeConfig
	cli    *cli
}

// newServeCommand creates a serve command with the given configuration
func newServeCommand(config ServeConfig, c *cli) *ServeCommand {
	return &ServeCommand{config: config, cli: c}
}

func newServeCmd(c *cli) *cobra.Command {
	var config ServeConfig
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return newServeCommand(config, c).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.Addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

// Execute serves until SIGINT or SIGTERM, then drains requests and autosaves
func (s *ServeCommand) Execute(ctx context.Context) (err error) {
	cfg, err := s.cli.loadConfig()
	if err != nil {
		return err
	}
	if s.config.Addr != "" {
		cfg.HTTP.Addr = s.config.Addr
	}

	logger, err := s.cli.logger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := shutdownTracing(flushCtx); shutdownErr != nil {
			logger.Warn("failed to flush traces", zap.Error(shutdownErr))
		}
	}()

	app, err := BuildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, app.Close())
	}()

	server, err := httpapi.NewServer(httpapi.Deps{
		Checkout:  app.Checkout,
		Quotes:    app.Quotes,
		Presets:   app.Presets,
		Autosaver: app.Autosaver,
		Logger:    logger,
		Tracer:    telemetry.Tracer(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting shipcheckout",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("timezone", cfg.Checkout.Timezone))
	return server.ListenAndServe(ctx, cfg.HTTP.Addr, cfg.HTTP.ShutdownTimeout)
}
