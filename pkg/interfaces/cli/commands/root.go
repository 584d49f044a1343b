// Package commands implements the shipcheckout command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/infrastructure/config"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/logging"
)

// Options configure the root command; zero values use the process defaults
type Options struct {
	Version string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	// Environment replaces the process environment when non-nil
	Environment map[string]string
	// Now overrides the clock for commands that depend on today's date
	Now func() time.Time
}

// cli is shared by every subcommand
type cli struct {
	opts       Options
	configPath string
}

func (r *cli) loadConfig() (config.Config, error) {
	cfg, err := config.LoadWithEnv(r.configPath, r.opts.Environment)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (r *cli) logger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

func (r *cli) now() time.Time {
	if r.opts.Now != nil {
		return r.opts.Now()
	}
	return time.Now()
}

// input opens path for reading; "-" reads standard input
func (r *cli) input(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(r.opts.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// NewRootCommand builds the shipcheckout command tree
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	rt := &cli{opts: opts}

	root := &cobra.Command{
		Use:           "shipcheckout",
		Short:         "B2B shipping checkout service",
		Long:          "shipcheckout prices shipments, walks them through the checkout wizard and books carrier pickups.",
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	root.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "path to a YAML config file (env SHIPCHECKOUT_* overrides it)")

	root.AddCommand(
		newServeCmd(rt),
		newValidateCmd(rt),
		newQuoteCmd(rt),
		newPresetsCmd(rt),
		newPickupSlotsCmd(rt),
		newKeygenCmd(rt),
	)
	return root
}

// Execute runs the command line and returns the error to report, if any
func Execute(ctx context.Context, opts Options, args []string) error {
	root := NewRootCommand(opts)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
