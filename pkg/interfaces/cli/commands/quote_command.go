package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/shipcheckout/pkg/application/dto"
	"github.com/vsinha/shipcheckout/pkg/interfaces/cli/output"
)

// QuoteConfig holds configuration for the quote command
type QuoteConfig struct {
	File     string
	Format   string
	ShipDate string
	// RatesFile overrides checkout.rates_path from the configuration
	RatesFile string
}

// QuoteCommand prices a shipment described in a JSON file
type QuoteCommand struct {
	config QuoteConfig
	cli    *cli
}

func newQuoteCommand(config QuoteConfig, c *cli) *QuoteCommand {
	return &QuoteCommand{config: config, cli: c}
}

func newQuoteCmd(c *cli) *cobra.Command {
	var config QuoteConfig
	cmd := &cobra.Command{
		Use:   "quote FILE",
		Short: "Price a shipment against the rate table",
		Long: `Price the origin, destination and package in FILE ("-" reads stdin).

Examples:
  shipcheckout quote shipment.json
  shipcheckout quote --format csv --ship-date 2026-10-21 shipment.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.File = args[0]
			return newQuoteCommand(config, c).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.Format, "format", "f", output.FormatText, "output format: text, json, csv")
	cmd.Flags().StringVar(&config.ShipDate, "ship-date", "", "ship date YYYY-MM-DD (default: first pickup day)")
	cmd.Flags().StringVar(&config.RatesFile, "rates", "", "rate table CSV (default: built-in rates)")
	return cmd
}

// Execute prices the shipment and renders the ranked options
func (q *QuoteCommand) Execute(ctx context.Context) error {
	if err := output.CheckFormat(q.config.Format); err != nil {
		return err
	}
	cfg, err := q.cli.loadConfig()
	if err != nil {
		return err
	}
	if q.config.RatesFile != "" {
		cfg.Checkout.RatesPath = q.config.RatesFile
	}
	logger, err := q.cli.logger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	in, err := q.cli.input(q.config.File)
	if err != nil {
		return err
	}
	defer in.Close()

	var req dto.QuoteRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("failed to parse %s: %w", q.config.File, err)
	}
	if q.config.ShipDate != "" {
		req.ShipDate = q.config.ShipDate
	}

	calendar, err := newCalendar(cfg)
	if err != nil {
		return err
	}
	quotes, err := newQuoteService(cfg, calendar, nil, logger, q.cli.now)
	if err != nil {
		return err
	}
	resp, err := quotes.Quote(ctx, req)
	if err != nil {
		return err
	}
	return output.Quote(resp, output.Config{Format: q.config.Format, Writer: q.cli.opts.Stdout})
}
