package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/shipcheckout/pkg/application/dto"
	"github.com/vsinha/shipcheckout/pkg/application/services"
	domainservices "github.com/vsinha/shipcheckout/pkg/domain/services"
	"github.com/vsinha/shipcheckout/pkg/infrastructure/receipt"
	"github.com/vsinha/shipcheckout/pkg/interfaces/cli/output"
)

func newPresetsCmd(c *cli) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the shipment presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := output.CheckFormat(format); err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := newCatalog(cfg)
			if err != nil {
				return err
			}
			list, err := services.NewPresetService(catalog, nil).List(cmd.Context())
			if err != nil {
				return err
			}
			return output.Presets(list, output.Config{Format: format, Writer: c.opts.Stdout})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatText, "output format: text, json, csv")
	return cmd
}

// PickupSlotsConfig holds configuration for the pickup-slots command
type PickupSlotsConfig struct {
	From    string
	Days    int
	Freight bool
	Format  string
}

func newPickupSlotsCmd(c *cli) *cobra.Command {
	var config PickupSlotsConfig
	cmd := &cobra.Command{
		Use:   "pickup-slots",
		Short: "Show pickup days and slots in the booking window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return pickupSlots(cmd.Context(), c, config)
		},
	}
	cmd.Flags().StringVar(&config.From, "from", "", "first day YYYY-MM-DD (default: first bookable day)")
	cmd.Flags().IntVarP(&config.Days, "days", "d", services.DefaultAvailabilityDays, "number of days to list")
	cmd.Flags().BoolVar(&config.Freight, "freight", false, "list slots for freight pickups")
	cmd.Flags().StringVarP(&config.Format, "format", "f", output.FormatText, "output format: text, json, csv")
	return cmd
}

// pickupSlots lists capacity as configured; bookings held by a running server are not counted
func pickupSlots(_ context.Context, c *cli, config PickupSlotsConfig) error {
	if err := output.CheckFormat(config.Format); err != nil {
		return err
	}
	if config.Days < 1 || config.Days > dto.MaxAvailabilityDays {
		return fmt.Errorf("days must be between 1 and %d", dto.MaxAvailabilityDays)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	calendar, err := newCalendar(cfg)
	if err != nil {
		return err
	}

	now := c.now()
	first, last := calendar.Window(now)
	start := first
	if config.From != "" {
		start, err = calendar.ParseDay(config.From)
		if err != nil {
			return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
		}
	}
	days, err := calendar.Availability(now, start, config.Days, config.Freight, nil)
	if err != nil {
		return err
	}
	return output.Availability(&dto.AvailabilityResponse{
		Timezone:    calendar.Location.String(),
		WindowStart: first.Format(domainservices.DateLayout),
		WindowEnd:   last.Format(domainservices.DateLayout),
		Days:        days,
	}, output.Config{Format: config.Format, Writer: c.opts.Stdout})
}

func newKeygenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 key pair for signing receipts",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			private, public, err := receipt.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.opts.Stdout, "SHIPCHECKOUT_RECEIPT_PRIVATE_KEY=%s\n", private)
			fmt.Fprintf(c.opts.Stdout, "# public key: %s\n", public)
			return nil
		},
	}
}
