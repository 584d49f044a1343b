package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsinha/shipcheckout/pkg/application/services"
	"github.com/vsinha/shipcheckout/pkg/interfaces/cli/output"
)

// ValidateConfig holds configuration for the validate command
type ValidateConfig struct {
	Section string
	File    string
	Format  string
}

// ErrInvalid is returned after rendering a result that has blocking issues
var ErrInvalid = errors.New("validation failed")

// ValidateCommand checks one wizard section from a JSON file
type ValidateCommand struct {
	config ValidateConfig
	cli    *cli
}

func newValidateCommand(config ValidateConfig, c *cli) *ValidateCommand {
	return &ValidateCommand{config: config, cli: c}
}

func newValidateCmd(c *cli) *cobra.Command {
	var config ValidateConfig
	cmd := &cobra.Command{
		Use:   "validate --section SECTION FILE",
		Short: "Validate a shipment, billing, payment or pickup section",
		Long: `Validate one checkout section from a JSON file ("-" reads stdin).

Examples:
  shipcheckout validate --section shipment shipment.json
  shipcheckout validate --section billing --format json billing.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.File = args[0]
			return newValidateCommand(config, c).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.Section, "section", "s", "", "section to validate: "+strings.Join(services.ValidatableSections, ", "))
	cmd.Flags().StringVarP(&config.Format, "format", "f", output.FormatText, "output format: text, json, csv")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}

// Execute validates the file and renders the findings
func (v *ValidateCommand) Execute(_ context.Context) error {
	if err := output.CheckFormat(v.config.Format); err != nil {
		return err
	}
	cfg, err := v.cli.loadConfig()
	if err != nil {
		return err
	}
	calendar, err := newCalendar(cfg)
	if err != nil {
		return err
	}

	in, err := v.cli.input(v.config.File)
	if err != nil {
		return err
	}
	defer in.Close()
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", v.config.File, err)
	}

	validator := services.SectionValidator{Calendar: calendar, Now: v.cli.now}
	result, err := validator.Validate(v.config.Section, payload)
	if err != nil {
		return err
	}

	if err := output.Validation(strings.ToLower(v.config.Section), result, output.Config{
		Format: v.config.Format,
		Writer: v.cli.opts.Stdout,
	}); err != nil {
		return err
	}
	if !result.Valid() {
		return fmt.Errorf("%w: %d errors", ErrInvalid, len(result.Errors()))
	}
	return nil
}
