// Package output renders CLI results as text, JSON or CSV.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vsinha/shipcheckout/pkg/application/dto"
	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/validation"
)

// Formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Formats lists the accepted output formats
var Formats = []string{FormatText, FormatJSON, FormatCSV}

// Config holds configuration for output generation
type Config struct {
	Format string
	Writer io.Writer
	// Language selects number and currency formatting for text output
	Language language.Tag
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

func (c Config) printer() *message.Printer {
	tag := c.Language
	if tag == language.Und {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag)
}

// CheckFormat rejects unknown formats before any work is done
func CheckFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatCSV:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (expected %s)", format, strings.Join(Formats, ", "))
	}
}

// Quote renders a priced quote
func Quote(resp *dto.QuoteResponse, config Config) error {
	switch config.Format {
	case FormatText:
		return quoteText(resp, config)
	case FormatJSON:
		return writeJSON(config.writer(), resp)
	case FormatCSV:
		return quoteCSV(resp, config.writer())
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func quoteText(resp *dto.QuoteResponse, config Config) error {
	w := config.writer()
	p := config.printer()
	q := resp.Quote

	p.Fprintf(w, "Quote %s\n", q.ID)
	p.Fprintf(w, "Ship date: %s  Expires: %s", q.ShipDate.Format("2006-01-02"), q.ExpiresAt.Format("2006-01-02 15:04 MST"))
	if resp.Cached {
		p.Fprintf(w, "  (cached)")
	}
	p.Fprintf(w, "\n\n")

	p.Fprintf(w, "%-22s %-26s %-20s %6s %14s\n", "Option", "Service", "Carrier", "Days", "Total")
	p.Fprintf(w, "%-22s %-26s %-20s %6s %14s\n",
		strings.Repeat("-", 22), strings.Repeat("-", 26), strings.Repeat("-", 20), "------", strings.Repeat("-", 14))
	for _, opt := range q.Options {
		p.Fprintf(w, "%-22s %-26s %-20s %6d %14s\n",
			opt.ID, opt.ServiceName, opt.Carrier, opt.TransitDays, Money(p, opt.Charges.Total, opt.Currency))
	}
	return nil
}

func quoteCSV(resp *dto.QuoteResponse, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"option_id", "category", "service_code", "service_name", "carrier",
		"transit_days", "estimated_delivery", "base_rate", "fuel_surcharge", "insurance", "accessorials", "total", "currency"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, opt := range resp.Quote.Options {
		record := []string{
			opt.ID,
			string(opt.Category),
			opt.ServiceCode,
			opt.ServiceName,
			opt.Carrier,
			strconv.Itoa(opt.TransitDays),
			opt.EstimatedDelivery.Format("2006-01-02"),
			opt.Charges.BaseRate.StringFixed(2),
			opt.Charges.FuelSurcharge.StringFixed(2),
			opt.Charges.Insurance.StringFixed(2),
			opt.Charges.AccessorialTotal().StringFixed(2),
			opt.Charges.Total.StringFixed(2),
			opt.Currency,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Validation renders a section validation result
func Validation(section string, result validation.Result, config Config) error {
	switch config.Format {
	case FormatText:
		w := config.writer()
		if len(result.Issues) == 0 {
			fmt.Fprintf(w, "%s: valid\n", section)
			return nil
		}
		status := "valid with warnings"
		if !result.Valid() {
			status = "invalid"
		}
		fmt.Fprintf(w, "%s: %s (%d errors, %d warnings)\n", section, status, len(result.Errors()), len(result.Warnings()))
		for _, issue := range result.Issues {
			fmt.Fprintf(w, "  %s\n", issue)
		}
		return nil
	case FormatJSON:
		issues := result.Issues
		if issues == nil {
			issues = []validation.Issue{}
		}
		return writeJSON(config.writer(), struct {
			Section string             `json:"section"`
			Valid   bool               `json:"valid"`
			Issues  []validation.Issue `json:"issues"`
		}{section, result.Valid(), issues})
	case FormatCSV:
		rows := make([][]string, 0, len(result.Issues))
		for _, issue := range result.Issues {
			rows = append(rows, []string{issue.Field, string(issue.Severity), issue.Code, issue.Rule, issue.Message})
		}
		return writeCSV(config.writer(), []string{"field", "severity", "code", "rule", "message"}, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// Presets renders the preset catalog
func Presets(presets []entities.Preset, config Config) error {
	switch config.Format {
	case FormatText:
		w := config.writer()
		fmt.Fprintf(w, "%-20s %-28s %s\n", "ID", "Name", "Route")
		for _, preset := range presets {
			route := preset.Shipment.Origin.City + " -> " + preset.Shipment.Destination.City
			fmt.Fprintf(w, "%-20s %-28s %s\n", preset.ID, preset.Name, route)
		}
		return nil
	case FormatJSON:
		return writeJSON(config.writer(), presets)
	case FormatCSV:
		rows := make([][]string, 0, len(presets))
		for _, preset := range presets {
			rows = append(rows, []string{preset.ID, preset.Name, preset.Description,
				preset.Shipment.Origin.PostalCode, preset.Shipment.Destination.PostalCode, string(preset.Shipment.Package.Type)})
		}
		return writeCSV(config.writer(), []string{"id", "name", "description", "origin_postal_code", "destination_postal_code", "package_type"}, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// Availability renders pickup days and their slots
func Availability(resp *dto.AvailabilityResponse, config Config) error {
	switch config.Format {
	case FormatText:
		w := config.writer()
		fmt.Fprintf(w, "Pickup window %s to %s (%s)\n", resp.WindowStart, resp.WindowEnd, resp.Timezone)
		for _, day := range resp.Days {
			label := day.Date + " " + day.Weekday
			switch {
			case day.Holiday != "":
				fmt.Fprintf(w, "%s  closed (%s)\n", label, day.Holiday)
				continue
			case !day.BusinessDay:
				fmt.Fprintf(w, "%s  closed\n", label)
				continue
			case len(day.Slots) == 0:
				fmt.Fprintf(w, "%s  no slots left\n", label)
				continue
			}
			fmt.Fprintf(w, "%s\n", label)
			for _, slot := range day.Slots {
				state := fmt.Sprintf("%d/%d open", slot.Remaining, slot.Capacity)
				if !slot.Available {
					state = "full"
				}
				fmt.Fprintf(w, "  %-10s %s-%s  %s\n", slot.Slot.ID, slot.Slot.Start, slot.Slot.End, state)
			}
		}
		return nil
	case FormatJSON:
		return writeJSON(config.writer(), resp)
	case FormatCSV:
		var rows [][]string
		for _, day := range resp.Days {
			for _, slot := range day.Slots {
				rows = append(rows, []string{day.Date, slot.Slot.ID, slot.Slot.Start, slot.Slot.End,
					strconv.Itoa(slot.Capacity), strconv.Itoa(slot.Remaining), strconv.FormatBool(slot.Available)})
			}
		}
		return writeCSV(config.writer(), []string{"date", "slot_id", "start", "end", "capacity", "remaining", "available"}, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// Money formats amount with the currency's minor units and the printer's digit
// grouping, falling back to two decimals for codes x/text does not know
func Money(p *message.Printer, amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(2) + " " + code
	}
	scale, _ := currency.Standard.Rounding(unit)
	return p.Sprintf(fmt.Sprintf("%%.%df %%s", scale), amount.Round(int32(scale)).InexactFloat64(), unit.String())
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV records: %w", err)
	}
	return nil
}
