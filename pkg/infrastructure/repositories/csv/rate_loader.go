// Package csv loads the carrier rate table from CSV.
package csv

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
)

//go:embed default_rates.csv
var defaultRates string

var expectedHeader = []string{
	"service_code", "category", "carrier", "service_name", "transit_days", "min_charge",
	"rate_per_lb", "zone_factor", "fuel_pct", "max_weight_lbs", "dim_divisor", "features",
}

// RateTable serves a rate table parsed once from a CSV file, or the built-in table
type RateTable struct {
	path string

	once    sync.Once
	entries []entities.RateEntry
	err     error
}

// Verify interface compliance
var _ repositories.RateRepository = (*RateTable)(nil)

// NewRateTable creates a rate table backed by path. An empty path uses the built-in rates.
func NewRateTable(path string) *RateTable {
	return &RateTable{path: strings.TrimSpace(path)}
}

// Rates returns a copy of the parsed rate entries
func (t *RateTable) Rates(ctx context.Context) ([]entities.RateEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.once.Do(func() {
		if t.path == "" {
			t.entries, t.err = ParseRates(strings.NewReader(defaultRates))
			return
		}
		t.entries, t.err = LoadRates(t.path)
	})
	if t.err != nil {
		return nil, t.err
	}
	result := make([]entities.RateEntry, len(t.entries))
	copy(result, t.entries)
	return result, nil
}

// DefaultRates returns the built-in rate table
func DefaultRates() ([]entities.RateEntry, error) {
	return ParseRates(strings.NewReader(defaultRates))
}

// LoadRates loads rate entries from a CSV file
func LoadRates(filename string) ([]entities.RateEntry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open rates file %s: %w", filename, err)
	}
	defer file.Close()

	entries, err := ParseRates(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return entries, nil
}

// ParseRates reads rate entries from CSV with a header row
func ParseRates(r io.Reader) ([]entities.RateEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read rates CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("rates CSV must have header and at least one data row")
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("rates CSV header mismatch. Expected: %v, Got: %v", expectedHeader, header)
	}

	seen := make(map[string]bool)
	var entries []entities.RateEntry
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("rates CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		entry, err := parseRateEntry(record)
		if err != nil {
			return nil, fmt.Errorf("rates CSV row %d: %w", i+2, err)
		}
		if seen[entry.ServiceCode] {
			return nil, fmt.Errorf("rates CSV row %d: duplicate service_code %s", i+2, entry.ServiceCode)
		}
		seen[entry.ServiceCode] = true

		entries = append(entries, entry)
	}

	return entries, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.TrimSpace(strings.ToLower(actual[i])) != col {
			return false
		}
	}
	return true
}

func parseRateEntry(record []string) (entities.RateEntry, error) {
	serviceCode := strings.TrimSpace(record[0])
	if serviceCode == "" {
		return entities.RateEntry{}, fmt.Errorf("service_code is required")
	}

	category, err := parseCategory(record[1])
	if err != nil {
		return entities.RateEntry{}, err
	}

	transitDays, err := strconv.Atoi(strings.TrimSpace(record[4]))
	if err != nil || transitDays < 1 {
		return entities.RateEntry{}, fmt.Errorf("invalid transit_days: %s", record[4])
	}

	amounts := make([]decimal.Decimal, 0, 5)
	for col := 5; col <= 9; col++ {
		value, err := decimal.NewFromString(strings.TrimSpace(record[col]))
		if err != nil || value.IsNegative() {
			return entities.RateEntry{}, fmt.Errorf("invalid %s: %s", expectedHeader[col], record[col])
		}
		amounts = append(amounts, value)
	}
	if !amounts[4].IsPositive() {
		return entities.RateEntry{}, fmt.Errorf("invalid max_weight_lbs: %s (must be positive)", record[9])
	}

	dimDivisor, err := strconv.Atoi(strings.TrimSpace(record[10]))
	if err != nil || dimDivisor < 0 {
		return entities.RateEntry{}, fmt.Errorf("invalid dim_divisor: %s", record[10])
	}

	var features []string
	for _, f := range strings.Split(record[11], "|") {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}

	return entities.RateEntry{
		ServiceCode:  serviceCode,
		Category:     category,
		Carrier:      strings.TrimSpace(record[2]),
		ServiceName:  strings.TrimSpace(record[3]),
		TransitDays:  transitDays,
		MinCharge:    amounts[0],
		RatePerLb:    amounts[1],
		ZoneFactor:   amounts[2],
		FuelPct:      amounts[3],
		MaxWeightLbs: amounts[4],
		DimDivisor:   dimDivisor,
		Features:     features,
	}, nil
}

func parseCategory(s string) (entities.ServiceCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ground":
		return entities.CategoryGround, nil
	case "air":
		return entities.CategoryAir, nil
	case "freight":
		return entities.CategoryFreight, nil
	default:
		return "", fmt.Errorf("invalid category: %s (expected: ground, air, or freight)", s)
	}
}
