// Package presets loads the canned demo shipments used to pre-fill the wizard.
package presets

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
)

//go:embed presets.yaml
var builtin []byte

// file is the on-disk layout. Amounts are strings so no precision is lost before decimal parsing.
type file struct {
	Presets []presetEntry `yaml:"presets"`
}

type presetEntry struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Shipment    shipmentEntry `yaml:"shipment"`
}

type shipmentEntry struct {
	Origin      entities.Address `yaml:"origin"`
	Destination entities.Address `yaml:"destination"`
	Package     packageEntry     `yaml:"package"`
}

type packageEntry struct {
	Type             string   `yaml:"type"`
	Length           string   `yaml:"length"`
	Width            string   `yaml:"width"`
	Height           string   `yaml:"height"`
	DimensionUnit    string   `yaml:"dimension_unit"`
	Weight           string   `yaml:"weight"`
	WeightUnit       string   `yaml:"weight_unit"`
	DeclaredValue    string   `yaml:"declared_value"`
	Currency         string   `yaml:"currency"`
	Contents         string   `yaml:"contents"`
	ContentsCategory string   `yaml:"contents_category"`
	SpecialHandling  []string `yaml:"special_handling"`
	Quantity         int      `yaml:"quantity"`
}

// Catalog is an immutable, ordered set of presets
type Catalog struct {
	presets []entities.Preset
	byID    map[string]int
}

// Verify interface compliance
var _ repositories.PresetRepository = (*Catalog)(nil)

// Builtin returns the embedded preset catalog
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Load reads a preset catalog from path, or the embedded catalog when path is empty
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file %s: %w", path, err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Parse decodes a YAML preset catalog
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("presets file defines no presets")
	}

	catalog := &Catalog{byID: make(map[string]int, len(f.Presets))}
	for i, entry := range f.Presets {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("preset %d: id is required", i+1)
		}
		if _, dup := catalog.byID[id]; dup {
			return nil, fmt.Errorf("preset %s: duplicate id", id)
		}
		pkg, err := entry.Shipment.Package.toEntity()
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", id, err)
		}
		catalog.byID[id] = len(catalog.presets)
		catalog.presets = append(catalog.presets, entities.Preset{
			ID:          id,
			Name:        entry.Name,
			Description: entry.Description,
			Shipment: entities.Shipment{
				Origin:      entry.Shipment.Origin,
				Destination: entry.Shipment.Destination,
				Package:     pkg,
			},
		})
	}
	return catalog, nil
}

func (p packageEntry) toEntity() (entities.PackageInfo, error) {
	amounts := map[string]string{
		"length":         p.Length,
		"width":          p.Width,
		"height":         p.Height,
		"weight":         p.Weight,
		"declared_value": p.DeclaredValue,
	}
	parsed := make(map[string]decimal.Decimal, len(amounts))
	for name, raw := range amounts {
		if strings.TrimSpace(raw) == "" {
			parsed[name] = decimal.Zero
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return entities.PackageInfo{}, fmt.Errorf("invalid %s %q", name, raw)
		}
		parsed[name] = value
	}

	handling := make([]entities.SpecialHandling, 0, len(p.SpecialHandling))
	for _, h := range p.SpecialHandling {
		handling = append(handling, entities.SpecialHandling(h))
	}
	if len(handling) == 0 {
		handling = nil
	}

	return entities.PackageInfo{
		Type: entities.PackageType(p.Type),
		Dimensions: entities.Dimensions{
			Length: parsed["length"],
			Width:  parsed["width"],
			Height: parsed["height"],
			Unit:   entities.DimensionUnit(p.DimensionUnit),
		},
		Weight:           entities.Weight{Value: parsed["weight"], Unit: entities.WeightUnit(p.WeightUnit)},
		DeclaredValue:    parsed["declared_value"],
		Currency:         p.Currency,
		Contents:         p.Contents,
		ContentsCategory: entities.ContentsCategory(p.ContentsCategory),
		SpecialHandling:  handling,
		Quantity:         p.Quantity,
	}, nil
}

// ListPresets returns the presets in file order
func (c *Catalog) ListPresets(ctx context.Context) ([]entities.Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([]entities.Preset, len(c.presets))
	copy(result, c.presets)
	return result, nil
}

// GetPreset returns the preset with the given id
func (c *Catalog) GetPreset(ctx context.Context, id string) (*entities.Preset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := c.byID[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodePresetNotFound, fmt.Sprintf("preset not found: %s", id))
	}
	preset := c.presets[idx]
	return &preset, nil
}
