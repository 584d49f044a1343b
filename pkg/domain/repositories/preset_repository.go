package repositories

import (
	"context"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
)

// PresetRepository provides access to demo shipment presets
type PresetRepository interface {
	ListPresets(ctx context.Context) ([]entities.Preset, error)
	GetPreset(ctx context.Context, id string) (*entities.Preset, error)
}
