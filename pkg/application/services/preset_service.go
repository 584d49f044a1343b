package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/shipcheckout/pkg/domain/entities"
	"github.com/vsinha/shipcheckout/pkg/domain/repositories"
)

// PresetService exposes the canned demo shipments
type PresetService struct {
	repo   repositories.PresetRepository
	logger *zap.Logger
}

// NewPresetService creates a preset service over repo
func NewPresetService(repo repositories.PresetRepository, logger *zap.Logger) *PresetService {
	return &PresetService{repo: repo, logger: loggerOrNop(logger)}
}

// List returns every preset
func (s *PresetService) List(ctx context.Context) ([]entities.Preset, error) {
	presets, err := s.repo.ListPresets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return presets, nil
}

// Get returns one preset or a PRESET_NOT_FOUND error
func (s *PresetService) Get(ctx context.Context, id string) (*entities.Preset, error) {
	return s.repo.GetPreset(ctx, id)
}

// Shipment builds a fresh shipment from the preset; callers may modify it freely
func (s *PresetService) Shipment(ctx context.Context, id string) (entities.Shipment, error) {
	preset, err := s.repo.GetPreset(ctx, id)
	if err != nil {
		return entities.Shipment{}, err
	}
	shipment := preset.Shipment
	shipment.Package.SpecialHandling = append([]entities.SpecialHandling(nil), preset.Shipment.Package.SpecialHandling...)
	s.logger.Debug("preset expanded", zap.String("preset_id", id))
	return shipment, nil
}
