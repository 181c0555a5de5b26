package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
)

type SettingsService struct {
	repo   models.SettingsRepo
	logger *slog.Logger
}

func NewSettingsService(repo models.SettingsRepo, logger *slog.Logger) *SettingsService {
	return &SettingsService{repo: repo, logger: logger}
}

// GetSettings returns the stored pricing settings, or the built-in defaults
// when none have been saved yet. Defaults are not persisted.
func (s *SettingsService) GetSettings(ctx context.Context) (*models.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if errors.Is(err, models.ErrSettingsNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load settings", "error", err)
		return nil, domain.UpstreamError{Msg: "Could not load pricing settings.", Err: err}
	}
	if settings.Currency == "" {
		settings.Currency = models.DefaultSettings().Currency
	}
	if settings.Zones == nil {
		settings.Zones = []models.PricingZone{}
	}
	return settings, nil
}

func (s *SettingsService) UpdateSettings(ctx context.Context, settings *models.Settings) (*models.Settings, error) {
	if settings == nil {
		return nil, domain.ValidationError{Msg: "settings are required"}
	}
	if err := validateStruct(settings); err != nil {
		return nil, err
	}
	if settings.Zones == nil {
		settings.Zones = []models.PricingZone{}
	}
	settings.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save settings", "error", err)
		return nil, domain.UpstreamError{Msg: "Could not save pricing settings.", Err: err}
	}
	return settings, nil
}

// ResetSettings overwrites the stored settings with the defaults.
func (s *SettingsService) ResetSettings(ctx context.Context) (*models.Settings, error) {
	return s.UpdateSettings(ctx, models.DefaultSettings())
}
