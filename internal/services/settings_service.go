package services

import (
	"context"
	"errors"

	"moneta/internal/core"
)

// SettingsService reads and writes per-owner preferences. Owners who never
// saved settings get the fallback currency.
type SettingsService struct {
	settings SettingsRepository
}

func NewSettingsService(settings SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) GetSettings(ctx context.Context, owner string) (core.UserSettings, error) {
	settings, err := s.settings.GetUserSettings(ctx, owner)
	if errors.Is(err, core.ErrNotFound) {
		return core.UserSettings{Owner: owner, DefaultCurrency: fallbackCurrency}, nil
	}
	return settings, err
}

func (s *SettingsService) UpdateSettings(ctx context.Context, settings core.UserSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return s.settings.PutUserSettings(ctx, settings)
}
