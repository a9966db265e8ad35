package service

import (
	"context"

	"exam-room/internal/domain"
	"exam-room/internal/logger"

	"go.uber.org/zap"
)

// ConfigService exposes the application settings stored in the Config table.
type ConfigService interface {
	GetSettings(ctx context.Context) domain.AppSettings
}

type configServiceImpl struct {
	repo domain.ConfigRepository
}

func NewConfigService(repo domain.ConfigRepository) ConfigService {
	return &configServiceImpl{repo: repo}
}

// GetSettings falls back to the defaults when the table cannot be read.
func (s *configServiceImpl) GetSettings(ctx context.Context) domain.AppSettings {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		logger.Get().Warn("Using default settings", zap.Error(err))
		return domain.DefaultAppSettings()
	}
	return settings
}
