package repository

import (
	"context"
	"strings"

	"exam-room/internal/domain"
	"exam-room/internal/schema"
)

type recordConfigRepository struct {
	store *RecordStore
}

func NewConfigRepository(store *RecordStore) domain.ConfigRepository {
	return &recordConfigRepository{store: store}
}

// Get overlays non-empty Config rows on the defaults. Keys match case-insensitively.
func (r *recordConfigRepository) Get(ctx context.Context) (domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	recs, err := r.store.ListAll(ctx, schema.TableConfig)
	if err != nil {
		return settings, err
	}
	for _, rec := range recs {
		value := strings.TrimSpace(rec["value"])
		if value == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(rec["key"])) {
		case "appname":
			settings.AppName = value
		case "schoolname":
			settings.SchoolName = value
		}
	}
	return settings, nil
}
