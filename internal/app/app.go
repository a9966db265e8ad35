// Package app wires configuration, storage backends, repositories and services.
// It is shared by the API server and the admin CLI.
package app

import (
	"context"
	"fmt"

	"exam-room/internal/adapter/blob"
	"exam-room/internal/adapter/grid"
	"exam-room/internal/adapter/lock"
	"exam-room/internal/cache"
	"exam-room/internal/config"
	"exam-room/internal/database"
	"exam-room/internal/domain"
	"exam-room/internal/handler"
	"exam-room/internal/logger"
	"exam-room/internal/repository"
	"exam-room/internal/schema"
	"exam-room/internal/service"
	"exam-room/internal/validation"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Container holds the wired application.
type Container struct {
	Reconciler *schema.Reconciler
	Serializer service.WriteSerializer
	Services   handler.Services

	closers []func() error
}

// Close releases backend connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Get().Warn("Failed to close backend", zap.Error(err))
		}
	}
}

// Build creates the backends selected by cfg and wires every service.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{}
	appLogger := logger.Get()

	var redisClient *redis.Client
	needRedis := cfg.Storage.Blob == config.BackendRedis || cfg.Storage.Lock == config.BackendRedis
	if needRedis {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		redisClient = client
		c.closers = append(c.closers, client.Close)
		appLogger.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
	}

	g, err := buildGrid(ctx, cfg, c)
	if err != nil {
		c.Close()
		return nil, err
	}
	blobs, err := buildBlobStore(ctx, cfg, redisClient)
	if err != nil {
		c.Close()
		return nil, err
	}
	var locker domain.Locker
	switch cfg.Storage.Lock {
	case config.BackendRedis:
		locker = lock.NewRedisLocker(redisClient, cfg.Lock.Key, cfg.Lock.TTL)
	default:
		locker = lock.NewLocalLocker()
	}
	appLogger.Info("Storage backends initialized",
		zap.String("grid", cfg.Storage.Grid),
		zap.String("blob", cfg.Storage.Blob),
		zap.String("lock", cfg.Storage.Lock))

	registry := schema.DefaultRegistry()
	store := repository.NewRecordStore(g, blobs, registry, cfg.Store.OverflowThreshold)

	exams := repository.NewExamRepository(store)
	attempts := repository.NewAttemptRepository(store)
	progress := repository.NewProgressRepository(store)
	credentials := repository.NewCredentialRepository(store)
	bank := repository.NewBankRepository(store)
	history := repository.NewAnalysisRepository(store)
	settings := repository.NewConfigRepository(store)

	v := validation.NewValidator()
	c.Reconciler = schema.NewReconciler(g, registry)
	c.Serializer = service.NewWriteSerializer(locker, cfg.Lock.Wait)
	c.Services = handler.Services{
		Auth:     service.NewAuthService(credentials, c.Serializer, v),
		Exams:    service.NewExamService(exams, attempts, progress, v),
		Attempts: service.NewAttemptService(exams, attempts, progress, v),
		Bank:     service.NewBankService(bank, v),
		Analysis: service.NewItemAnalysisService(exams, attempts, history, bank),
		Uploads:  service.NewUploadService(blobs, v),
		Config:   service.NewConfigService(settings),
		Requests: service.NewRequestChecker(v),
	}
	return c, nil
}

// Google clients keep their construction context for token refresh, so they
// are built on a context that outlives the startup deadline.
func credentialOptions(file string) []option.ClientOption {
	if file == "" {
		// Application default credentials.
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(file)}
}

func buildGrid(ctx context.Context, cfg *config.Config, c *Container) (domain.Grid, error) {
	switch cfg.Storage.Grid {
	case config.BackendSheets:
		g, err := grid.NewSheetsGrid(context.WithoutCancel(ctx), cfg.Sheets.SpreadsheetID, credentialOptions(cfg.Sheets.CredentialsFile)...)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.BackendSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, db.Close)
		return grid.NewSQLiteGrid(db), nil
	case config.BackendMemory:
		logger.Get().Warn("Using in-memory grid; data is lost on restart")
		return grid.NewMemoryGrid(), nil
	default:
		return nil, fmt.Errorf("unknown grid backend %q", cfg.Storage.Grid)
	}
}

func buildBlobStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (domain.BlobStore, error) {
	switch cfg.Storage.Blob {
	case config.BackendDrive:
		store, err := blob.NewDriveStore(context.WithoutCancel(ctx), cfg.Drive.ParentFolderID, credentialOptions(cfg.Drive.CredentialsFile)...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		return blob.NewRedisStore(redisClient, cfg.PublicBaseURL), nil
	case config.BackendMemory:
		return blob.NewMemoryStore(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Storage.Blob)
	}
}
