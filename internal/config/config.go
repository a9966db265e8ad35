package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendRedis  = "redis"
	BackendDrive  = "drive"
	BackendLocal  = "local"
)

type Config struct {
	Server        ServerConfig
	Logger        LoggerConfig
	Storage       StorageConfig
	Sheets        SheetsConfig
	Drive         DriveConfig
	SQLite        SQLiteConfig
	Redis         RedisConfig
	Lock          LockConfig
	Store         StoreConfig
	PublicBaseURL string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

type LoggerConfig struct {
	Env   string
	Level string
}

// StorageConfig selects the adapter behind each port.
type StorageConfig struct {
	Grid string
	Blob string
	Lock string
}

type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
}

type DriveConfig struct {
	CredentialsFile string
	ParentFolderID  string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type LockConfig struct {
	Wait time.Duration
	TTL  time.Duration
	Key  string
}

type StoreConfig struct {
	OverflowThreshold int
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 60)
	viper.SetDefault("server.body_limit", 16*1024*1024)
	viper.SetDefault("logger.env", "development")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("storage.grid", BackendMemory)
	viper.SetDefault("storage.blob", BackendMemory)
	viper.SetDefault("storage.lock", BackendLocal)
	viper.SetDefault("sqlite.path", "exam-room.db")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("lock.wait", 30)
	viper.SetDefault("lock.ttl", 120)
	viper.SetDefault("lock.key", "exam-room:write-lock")
	viper.SetDefault("store.overflow_threshold", 45000)
	viper.SetDefault("public_base_url", "http://localhost:8080")
}

func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		viper.AddConfigPath("../../configs")
		viper.AddConfigPath("../../")
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
	}

	setDefaults()
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	config := &Config{
		Server: ServerConfig{
			Port:         viper.GetInt("server.port"),
			ReadTimeout:  viper.GetDuration("server.read_timeout") * time.Second,
			WriteTimeout: viper.GetDuration("server.write_timeout") * time.Second,
			BodyLimit:    viper.GetInt("server.body_limit"),
		},
		Logger: LoggerConfig{
			Env:   viper.GetString("logger.env"),
			Level: viper.GetString("logger.level"),
		},
		Storage: StorageConfig{
			Grid: viper.GetString("storage.grid"),
			Blob: viper.GetString("storage.blob"),
			Lock: viper.GetString("storage.lock"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   viper.GetString("sheets.spreadsheet_id"),
			CredentialsFile: viper.GetString("sheets.credentials_file"),
		},
		Drive: DriveConfig{
			CredentialsFile: viper.GetString("drive.credentials_file"),
			ParentFolderID:  viper.GetString("drive.parent_folder_id"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("sqlite.path"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Lock: LockConfig{
			Wait: viper.GetDuration("lock.wait") * time.Second,
			TTL:  viper.GetDuration("lock.ttl") * time.Second,
			Key:  viper.GetString("lock.key"),
		},
		Store: StoreConfig{
			OverflowThreshold: viper.GetInt("store.overflow_threshold"),
		},
		PublicBaseURL: viper.GetString("public_base_url"),
	}

	// Override with environment variables if set
	if port := os.Getenv("SERVER_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			config.Server.Port = p
		}
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.Logger.Env = env
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logger.Level = level
	}
	if id := os.Getenv("SHEETS_SPREADSHEET_ID"); id != "" {
		config.Sheets.SpreadsheetID = id
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		if config.Sheets.CredentialsFile == "" {
			config.Sheets.CredentialsFile = creds
		}
		if config.Drive.CredentialsFile == "" {
			config.Drive.CredentialsFile = creds
		}
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		config.SQLite.Path = path
	}
	if baseURL := os.Getenv("PUBLIC_BASE_URL"); baseURL != "" {
		config.PublicBaseURL = baseURL
	}

	return config, config.Validate()
}

// Validate checks backend selection and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.Storage.Grid {
	case BackendMemory, BackendSQLite:
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			return errors.New("sheets.spreadsheet_id is required for the sheets grid backend")
		}
	default:
		return fmt.Errorf("unknown grid backend %q", c.Storage.Grid)
	}
	switch c.Storage.Blob {
	case BackendMemory, BackendRedis, BackendDrive:
	default:
		return fmt.Errorf("unknown blob backend %q", c.Storage.Blob)
	}
	switch c.Storage.Lock {
	case BackendLocal, BackendRedis:
	default:
		return fmt.Errorf("unknown lock backend %q", c.Storage.Lock)
	}
	if c.Lock.Wait < 0 {
		return errors.New("lock.wait must not be negative")
	}
	if c.Store.OverflowThreshold <= 0 {
		return errors.New("store.overflow_threshold must be positive")
	}
	return nil
}
