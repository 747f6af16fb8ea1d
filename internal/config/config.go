package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
	Sheets   SheetsConfig
	Business BusinessConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig holds logger options.
type LogConfig struct {
	Level string
}

// StorageConfig selects and tunes the record store backend.
type StorageConfig struct {
	Driver         string
	URL            string
	MongoDBName    string
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// AuthConfig holds the shared access code seed and session cookie settings.
type AuthConfig struct {
	AccessCode    string
	SessionSecret string
	SessionMaxAge time.Duration
	CookieSecure  bool
}

// GatewayConfig holds the optional REST gateway credentials used to read the
// access code.
type GatewayConfig struct {
	URL        string
	ServiceKey string
}

// Enabled reports whether access codes are read through the gateway.
func (g GatewayConfig) Enabled() bool {
	return g.URL != "" && g.ServiceKey != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ExportRange     string
}

// Enabled reports whether day exports may be published to Google Sheets.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// BusinessConfig holds the plant-local calendar settings.
type BusinessConfig struct {
	Timezone string
}

// Location resolves the business time zone.
func (b BusinessConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when the environment is set directly.
		_ = godotenv.Load()
	}

	maxConns, err := getenvInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, err
	}
	connectTimeout, err := getenvDuration("DB_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	sessionMaxAge, err := getenvDuration("SESSION_MAX_AGE", 12*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(os.Getenv("STORAGE_DRIVER")),
			URL:            os.Getenv("DATABASE_URL"),
			MongoDBName:    getenvWithDefault("MONGODB_DB_NAME", "floorlog"),
			MaxOpenConns:   maxConns,
			ConnectTimeout: connectTimeout,
		},
		Auth: AuthConfig{
			AccessCode:    os.Getenv("ACCESS_CODE"),
			SessionSecret: os.Getenv("SESSION_SECRET"),
			SessionMaxAge: sessionMaxAge,
			CookieSecure:  getenvBool("COOKIE_SECURE"),
		},
		Gateway: GatewayConfig{
			URL:        strings.TrimSuffix(os.Getenv("SUPABASE_URL"), "/"),
			ServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			ExportRange:     getenvWithDefault("GOOGLE_SHEET_EXPORT_RANGE", "Coletas!A:Z"),
		},
		Business: BusinessConfig{
			Timezone: getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
		},
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = InferDriver(cfg.Storage.URL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// InferDriver guesses the storage driver from a connection URL scheme.
func InferDriver(url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return DriverMongoDB
	case strings.HasPrefix(url, "sqlite:"), strings.HasPrefix(url, "file:"):
		return DriverSQLite
	default:
		return ""
	}
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMongoDB:
		if c.Storage.URL == "" {
			return errors.New("DATABASE_URL must be provided")
		}
	case "":
		if c.Storage.URL == "" {
			return errors.New("DATABASE_URL must be provided")
		}
		return fmt.Errorf("cannot infer storage driver from DATABASE_URL; set STORAGE_DRIVER")
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Storage.Driver == DriverMongoDB && c.Storage.MongoDBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	if (c.Gateway.URL == "") != (c.Gateway.ServiceKey == "") {
		return errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY must be provided together")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.Business.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := c.Business.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Business.Timezone, err)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
