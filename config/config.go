package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBFilePath string

	// TDX open data
	TDXAPIURL       string
	TDXAuthURL      string
	TDXClientID     string
	TDXClientSecret string

	// Timetable mirror
	MirrorBaseURL string
	MirrorDataURL string

	RequestTimeout   time.Duration
	LivePollInterval time.Duration
	LiveViewIdle     time.Duration
	HistoryLookback  time.Duration
	ScheduleCacheTTL time.Duration
	Location         *time.Location

	// NATS (empty URL disables publishing)
	NATSURL           string
	NATSSubjectPrefix string

	// Server
	ServerPort string
	GinMode    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional for local development)
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "railway"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBFilePath: getEnv("DB_FILE_PATH", "./data/railway.db"),

		TDXAPIURL:       strings.TrimRight(getEnv("TDX_API_URL", "https://tdx.transportdata.tw/api/basic/v3"), "/"),
		TDXAuthURL:      getEnv("TDX_AUTH_URL", "https://tdx.transportdata.tw/auth/realms/TDXConnect/protocol/openid-connect/token"),
		TDXClientID:     os.Getenv("TDX_CLIENT_ID"),
		TDXClientSecret: os.Getenv("TDX_CLIENT_SECRET"),

		MirrorBaseURL: strings.TrimRight(getEnv("MIRROR_BASE_URL", "https://taiwanhelper.com"), "/"),
		MirrorDataURL: strings.TrimRight(getEnv("MIRROR_DATA_URL", "https://taiwanhelper.com/_next/data/bsBsvlyiGDJiVhyivWDW6"), "/"),

		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "train.live"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		GinMode:    getEnv("GIN_MODE", "release"),
	}

	switch cfg.DBDriver {
	case "postgres", "pgx", "sqlite3":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER: %q", cfg.DBDriver)
	}

	var err error
	if cfg.RequestTimeout, err = getSeconds("REQUEST_TIMEOUT_SEC", 30); err != nil {
		return nil, err
	}
	if cfg.LivePollInterval, err = getSeconds("LIVE_POLL_INTERVAL_SEC", 30); err != nil {
		return nil, err
	}
	if cfg.LiveViewIdle, err = getSeconds("LIVE_VIEW_IDLE_SEC", 300); err != nil {
		return nil, err
	}
	if cfg.ScheduleCacheTTL, err = getSeconds("SCHEDULE_CACHE_TTL_SEC", 60); err != nil {
		return nil, err
	}

	days := 30
	if v := os.Getenv("HISTORY_LOOKBACK_DAYS"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid HISTORY_LOOKBACK_DAYS: %q", v)
		}
	}
	cfg.HistoryLookback = time.Duration(days) * 24 * time.Hour

	// Service dates are Taiwan local dates
	tzName := getEnv("TZ", "Asia/Taipei")
	cfg.Location, err = time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %v", err)
	}

	if cfg.TDXClientID == "" || cfg.TDXClientSecret == "" {
		log.Println("WARNING: TDX_CLIENT_ID/TDX_CLIENT_SECRET not set, schedule requests are sent without a token")
	}

	return cfg, nil
}

// DataSourceName builds the driver specific connection string
func (c *Config) DataSourceName() string {
	switch c.DBDriver {
	case "sqlite3":
		return c.DBFilePath + "?_foreign_keys=on&_busy_timeout=5000"
	case "pgx":
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			urlEscape(c.DBUser), urlEscape(c.DBPassword), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
	default:
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
		)
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getSeconds(key string, def int) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Second, nil
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(sec) * time.Second, nil
}

func urlEscape(s string) string {
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
