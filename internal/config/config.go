package config

import (
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	S3        S3        `yaml:"s3"`
	Redis     Redis     `yaml:"redis"`
	Messaging Messaging `yaml:"messaging"`
	Typing    Typing    `yaml:"typing"`
	Log       Log       `yaml:"log"`
}

// S3 holds S3/MinIO attachment storage configuration
type S3 struct {
	Enabled         bool   `yaml:"enabled" env:"S3_ENABLED" env-default:"true"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"dm-attachments"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/dm-attachments"`
	KeyPrefix       string `yaml:"key_prefix" env:"S3_KEY_PREFIX" env-default:"messages"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes" env:"S3_MAX_UPLOAD_BYTES" env-default:"52428800"`
}

// Server holds HTTP server configuration
type Server struct {
	Host           string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"30s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration. An empty DSN selects the
// in-memory stores.
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	// Connection pool settings
	MaxConns     int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns     int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	ConnLifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`

	QueryTimeout time.Duration `yaml:"query_timeout" env:"DB_QUERY_TIMEOUT" env-default:"5s"`
	Migrate      bool          `yaml:"migrate" env:"DB_MIGRATE" env-default:"true"`
}

// Redis holds the optional Redis connection used for shared typing
// presence and notifications
type Redis struct {
	Enabled       bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Addr          string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password      string `yaml:"password" env:"REDIS_PASSWORD"`
	DB            int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	ChannelPrefix string `yaml:"channel_prefix" env:"REDIS_CHANNEL_PREFIX" env-default:"dm:user:"`
}

// Messaging holds message lifecycle rules
type Messaging struct {
	EditWindow       time.Duration `yaml:"edit_window" env:"DM_EDIT_WINDOW" env-default:"15m"`
	DeleteWindow     time.Duration `yaml:"delete_window" env:"DM_DELETE_WINDOW" env-default:"168h"`
	MaxMessageLength int           `yaml:"max_message_length" env:"DM_MAX_MESSAGE_LENGTH" env-default:"5000"`
	DefaultPageSize  int           `yaml:"default_page_size" env:"DM_DEFAULT_PAGE_SIZE" env-default:"20"`
	MaxPageSize      int           `yaml:"max_page_size" env:"DM_MAX_PAGE_SIZE" env-default:"100"`
	PhotoBaseURL     string        `yaml:"photo_base_url" env:"DM_PHOTO_BASE_URL"`

	// DevUsers seeds the in-memory user directory as "id:name" pairs
	DevUsers []string `yaml:"dev_users" env:"DM_DEV_USERS" env-separator:","`
}

// Typing holds typing presence configuration
type Typing struct {
	TTL           time.Duration `yaml:"ttl" env:"TYPING_TTL" env-default:"10s"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"TYPING_SWEEP_INTERVAL" env-default:"30s"`
	Backend       string        `yaml:"backend" env:"TYPING_BACKEND" env-default:"memory"`
	RateLimit     float64       `yaml:"rate_limit" env:"TYPING_RATE_LIMIT" env-default:"2"`
	RateBurst     int           `yaml:"rate_burst" env:"TYPING_RATE_BURST" env-default:"5"`
}

// UseRedis reports whether typing state should be shared through Redis
func (t Typing) UseRedis() bool {
	return strings.EqualFold(t.Backend, "redis")
}

// Log holds logging configuration
type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// SlogLevel parses the configured level, defaulting to info
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
