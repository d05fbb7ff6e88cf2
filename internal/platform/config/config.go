package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "corpsite/pkg/platform/strings"
)

// DevIPHashSalt keeps local runs deterministic. Production must override it.
const DevIPHashSalt = "corporate_website_salt_2025"

// Server captures process level configuration for both deployment variants.
type Server struct {
	Environment  string
	Addr         string
	LogLevel     string
	LogFormat    string
	MaxBodyBytes int64
	StaticDir    string
	CORSOrigins  []string

	Storage   StorageConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Retention RetentionConfig
	Privacy   PrivacyConfig
	Notify    NotifyConfig
}

// StorageConfig selects the submission store.
type StorageConfig struct {
	Driver string // "sqlite" or "memory"
	DBPath string
}

// AuditConfig lists the audit sinks. Every non-empty sink receives every event.
type AuditConfig struct {
	FilePath  string
	ToSQLite  bool
	KafkaSink bool
}

// RateLimitConfig bounds contact submissions per hashed client and
// data-subject requests per client.
type RateLimitConfig struct {
	MaxRequests      int
	Window           time.Duration
	MaxKeys          int
	SweepInterval    time.Duration
	DSRRatePerMinute int
	DSRBurst         int
}

// RedisConfig enables the shared bucket store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables the audit topic sink when Brokers is non-empty.
// With ArchiveGroup set, a consumer in that group copies the topic into the
// SQLite audit_logs table instead of the request path writing it directly.
type KafkaConfig struct {
	Brokers           []string
	AuditTopic        string
	Partitions        int32
	ReplicationFactor int16
	ArchiveGroup      string
}

// RetentionConfig schedules the expiry sweep. Durations per data class are
// fixed in the retention package and not configurable.
type RetentionConfig struct {
	SweepInterval time.Duration
}

type PrivacyConfig struct {
	IPHashSalt string
}

type NotifyConfig struct {
	Recipient string
	Sender    string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := getEnv("ADDR", ":8080")
	// Custom handler hosts hand the listen port over this variable.
	if port := os.Getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); port != "" {
		addr = ":" + port
	}

	return Server{
		Environment:  getEnv("APP_ENV", "development"),
		Addr:         addr,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 64*1024)),
		StaticDir:    getEnv("STATIC_DIR", ""),
		CORSOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:8080",
		}),
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "sqlite"),
			DBPath: getEnv("DB_PATH", "data/contact_form.db"),
		},
		Audit: AuditConfig{
			FilePath:  getEnv("AUDIT_LOG_PATH", "audit.log"),
			ToSQLite:  getEnvBool("AUDIT_TO_DB", true),
			KafkaSink: getEnvBool("AUDIT_TO_KAFKA", true),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:      getEnvInt("RATE_LIMIT_MAX_REQUESTS", 5),
			Window:           getEnvDuration("RATE_LIMIT_WINDOW", 5*time.Minute),
			MaxKeys:          getEnvInt("RATE_LIMIT_MAX_KEYS", 10000),
			SweepInterval:    getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
			DSRRatePerMinute: getEnvInt("DSR_RATE_PER_MINUTE", 6),
			DSRBurst:         getEnvInt("DSR_BURST", 3),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           getEnvList("KAFKA_BROKERS", nil),
			AuditTopic:        getEnv("KAFKA_AUDIT_TOPIC", "contact.audit"),
			Partitions:        int32(getEnvInt("KAFKA_AUDIT_PARTITIONS", 3)),
			ReplicationFactor: int16(getEnvInt("KAFKA_AUDIT_REPLICATION", 1)),
			ArchiveGroup:      getEnv("KAFKA_ARCHIVE_GROUP", ""),
		},
		Retention: RetentionConfig{
			SweepInterval: getEnvDuration("RETENTION_SWEEP_INTERVAL", 24*time.Hour),
		},
		Privacy: PrivacyConfig{
			IPHashSalt: getEnv("IP_HASH_SALT", DevIPHashSalt),
		},
		Notify: NotifyConfig{
			Recipient: getEnv("NOTIFY_RECIPIENT", "communications@corporate-inc.com"),
			Sender:    getEnv("NOTIFY_SENDER", "no-reply@corporate-inc.com"),
		},
	}
}

// IsProduction reports whether APP_ENV is production.
func (c Server) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c Server) Validate() error {
	if c.IsProduction() && (c.Privacy.IPHashSalt == "" || c.Privacy.IPHashSalt == DevIPHashSalt) {
		return fmt.Errorf("IP_HASH_SALT must be set to a secret value in production")
	}
	switch c.Storage.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Storage.DBPath) == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite storage driver")
		}
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("STORAGE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma separated value, dropping blanks and repeats.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return platformstrings.SplitList(value, ",")
}
