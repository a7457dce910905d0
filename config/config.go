package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Catalog CatalogConfig
	Ingest  IngestConfig
	Lock    LockConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Elastic ElasticsearchConfig
	Auth    AuthConfig
}

type ServerConfig struct {
	AppEnv   string
	GRPCPort string
	DeviceID string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// StoreConfig selects the durable key-value substrate. Driver is "sqlite"
// (modernc, file path DSN) or "pgx" (PostgreSQL URL DSN).
type StoreConfig struct {
	Driver     string
	DSN        string
	RecordsKey string
	OutboxKey  string
}

// AuthConfig verifies scanner user tokens. With Required unset, calls
// without a token are accepted and their records carry no scanner id.
type AuthConfig struct {
	SecretKey string
	Required  bool
}

type CatalogConfig struct {
	Endpoint string
	Timeout  time.Duration
}

type IngestConfig struct {
	Transport   string // "http" or "kafka"
	Endpoint    string
	WrapQuotes  bool
	Timeout     time.Duration
	KafkaTopic  string
	ContentType string
}

type LockConfig struct {
	Backend string // "memory" or "redis"
	Key     string
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers   []string
	ScanTopic string
	GroupID   string
	Enabled   bool
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Enabled   bool
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			GRPCPort: getEnv("GRPC_PORT", ":8090"),
			DeviceID: getEnv("DEVICE_ID", ""),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Store: StoreConfig{
			Driver:     getEnv("STORE_DRIVER", "sqlite"),
			DSN:        getEnv("STORE_DSN", "asset-scan.db"),
			RecordsKey: getEnv("STORE_RECORDS_KEY", "@scanned_data_list"),
			OutboxKey:  getEnv("STORE_OUTBOX_KEY", "@pending_forward_list"),
		},
		Catalog: CatalogConfig{
			Endpoint: getEnv("CATALOG_ENDPOINT", "http://localhost:8081/lookup"),
			Timeout:  getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		},
		Ingest: IngestConfig{
			Transport:   getEnv("INGEST_TRANSPORT", "http"),
			Endpoint:    getEnv("INGEST_ENDPOINT", "http://localhost:8081/ingest"),
			WrapQuotes:  getEnvBool("INGEST_WRAP_QUOTES", false),
			Timeout:     getEnvDuration("INGEST_TIMEOUT", 10*time.Second),
			KafkaTopic:  getEnv("INGEST_KAFKA_TOPIC", "assets.ingest"),
			ContentType: getEnv("INGEST_CONTENT_TYPE", "application/json"),
		},
		Lock: LockConfig{
			Backend: getEnv("LOCK_BACKEND", "memory"),
			Key:     getEnv("LOCK_KEY", "lock:asset-scan:store"),
			TTL:     getEnvDuration("LOCK_TTL", 2*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:   getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ScanTopic: getEnv("KAFKA_TOPIC_SCANS", "assets.scans"),
			GroupID:   getEnv("KAFKA_GROUP_SCANS", "asset-scan"),
			Enabled:   getEnvBool("KAFKA_ENABLED", false),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:     getEnv("ELASTICSEARCH_INDEX", "asset_records"),
			Enabled:   getEnvBool("ELASTICSEARCH_ENABLED", false),
		},
		Auth: AuthConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "your-secret-key-change-this-in-prod"),
			Required:  getEnvBool("AUTH_REQUIRED", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15s") or a plain number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}
