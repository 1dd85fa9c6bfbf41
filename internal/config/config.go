package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names the persistence backends the server can run against
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the full service configuration
type Config struct {
	Port           int    `yaml:"port"`
	LogLevel       string `yaml:"log_level"`
	Env            string `yaml:"env"`
	StorageBackend string `yaml:"storage_backend"`

	DB        DBConfig        `yaml:"db"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// DBConfig holds the Postgres configuration
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// MongoConfig holds the document-store configuration
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// KafkaConfig holds the event publishing configuration
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	EventsTopic   string   `yaml:"events_topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

// RedisConfig holds the optional analytics cache configuration
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// RateLimitConfig holds the per-IP rate limiter knobs
type RateLimitConfig struct {
	IPMaxTokens       float64 `yaml:"ip_max_tokens"`
	IPRefillRate      float64 `yaml:"ip_refill_rate"`
	TrustForwardedFor bool    `yaml:"trust_forwarded_for"`
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// Load reads configuration from environment variables, then applies the
// optional YAML file named by CONFIG_FILE on top.
func Load() (*Config, error) {
	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, err
	}

	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	redisTTL, err := getEnvInt("REDIS_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	backend := getEnv("STORAGE_BACKEND", BackendPostgres)
	if backend != BackendPostgres && backend != BackendMongo {
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", backend)
	}

	cfg := &Config{
		Port:           port,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Env:            getEnv("APP_ENV", "development"),
		StorageBackend: backend,
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "storefront"),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnv("KAFKA_ENABLED", "false") == "true",
			Brokers:       splitNonEmpty(getEnv("KAFKA_BROKERS", "localhost:9092")),
			EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "storefront.events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-api"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			TTLSeconds: redisTTL,
		},
		RateLimit: RateLimitConfig{
			IPMaxTokens:       100,
			IPRefillRate:      50,
			TrustForwardedFor: getEnv("TRUST_FORWARDED_FOR", "false") == "true",
		},
	}

	if file := getEnv("CONFIG_FILE", ""); file != "" {
		if err := cfg.applyFile(file); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile overlays a YAML config file onto the environment-derived config
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// GetDBConnString returns the Postgres connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
