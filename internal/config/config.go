package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EventsNone  = "none"
	EventsRedis = "redis"
	EventsKafka = "kafka"
)

type Config struct {
	ServerName string
	HTTPPort   string
	GRPCPort   string
	Env        string

	// MaxInFlight is the number of ledger operations served at once.
	MaxInFlight      int
	AdmissionTimeout time.Duration
	ShutdownTimeout  time.Duration

	EventsBackend string
	EventsStream  string
	EventsMaxLen  int64
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KafkaBrokers  []string
}

func (c Config) Production() bool { return c.Env == "production" }

// Load reads an optional .env file, then the environment, then the
// positional arguments [serverName grpcPort maxInFlight], later sources
// winning.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}

	cfg := Config{
		ServerName:       getEnv("SERVER_NAME", "localhost"),
		HTTPPort:         getEnv("PORT", "8080"),
		GRPCPort:         getEnv("GRPC_PORT", "9001"),
		Env:              getEnv("ENV", "development"),
		EventsBackend:    strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone)),
		EventsStream:     getEnv("EVENTS_STREAM", "ledger.events"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:     getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		ShutdownTimeout:  10 * time.Second,
	}

	var err error
	if cfg.MaxInFlight, err = getEnvInt("MAX_IN_FLIGHT", 4); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	maxLen, err := getEnvInt("EVENTS_MAXLEN", 100000)
	if err != nil {
		return Config{}, err
	}
	cfg.EventsMaxLen = int64(maxLen)
	if cfg.AdmissionTimeout, err = getEnvDuration("ADMISSION_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}

	if len(args) > 3 {
		return Config{}, fmt.Errorf("expected at most 3 arguments [serverName grpcPort maxInFlight], got %d", len(args))
	}
	if len(args) > 0 {
		cfg.ServerName = args[0]
	}
	if len(args) > 1 {
		cfg.GRPCPort = args[1]
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return Config{}, fmt.Errorf("maxInFlight %q: %w", args[2], err)
		}
		cfg.MaxInFlight = n
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.MaxInFlight < 1 {
		return fmt.Errorf("MAX_IN_FLIGHT must be at least 1, got %d", c.MaxInFlight)
	}
	for name, port := range map[string]string{"PORT": c.HTTPPort, "GRPC_PORT": c.GRPCPort} {
		if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
			return fmt.Errorf("%s %q is not a valid port", name, port)
		}
	}
	switch c.EventsBackend {
	case EventsNone, EventsRedis:
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is empty")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND %q is not one of none, redis, kafka", c.EventsBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
