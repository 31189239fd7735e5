package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every runtime setting.
type Config struct {
	Server  ServerConfig
	SMS     SMSConfig
	Session SessionConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		SMS:     loadSMSConfig(),
		Session: session,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// SMSConfig holds the Africa's Talking credentials. When not configured,
// the service falls back to a logging gateway so local runs still work.
type SMSConfig struct {
	Username string
	APIKey   string
	SenderID string
}

// Enabled reports whether real SMS dispatch is configured.
func (c SMSConfig) Enabled() bool {
	return c.Username != "" && c.APIKey != ""
}

func loadSMSConfig() SMSConfig {
	return SMSConfig{
		Username: strings.TrimSpace(os.Getenv("AFRICAS_TALKING_USERNAME")),
		APIKey:   strings.TrimSpace(os.Getenv("AFRICAS_TALKING_API_KEY")),
		SenderID: getEnvOrDefault("AFRICAS_TALKING_SENDER_ID", "KASA"),
	}
}

// SessionConfig selects the session store backend. An empty RedisURL
// keeps sessions in process memory.
type SessionConfig struct {
	RedisURL string
	TTL      time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	ttlSeconds, err := parseOptionalIntEnv("SESSION_TTL_SECONDS")
	if err != nil {
		return SessionConfig{}, err
	}

	cfg := SessionConfig{
		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),
	}
	if ttlSeconds != nil {
		if *ttlSeconds < 1 {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_TTL_SECONDS value: %d", *ttlSeconds)
		}
		cfg.TTL = time.Duration(*ttlSeconds) * time.Second
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
