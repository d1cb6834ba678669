/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Event bus backend selection.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	// Station filesystem layout. Each station gets
	// <StationsDir>/<prefix>/{config,playlists} namespaced by its
	// variable prefix.
	StationsDir string

	// Base URL the generated scripts call back into for next-song
	// lookups and DJ authentication (e.g. http://127.0.0.1:8080).
	APIBaseURL string

	// DockerMode switches broadcast hosts from loopback to the
	// service names used inside the compose network.
	DockerMode    bool
	BroadcastHost string

	// Offset in whole hours of the schedule baseline relative to UTC.
	// Playlist schedule times are stored against this baseline and
	// shifted to the host zone at generation time.
	ScheduleBaselineOffset int

	// Remote control (engine telnet) settings.
	ControlHost    string
	ControlTimeout time.Duration

	JWTSigningKey string

	// Event bus configuration.
	EventBus      EventBusBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	InstanceID    string

	// Redis-backed entity cache in front of the station store.
	CacheEnabled bool

	// Audit trail of configuration and live DJ events.
	AuditEnabled bool

	// Optional S3-compatible archive for generated script revisions.
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string
	S3UsePathStyle    bool

	// Tracing configuration.
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "development"),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SKALD_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("SKALD_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:       getEnv("SKALD_DB_DSN", ""),

		StationsDir: getEnv("SKALD_STATIONS_DIR", "/var/skald/stations"),
		APIBaseURL:  getEnv("SKALD_API_BASE_URL", "http://127.0.0.1:8080"),

		DockerMode:    getEnvBool("SKALD_DOCKER_MODE", false),
		BroadcastHost: getEnv("SKALD_BROADCAST_HOST", ""),

		ScheduleBaselineOffset: getEnvInt("SKALD_SCHEDULE_BASELINE_OFFSET", 0),

		ControlHost:    getEnv("SKALD_CONTROL_HOST", ""),
		ControlTimeout: time.Duration(getEnvInt("SKALD_CONTROL_TIMEOUT_SECONDS", 20)) * time.Second,

		JWTSigningKey: getEnv("SKALD_JWT_SIGNING_KEY", ""),

		EventBus:      EventBusBackend(getEnv("SKALD_EVENT_BUS", string(EventBusMemory))),
		RedisAddr:     getEnv("SKALD_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("SKALD_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SKALD_REDIS_DB", 0),
		NATSURL:       getEnv("SKALD_NATS_URL", "nats://localhost:4222"),
		InstanceID:    getEnv("SKALD_INSTANCE_ID", ""),

		CacheEnabled: getEnvBool("SKALD_CACHE_ENABLED", false),
		AuditEnabled: getEnvBool("SKALD_AUDIT_ENABLED", true),

		S3AccessKeyID:     getEnv("SKALD_S3_ACCESS_KEY_ID", os.Getenv("AWS_ACCESS_KEY_ID")),
		S3SecretAccessKey: getEnv("SKALD_S3_SECRET_ACCESS_KEY", os.Getenv("AWS_SECRET_ACCESS_KEY")),
		S3Region:          getEnv("SKALD_S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("SKALD_S3_BUCKET", ""),
		S3Endpoint:        getEnv("SKALD_S3_ENDPOINT", ""),
		S3UsePathStyle:    getEnvBool("SKALD_S3_USE_PATH_STYLE", false),

		TracingEnabled:    getEnvBool("SKALD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SKALD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SKALD_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.BroadcastHost == "" {
		if cfg.DockerMode {
			cfg.BroadcastHost = "stations"
		} else {
			cfg.BroadcastHost = "127.0.0.1"
		}
	}
	if cfg.ControlHost == "" {
		cfg.ControlHost = cfg.BroadcastHost
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SKALD_DB_DSN must be provided")
	}

	switch cfg.EventBus {
	case EventBusMemory, EventBusRedis, EventBusNATS:
	default:
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBus)
	}

	if cfg.ScheduleBaselineOffset < -12 || cfg.ScheduleBaselineOffset > 14 {
		return nil, fmt.Errorf("SKALD_SCHEDULE_BASELINE_OFFSET %d out of range", cfg.ScheduleBaselineOffset)
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("SKALD_JWT_SIGNING_KEY must be provided in production")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
