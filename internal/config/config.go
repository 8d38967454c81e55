// Package config resolves the CLI's runtime configuration once at command
// entry and hands back an explicit record, generalizing the teacher's
// infrastructure/config.LoadConfig (which reads a fixed set of env vars
// with defaults) to spec.md section 6's {arg, env, default} resolution
// order. No package-level state: every primitive receives a *Config by
// parameter, never by global or thread-local, per spec.md section 9.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultTable             = "aws-primitives-tool"
	defaultTTLSeconds        = int64(0) // 0 == no TTL unless requested
	defaultLockTTL           = 30 * time.Second
	defaultQueueVisibility   = 30 * time.Second
	defaultMultipartThreshold = 100 * 1024 * 1024 // 100 MiB
	defaultChunkSize         = 100 * 1024 * 1024  // 100 MiB
	defaultMaxConcurrency    = 10
	defaultDedupWindow       = 5 * time.Minute
	envPrefix                = "AWSPRIM"
)

// Config is the fully resolved, immutable configuration for one CLI
// invocation.
type Config struct {
	Table             string
	Region            string
	Profile           string
	Format            string
	Verbose           bool
	Quiet             bool
	Timeout           time.Duration
	DefaultTTL        int64
	LockTTL           time.Duration
	QueueVisibility   time.Duration
	MultipartThreshold int64
	ChunkSize         int64
	MaxConcurrency    int
	DedupWindow       time.Duration
	EnableMetrics     bool
	EnableTracing     bool
}

// Options carries the values parsed from CLI flags; zero values mean "not
// set on the command line" so environment/default resolution can proceed.
type Options struct {
	Table   string
	Region  string
	Profile string
	Format  string
	Verbose bool
	Quiet   bool
	Timeout time.Duration
}

// Resolve implements the {arg, env, default} chain from spec.md section 6
// for every tunable the primitives need.
func Resolve(opts Options) (*Config, error) {
	cfg := &Config{
		Table:              firstNonEmpty(opts.Table, getEnv(envPrefix+"_TABLE", ""), defaultTable),
		Region:             firstNonEmpty(opts.Region, getEnv("AWS_REGION", ""), getEnv("AWS_DEFAULT_REGION", "")),
		Profile:            firstNonEmpty(opts.Profile, getEnv("AWS_PROFILE", "")),
		Format:             firstNonEmpty(opts.Format, getEnv(envPrefix+"_FORMAT", ""), "json"),
		Verbose:            opts.Verbose,
		Quiet:              opts.Quiet,
		Timeout:            opts.Timeout,
		DefaultTTL:         getEnvInt64(envPrefix+"_DEFAULT_TTL", defaultTTLSeconds),
		LockTTL:            getEnvDuration(envPrefix+"_LOCK_TTL", defaultLockTTL),
		QueueVisibility:    getEnvDuration(envPrefix+"_QUEUE_VISIBILITY", defaultQueueVisibility),
		MultipartThreshold: getEnvInt64(envPrefix+"_MULTIPART_THRESHOLD", defaultMultipartThreshold),
		ChunkSize:          getEnvInt64(envPrefix+"_CHUNK_SIZE", defaultChunkSize),
		MaxConcurrency:     int(getEnvInt64(envPrefix+"_MAX_CONCURRENCY", defaultMaxConcurrency)),
		DedupWindow:        getEnvDuration(envPrefix+"_DEDUP_WINDOW", defaultDedupWindow),
		EnableMetrics:      getEnvBool(envPrefix+"_ENABLE_METRICS", false),
		EnableTracing:      getEnvBool(envPrefix+"_ENABLE_TRACING", false),
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Format {
	case "json", "json-lines", "value", "table":
	default:
		return fmt.Errorf("invalid --format %q: must be one of json|json-lines|value|table", c.Format)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%s_MAX_CONCURRENCY must be at least 1", envPrefix)
	}
	if c.ChunkSize < 5*1024*1024 {
		return fmt.Errorf("%s_CHUNK_SIZE must be at least 5 MiB", envPrefix)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	return v == "true" || v == "1" || v == "yes"
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
