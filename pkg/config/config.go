// Package config loads the firewall's runtime configuration from
// environment variables, following the same os.Getenv-with-defaults
// pattern used elsewhere in this codebase.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds every environment-tunable setting for the firewall service.
type Config struct {
	Port     string
	LogLevel string

	EnterpriseMode bool

	AuditLogDir    string
	AuditLogFile   string
	AuditBackend   string // "file" (default) or "sqlite"
	AuditDBPath    string
	AuditArchiveBucket string
	AuditArchiveRegion string

	MemoryStorageDir string
	MemoryFile       string
	MemoryBackend    string // "file" (default) or "sqlite"
	MemoryDBPath     string

	MetricsStorageDir string
	MetricsFile       string
	MetricsBackend    string // "file" (default) or "sqlite"
	MetricsDBPath     string

	LearningEnabled            bool
	AdaptiveStrictness         bool
	MinFalsePositivesForRelax  int
	MinFalseNegativesForStrict int

	PolicyPackFile string
	PolicyMode     string

	JWTSigningSecret string

	RateLimitRPS   float64
	RateLimitBurst int
	RedisAddr      string

	OTelEnabled bool
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Load reads every setting from its environment variable, falling back to
// the same defaults the original system shipped with.
func Load() *Config {
	auditLogDir := getEnv("ADF_AUDIT_LOG_DIR", "./audit_logs")
	memoryDir := getEnv("ADF_MEMORY_DIR", "./memory")
	metricsDir := getEnv("ADF_METRICS_DIR", "./metrics")

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		EnterpriseMode: getEnvBool("ADF_ENTERPRISE_MODE", false),

		AuditLogDir:        auditLogDir,
		AuditLogFile:       filepath.Join(auditLogDir, "firewall_audit.jsonl"),
		AuditBackend:       getEnv("AUDIT_BACKEND", "file"),
		AuditDBPath:        getEnv("AUDIT_DB_PATH", filepath.Join(auditLogDir, "firewall_audit.db")),
		AuditArchiveBucket: os.Getenv("AUDIT_ARCHIVE_BUCKET"),
		AuditArchiveRegion: getEnv("AUDIT_ARCHIVE_REGION", "us-east-1"),

		MemoryStorageDir: memoryDir,
		MemoryFile:       filepath.Join(memoryDir, "learning_memory.json"),
		MemoryBackend:    getEnv("MEMORY_BACKEND", "file"),
		MemoryDBPath:     getEnv("MEMORY_DB_PATH", filepath.Join(memoryDir, "learning_memory.db")),

		MetricsStorageDir: metricsDir,
		MetricsFile:       filepath.Join(metricsDir, "metrics.json"),
		MetricsBackend:    getEnv("METRICS_BACKEND", "file"),
		MetricsDBPath:     getEnv("METRICS_DB_PATH", filepath.Join(metricsDir, "metrics.db")),

		LearningEnabled:            getEnvBool("ADF_LEARNING_ENABLED", true),
		AdaptiveStrictness:         getEnvBool("ADF_ADAPTIVE_STRICTNESS", true),
		MinFalsePositivesForRelax:  getEnvInt("ADF_MIN_FALSE_POSITIVES_FOR_RELAX", 10),
		MinFalseNegativesForStrict: getEnvInt("ADF_MIN_FALSE_NEGATIVES_FOR_STRICT", 5),

		PolicyPackFile: os.Getenv("POLICY_PACK_FILE"),
		PolicyMode:     getEnv("ADF_POLICY_MODE", "GENERAL_AI"),

		JWTSigningSecret: os.Getenv("ADF_JWT_SIGNING_SECRET"),

		RateLimitRPS:   getEnvFloat("ADF_RATE_LIMIT_RPS", 10.0),
		RateLimitBurst: getEnvInt("ADF_RATE_LIMIT_BURST", 20),
		RedisAddr:      os.Getenv("ADF_REDIS_ADDR"),

		OTelEnabled: getEnvBool("ADF_OTEL_ENABLED", false),
	}
}
