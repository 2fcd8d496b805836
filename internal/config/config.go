package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by NEXUS_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("NEXUS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

// Settings is an immutable snapshot of the environment, built once at
// startup and passed explicitly into constructors. Nothing in the
// application reads env vars after FromEnv returns.
type Settings struct {
	ServerPort  int
	DatabaseURL string

	// AdminSchema is the schema holding the tenant registry, RBAC graph,
	// custom-schema definitions, API keys and the audit log.
	AdminSchema string

	// SandboxStatementTimeout bounds every statement executed through a
	// sandboxed session. Clamped to [100ms, 60s].
	SandboxStatementTimeout time.Duration

	// Development fallbacks for the header-based identity path. Empty in
	// production deployments, where only verified claims resolve identity.
	DefaultTenantID  string
	DefaultUserID    string
	DefaultUserRoles string

	RateLimitRPS   float64
	RateLimitBurst int
	LogLevel       string
}

// FromEnv builds a Settings snapshot with defaults applied.
func FromEnv() Settings {
	return Settings{
		ServerPort:              envInt("SERVER_PORT", 8080),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		AdminSchema:             envStr("ADMIN_SCHEMA", "tenant_admin"),
		SandboxStatementTimeout: clampTimeout(time.Duration(envInt("SANDBOX_STATEMENT_TIMEOUT_MS", 3000)) * time.Millisecond),
		DefaultTenantID:         os.Getenv("DEFAULT_TENANT_ID"),
		DefaultUserID:           os.Getenv("DEFAULT_USER_ID"),
		DefaultUserRoles:        os.Getenv("DEFAULT_USER_ROLES"),
		RateLimitRPS:            envFloat("RATE_LIMIT_RPS", 100),
		RateLimitBurst:          envInt("RATE_LIMIT_BURST", 20),
		LogLevel:                envStr("LOG_LEVEL", "info"),
	}
}

func (s Settings) ServerAddr() string {
	return fmt.Sprintf(":%d", s.ServerPort)
}

func clampTimeout(d time.Duration) time.Duration {
	const (
		min = 100 * time.Millisecond
		max = 60 * time.Second
	)
	switch {
	case d < min:
		return min
	case d > max:
		return max
	default:
		return d
	}
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
