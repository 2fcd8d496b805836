package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "tenant_admin", cfg.AdminSchema)
	assert.Equal(t, 3*time.Second, cfg.SandboxStatementTimeout)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ADMIN_SCHEMA", "control_plane")
	t.Setenv("SANDBOX_STATEMENT_TIMEOUT_MS", "500")
	t.Setenv("DEFAULT_TENANT_ID", "dev-tenant")

	cfg := FromEnv()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "control_plane", cfg.AdminSchema)
	assert.Equal(t, 500*time.Millisecond, cfg.SandboxStatementTimeout)
	assert.Equal(t, "dev-tenant", cfg.DefaultTenantID)
}

func TestFromEnv_TimeoutClamped(t *testing.T) {
	t.Setenv("SANDBOX_STATEMENT_TIMEOUT_MS", "5")
	assert.Equal(t, 100*time.Millisecond, FromEnv().SandboxStatementTimeout)

	t.Setenv("SANDBOX_STATEMENT_TIMEOUT_MS", "99999999")
	assert.Equal(t, 60*time.Second, FromEnv().SandboxStatementTimeout)
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("RATE_LIMIT_RPS", "-3")

	cfg := FromEnv()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, float64(100), cfg.RateLimitRPS)
}

func TestServerAddr(t *testing.T) {
	s := Settings{ServerPort: 8081}
	assert.Equal(t, ":8081", s.ServerAddr())
}
