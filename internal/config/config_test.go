package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "market")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "market")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("GO_ENV", "dev")
	t.Setenv("CLIENT_ORIGIN", "http://localhost:5173")
	t.Setenv("ADMIN_EMAILS", "")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("STRIPE_CURRENCY", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SERVICE_NAME", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, "disable", cfg.PostgresSSLMode)
	assert.Equal(t, "usd", cfg.StripeCurrency)
	assert.Equal(t, "market-api", cfg.ServiceName)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.PaymentsEnabled())
	assert.False(t, cfg.IsProd())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "host=localhost port=5432 user=market password=secret dbname=market sslmode=disable", cfg.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/market")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("ADMIN_EMAILS", " Admin@EarthCo.test , ops@earthco.test,")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	t.Setenv("STRIPE_CURRENCY", "EUR")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GO_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/market", cfg.DSN())
	assert.Equal(t, []string{"admin@earthco.test", "ops@earthco.test"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail(" ADMIN@earthco.test"))
	assert.False(t, cfg.IsAdminEmail("user@earthco.test"))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PaymentsEnabled())
	assert.Equal(t, "eur", cfg.StripeCurrency)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.IsProd())
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"port", "PORT", "", "PORT is required"},
		{"jwt", "JWT_SECRET", "", "JWT_SECRET is required"},
		{"env", "GO_ENV", "", "GO_ENV is required"},
		{"origin", "CLIENT_ORIGIN", "", "CLIENT_ORIGIN is required"},
		{"pg user", "POSTGRES_USER", "", "POSTGRES_USER is required"},
		{"pg port", "POSTGRES_PORT", "abc", "POSTGRES_PORT must be number"},
		{"ttl", "ACCESS_TOKEN_TTL", "-1h", "ACCESS_TOKEN_TTL must be positive"},
		{"ttl format", "ACCESS_TOKEN_TTL", "soon", "ACCESS_TOKEN_TTL must be duration"},
		{"log level", "LOG_LEVEL", "loud", "LOG_LEVEL is invalid"},
		{"webhook without key", "STRIPE_WEBHOOK_SECRET", "whsec_x", "STRIPE_SECRET_KEY is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.val)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
