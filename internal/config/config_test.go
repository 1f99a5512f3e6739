package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32ch"

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "GOFER_TEST_GETENV_UNSET", fallback: "default", want: "default"},
		{name: "returns env value when set", key: "GOFER_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "GOFER_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}
			assert.Equal(t, tc.want, getEnv(tc.key, tc.fallback))
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", fallback: 42, want: 42},
		{name: "parses valid int", setVal: strPtr("8080"), want: 8080},
		{name: "parses negative int", setVal: strPtr("-1"), want: -1},
		{name: "errors on non-numeric", setVal: strPtr("abc"), wantErr: true},
		{name: "errors on float", setVal: strPtr("3.14"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			const key = "GOFER_TEST_INT"
			if tc.setVal != nil {
				t.Setenv(key, *tc.setVal)
			}

			got, err := getEnvInt(key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	const key = "GOFER_TEST_FLOAT"

	got, err := getEnvFloat(key, 2.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got, 1e-9)

	t.Setenv(key, "0.5")
	got, err = getEnvFloat(key, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-9)

	t.Setenv(key, "fast")
	_, err = getEnvFloat(key, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), key)
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		setVal   *string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{name: "fallback true when unset", fallback: true, want: true},
		{name: "parses true", setVal: strPtr("true"), want: true},
		{name: "parses 0", setVal: strPtr("0"), fallback: true, want: false},
		{name: "errors on invalid", setVal: strPtr("yes"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			const key = "GOFER_TEST_BOOL"
			if tc.setVal != nil {
				t.Setenv(key, *tc.setVal)
			}

			got, err := getEnvBool(key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses composite", setVal: strPtr("1h30m"), want: 90 * time.Minute},
		{name: "errors on bare number", setVal: strPtr("30"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			const key = "GOFER_TEST_DUR"
			if tc.setVal != nil {
				t.Setenv(key, *tc.setVal)
			}

			got, err := getEnvDuration(key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	const key = "GOFER_TEST_LIST"

	assert.Equal(t, []string{"a"}, getEnvList(key, []string{"a"}))

	t.Setenv(key, " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList(key, nil))
}

// ---------------------------------------------------------------------------
// Load()
// ---------------------------------------------------------------------------

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("GOFER_JWT_SECRET", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "GOFER_JWT_SECRET")
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
	}{
		{name: "short JWT secret", envKey: "GOFER_JWT_SECRET", envVal: "too-short"},
		{name: "unknown store", envKey: "GOFER_STORE", envVal: "sqlite"},
		{name: "DB_PORT not a number", envKey: "GOFER_DB_PORT", envVal: "abc"},
		{name: "DB_PORT too high", envKey: "GOFER_DB_PORT", envVal: "65536"},
		{name: "DB_MAX_CONNS zero", envKey: "GOFER_DB_MAX_CONNS", envVal: "0"},
		{name: "JWT_ACCESS_TTL zero", envKey: "GOFER_JWT_ACCESS_TTL", envVal: "0s"},
		{name: "JWT_REFRESH_TTL negative", envKey: "GOFER_JWT_REFRESH_TTL", envVal: "-1h"},
		{name: "SERVER_READ_TIMEOUT invalid", envKey: "GOFER_SERVER_READ_TIMEOUT", envVal: "soon"},
		{name: "SERVER_WRITE_TIMEOUT zero", envKey: "GOFER_SERVER_WRITE_TIMEOUT", envVal: "0s"},
		{name: "REQUEST_TIMEOUT zero", envKey: "GOFER_REQUEST_TIMEOUT", envVal: "0s"},
		{name: "REDIS_DB not a number", envKey: "GOFER_REDIS_DB", envVal: "abc"},
		{name: "RATE_LIMIT_RPS zero", envKey: "GOFER_RATE_LIMIT_RPS", envVal: "0"},
		{name: "RATE_LIMIT_BURST zero", envKey: "GOFER_RATE_LIMIT_BURST", envVal: "0"},
		{name: "ALLOW_ASSIGNEE_CANCEL not a bool", envKey: "GOFER_ALLOW_ASSIGNEE_CANCEL", envVal: "sometimes"},
		{name: "LOG_FORMAT unknown", envKey: "GOFER_LOG_FORMAT", envVal: "xml"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Always set JWT secret so failures are from the var under test.
			t.Setenv("GOFER_JWT_SECRET", testSecret)
			t.Setenv(tc.envKey, tc.envVal)

			cfg, err := Load()
			require.Error(t, err, "expected error for %s=%q", tc.envKey, tc.envVal)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.envKey)
		})
	}
}

func TestLoad_MemoryStoreSkipsDatabaseChecks(t *testing.T) {
	t.Setenv("GOFER_JWT_SECRET", testSecret)
	t.Setenv("GOFER_STORE", "Memory")
	t.Setenv("GOFER_DB_MAX_CONNS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOFER_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "gofer", cfg.Database.User)
	assert.Equal(t, "gofer_dev", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxConns)

	assert.Empty(t, cfg.Redis.Addr, "events are off unless redis is configured")

	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)

	assert.InDelta(t, 10, cfg.RateLimit.RPS, 1e-9)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.False(t, cfg.Tasks.AllowAssigneeCancel)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_AllCustomValues(t *testing.T) {
	envs := map[string]string{
		"GOFER_STORE":                 "postgres",
		"GOFER_DB_HOST":               "db.campus.internal",
		"GOFER_DB_PORT":               "5433",
		"GOFER_DB_USER":               "prod_user",
		"GOFER_DB_PASSWORD":           "s3cret!",
		"GOFER_DB_NAME":               "gofer_prod",
		"GOFER_DB_SSLMODE":            "require",
		"GOFER_DB_MAX_CONNS":          "50",
		"GOFER_REDIS_ADDR":            "redis.prod:6380",
		"GOFER_REDIS_PASSWORD":        "redis-pass",
		"GOFER_REDIS_DB":              "3",
		"GOFER_JWT_SECRET":            "prod-jwt-secret-256-bits-long!!!",
		"GOFER_JWT_ACCESS_TTL":        "30m",
		"GOFER_JWT_REFRESH_TTL":       "72h",
		"GOFER_SERVER_ADDR":           ":9090",
		"GOFER_SERVER_READ_TIMEOUT":   "5s",
		"GOFER_SERVER_WRITE_TIMEOUT":  "15s",
		"GOFER_REQUEST_TIMEOUT":       "2s",
		"GOFER_CORS_ORIGINS":          "https://gofer.app",
		"GOFER_RATE_LIMIT_RPS":        "2.5",
		"GOFER_RATE_LIMIT_BURST":      "5",
		"GOFER_ALLOW_ASSIGNEE_CANCEL": "true",
		"GOFER_LOG_LEVEL":             "DEBUG",
		"GOFER_LOG_FORMAT":            "text",
	}
	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "db.campus.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "s3cret!", cfg.Database.Password)
	assert.Equal(t, 50, cfg.Database.MaxConns)
	assert.Equal(t, "redis.prod:6380", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 72*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://gofer.app"}, cfg.Server.CORSOrigins)
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 1e-9)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.True(t, cfg.Tasks.AllowAssigneeCancel)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", DBName: "gofer", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gofer sslmode=require", db.DSN())
}
