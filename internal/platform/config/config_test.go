package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchSessionPolicy(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 7*24*time.Hour, cfg.Token.TTL)
	assert.Equal(t, 30*time.Minute, cfg.Admin.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.Admin.RememberTTL)
	assert.Equal(t, 30*time.Minute, cfg.Admin.ExtendTTL)
	assert.Equal(t, 5*time.Minute, cfg.Admin.WarnWindow)
	assert.Equal(t, 3, cfg.Admin.MaxFailedLogins)
	assert.Equal(t, 5*time.Minute, cfg.Admin.LockoutDuration)
	assert.Equal(t, 50, cfg.Grievance.DefaultPageSize)
	assert.Equal(t, 30*time.Second, cfg.Suggestion.RetryInterval)
}

func TestLoad_DevModeGeneratesSigningKey(t *testing.T) {
	t.Setenv("CIVICCHAIN_RUN_MODE", "dev")
	t.Setenv("CIVICCHAIN_TOKEN_SIGNING_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Token.SigningKey)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "civicchain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
runMode: prod
http:
  addr: ":9000"
token:
  signingKey: "file-key-file-key-file-key-file-key"
admin:
  sessionTTL: 20m
  operators:
    - email: admin1@example.org
      passwordHash: "$2a$10$abcdefghijklmnopqrstuv"
      name: Admin One
`), 0o600))

	t.Setenv("CIVICCHAIN_HTTP_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RunModeProd, cfg.RunMode)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Equal(t, 20*time.Minute, cfg.Admin.SessionTTL)
	require.Len(t, cfg.Admin.Operators, 1)
	assert.Equal(t, "Admin One", cfg.Admin.Operators[0].Name)
}

func TestValidate(t *testing.T) {
	t.Run("prod requires signing key", func(t *testing.T) {
		cfg := Default()
		cfg.RunMode = RunModeProd
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive ttl rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Token.SigningKey = "k"
		cfg.Admin.SessionTTL = 0
		require.ErrorContains(t, cfg.Validate(), "admin session ttl must be positive")
	})

	t.Run("unknown transition rule rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Token.SigningKey = "k"
		cfg.Grievance.TransitionRule = "sideways"
		require.Error(t, cfg.Validate())
	})

	t.Run("defaults with key are valid", func(t *testing.T) {
		cfg := Default()
		cfg.Token.SigningKey = "k"
		require.NoError(t, cfg.Validate())
	})
}

func TestOperatorsDecode(t *testing.T) {
	var ops Operators
	require.NoError(t, ops.Decode("a@x.org|$2a$10$hash1|Admin One; b@x.org|$2a$10$hash2"))
	require.Len(t, ops, 2)
	assert.Equal(t, "a@x.org", ops[0].Email)
	assert.Equal(t, "$2a$10$hash1", ops[0].PasswordHash)
	assert.Equal(t, "", ops[1].Name)

	require.Error(t, ops.Decode("missing-hash"))
}
