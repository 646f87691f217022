package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(688888), cfg.Chain.ChainID)
	assert.Equal(t, 50, cfg.Reconcile.PageSize)
	assert.False(t, cfg.Wallet.Enabled())
	assert.False(t, cfg.Notify.Enabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pharosbet.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "server"

[chain]
factory_address = "0x00000000000000000000000000000000000000f1"

[reconcile]
interval = "1m"
page_size = 20

[redis]
enabled = true
snapshot_ttl = "2h"
`), 0o600))

	t.Setenv("PHAROSBET_RECONCILE_PAGE_SIZE", "25")
	t.Setenv("PHAROSBET_SERVER_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PHAROSBET_LOG_LEVEL", "debug")
	t.Setenv("PHAROSBET_SERVER_PORT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.Reconcile.Interval.Duration)
	assert.Equal(t, 25, cfg.Reconcile.PageSize)
	assert.Equal(t, 2*time.Hour, cfg.Redis.SnapshotTTL.Duration)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 688888, int(cfg.Chain.ChainID))
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = "), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Chain.FactoryAddress = "nope"
	cfg.Wallet.EncryptedKeyPath = "/keys/a.json"
	cfg.Reconcile.PageSize = 51
	cfg.Server.Port = 0
	cfg.Notify.TelegramToken = "t"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "trade"`,
		"factory_address",
		"key_password",
		"page_size must be 1-50",
		"server: port",
		"telegram_chat_id",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xdeadbeef"
	cfg.Server.APIKey = "key"
	cfg.Database.DSN = "postgres://u:p@h/db"

	out := RedactedConfig(&cfg)
	assert.Equal(t, redacted, out.Wallet.PrivateKey)
	assert.Equal(t, redacted, out.Server.APIKey)
	assert.Equal(t, "postgres://h/***", out.Database.DSN)
	assert.Empty(t, out.Redis.Password)
	assert.Equal(t, "0xdeadbeef", cfg.Wallet.PrivateKey)

	out.Server.CORSOrigins[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Server.CORSOrigins[0])
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "", redactURL(""))
	assert.Equal(t, "https://discord.com/***", redactURL("https://discord.com/api/webhooks/1/abc"))
	assert.Equal(t, redacted, redactURL("host=db user=u password=p"))
}

// The shipped example must describe the defaults exactly.
func TestExampleConfigMatchesDefaults(t *testing.T) {
	var cfg Config
	_, err := toml.DecodeFile(filepath.Join("..", "..", "config.example.toml"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}
