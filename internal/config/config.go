// Package config defines the pharosbet configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration. Fields come from a TOML file and may be
// overridden by PHAROSBET_* environment variables.
type Config struct {
	Chain     ChainConfig     `toml:"chain"`
	Wallet    WalletConfig    `toml:"wallet"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ChainConfig describes the Pharos network and the market factory.
type ChainConfig struct {
	RPCURL         string `toml:"rpc_url"`
	ChainID        uint64 `toml:"chain_id"`
	ChainName      string `toml:"chain_name"`
	ExplorerURL    string `toml:"explorer_url"`
	Currency       string `toml:"currency"`
	FactoryAddress string `toml:"factory_address"`
}

// WalletConfig selects the key for the local wallet provider. Leaving both
// key fields empty runs without a wallet.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// Enabled reports whether a key source is configured.
func (w WalletConfig) Enabled() bool {
	return w.PrivateKey != "" || w.EncryptedKeyPath != ""
}

// ReconcileConfig tunes the refresh loop.
type ReconcileConfig struct {
	Interval         duration `toml:"interval"`
	PageSize         int      `toml:"page_size"`
	FetchConcurrency int      `toml:"fetch_concurrency"`
	DemoMarkets      bool     `toml:"demo_markets"`
	ArchiveCron      string   `toml:"archive_cron"`
}

// DatabaseConfig holds PostgreSQL connection parameters for off-chain
// markets.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the snapshot cache and
// signal bus.
type RedisConfig struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	Password    string   `toml:"password"`
	DB          int      `toml:"db"`
	PoolSize    int      `toml:"pool_size"`
	MaxRetries  int      `toml:"max_retries"`
	TLSEnabled  bool     `toml:"tls_enabled"`
	SnapshotTTL duration `toml:"snapshot_ttl"`
	Namespace   string   `toml:"namespace"`
}

// S3Config holds object storage parameters for feed archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds alert channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Enabled reports whether any alert channel is configured.
func (n NotifyConfig) Enabled() bool {
	return n.DiscordWebhookURL != "" || (n.TelegramToken != "" && n.TelegramChatID != "")
}

// duration decodes TOML strings like "30s" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used when a key is absent from the file.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:      "https://testnet.dplabs-internal.com",
			ChainID:     688888,
			ChainName:   "Pharos Testnet",
			ExplorerURL: "https://testnet.pharosscan.xyz",
			Currency:    "PHAR",
		},
		Reconcile: ReconcileConfig{
			Interval:         duration{30 * time.Second},
			PageSize:         50,
			FetchConcurrency: 8,
			DemoMarkets:      true,
			ArchiveCron:      "0 * * * *",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pharosbet",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			PoolSize:    10,
			MaxRetries:  3,
			SnapshotTTL: duration{24 * time.Hour},
			Namespace:   "pharosbet",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "pharosbet-archive",
			Prefix:         "pharosbet",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"market_resolved", "session_invalidated"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"server":  true,
	"refresh": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// maxPageSize mirrors the registry page cap enforced by the chain gateway.
const maxPageSize = 50

// Validate returns one error listing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: server, refresh, full)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.Chain.ChainID == 0 {
		add("chain: chain_id must be positive")
	}
	if c.Chain.ChainName == "" {
		add("chain: chain_name must not be empty")
	}
	if c.Chain.Currency == "" {
		add("chain: currency must not be empty")
	}
	if c.Chain.FactoryAddress != "" && !common.IsHexAddress(c.Chain.FactoryAddress) {
		add("chain: factory_address %q is not a hex address", c.Chain.FactoryAddress)
	}
	if c.Chain.FactoryAddress != "" && c.Chain.RPCURL == "" {
		add("chain: rpc_url is required when factory_address is set")
	}

	if c.Wallet.PrivateKey != "" && c.Wallet.EncryptedKeyPath != "" {
		add("wallet: set only one of private_key and encrypted_key_path")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		add("wallet: key_password is required when encrypted_key_path is set")
	}
	if c.Wallet.Enabled() && c.Chain.RPCURL == "" {
		add("wallet: chain.rpc_url is required for the key wallet")
	}

	if c.Reconcile.Interval.Duration <= 0 {
		add("reconcile: interval must be > 0")
	}
	if c.Reconcile.PageSize < 1 || c.Reconcile.PageSize > maxPageSize {
		add("reconcile: page_size must be 1-%d, got %d", maxPageSize, c.Reconcile.PageSize)
	}
	if c.Reconcile.FetchConcurrency < 1 {
		add("reconcile: fetch_concurrency must be >= 1")
	}

	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				add("database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				add("database: port must be 1-65535, got %d", c.Database.Port)
			}
			if c.Database.Database == "" {
				add("database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			add("database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 || c.Database.PoolMinConns > c.Database.PoolMaxConns {
			add("database: pool_min_conns must be 0-pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
		if c.Redis.SnapshotTTL.Duration < 0 {
			add("redis: snapshot_ttl must not be negative")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty")
		}
		if strings.TrimSpace(c.Reconcile.ArchiveCron) == "" {
			add("reconcile: archive_cron is required when s3 is enabled")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server: port must be 1-65535, got %d", c.Server.Port)
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
