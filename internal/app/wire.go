package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/alanyoungcy/pharosbet/internal/blob/s3"
	"github.com/alanyoungcy/pharosbet/internal/cache/redis"
	"github.com/alanyoungcy/pharosbet/internal/chain"
	"github.com/alanyoungcy/pharosbet/internal/config"
	"github.com/alanyoungcy/pharosbet/internal/domain"
	"github.com/alanyoungcy/pharosbet/internal/notify"
	"github.com/alanyoungcy/pharosbet/internal/server/handler"
	"github.com/alanyoungcy/pharosbet/internal/service"
	"github.com/alanyoungcy/pharosbet/internal/session"
	"github.com/alanyoungcy/pharosbet/internal/store/postgres"
	"github.com/alanyoungcy/pharosbet/internal/wallet"
)

// Dependencies holds everything the modes run. Optional parts are nil when
// not configured.
type Dependencies struct {
	Gateway *chain.Gateway
	Wallet  *wallet.KeyWallet
	Session *session.Session

	Markets    *service.MarketService
	Reconciler *service.Reconciler

	Bus      domain.SignalBus
	Archive  *s3blob.FeedArchiver
	Notifier *notify.Notifier

	Checks map[string]handler.Check
}

// Wire builds the dependencies from cfg. The cleanup function releases every
// opened connection.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(format string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf(format, err)
	}

	deps := &Dependencies{Checks: make(map[string]handler.Check)}

	// Chain RPC, shared by the gateway and the key wallet.
	var eth *ethclient.Client
	if cfg.Chain.RPCURL != "" && (cfg.Chain.FactoryAddress != "" || cfg.Wallet.Enabled()) {
		c, err := chain.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return fail("wire: %w", err)
		}
		closers = append(closers, c.Close)
		eth = c
	}
	if cfg.Chain.FactoryAddress != "" {
		gw, err := chain.NewGateway(eth, cfg.Chain.FactoryAddress, logger)
		if err != nil {
			return fail("wire: gateway: %w", err)
		}
		deps.Gateway = gw
	}
	if cfg.Wallet.Enabled() {
		key, err := wallet.LoadKey(wallet.KeySource{
			PrivateKey: cfg.Wallet.PrivateKey,
			KeyPath:    cfg.Wallet.EncryptedKeyPath,
			Password:   cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return fail("wire: wallet key: %w", err)
		}
		w, err := wallet.New(ctx, key, eth, logger)
		if err != nil {
			return fail("wire: wallet: %w", err)
		}
		deps.Wallet = w
	}

	// Postgres for off-chain markets.
	var store domain.MarketStore
	if cfg.Database.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			return fail("wire: postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if cfg.Database.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail("wire: postgres migrations: %w", err)
			}
		}
		store = postgres.NewMarketStore(pg.Pool())
		deps.Checks["postgres"] = pg.Ping
	}

	// Redis for the snapshot cache and the signal bus.
	var snapshots domain.SnapshotCache
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Namespace:  cfg.Redis.Namespace,
		})
		if err != nil {
			return fail("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.Bus = redis.NewSignalBus(rc)
		snapshots = redis.NewSnapshotCache(rc, cfg.Redis.SnapshotTTL.Duration)
		deps.Checks["redis"] = rc.Ping
	}

	// S3 for feed archives.
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("wire: s3: %w", err)
		}
		deps.Archive = s3blob.NewFeedArchiver(s3blob.NewWriter(sc, cfg.S3.Prefix))
		deps.Checks["s3"] = sc.Health
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	// Session. Interface values stay nil unless the concrete part exists.
	var provider session.WalletProvider
	if deps.Wallet != nil {
		provider = deps.Wallet
	}
	target := session.NewChainParams(cfg.Chain.ChainID, cfg.Chain.ChainName,
		cfg.Chain.RPCURL, cfg.Chain.ExplorerURL, cfg.Chain.Currency)
	sess, err := session.New(provider, target, logger)
	if err != nil {
		return fail("wire: session: %w", err)
	}
	if deps.Bus != nil {
		sess.OnChange(publishSession(deps.Bus, logger))
	}
	deps.Session = sess

	var (
		trader   service.Trader
		registry service.Registry
		alerts   service.Alerter
	)
	if deps.Gateway != nil {
		trader, registry = deps.Gateway, deps.Gateway
	}
	if deps.Notifier != nil {
		alerts = deps.Notifier
	}

	deps.Markets = service.NewMarketService(store, deps.Bus, trader, logger)
	if cfg.Reconcile.DemoMarkets {
		deps.Markets.Seed(service.DemoMarkets(nowFunc()))
	}
	if err := deps.Markets.LoadOffChain(ctx); err != nil {
		return fail("wire: load off-chain markets: %w", err)
	}

	deps.Reconciler = service.NewReconciler(registry, deps.Markets, snapshots, alerts, deps.Bus,
		service.ReconcilerConfig{
			PageSize:         cfg.Reconcile.PageSize,
			FetchConcurrency: cfg.Reconcile.FetchConcurrency,
		}, logger)
	if err := deps.Reconciler.WarmStart(ctx); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "warm start skipped", slog.String("error", err.Error()))
		}
	}

	return deps, cleanup, nil
}

// publishSession forwards every session transition to the bus.
func publishSession(bus domain.SignalBus, logger *slog.Logger) func(session.Snapshot) {
	return func(snap session.Snapshot) {
		data, err := json.Marshal(snap)
		if err != nil {
			return
		}
		if err := bus.Publish(context.Background(), domain.ChannelSession, data); err != nil {
			logger.Warn("session publish failed", slog.String("error", err.Error()))
		}
	}
}
