package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pharosbet/internal/pipeline"
	"github.com/alanyoungcy/pharosbet/internal/server"
	"github.com/alanyoungcy/pharosbet/internal/server/handler"
	"github.com/alanyoungcy/pharosbet/internal/server/ws"
	"github.com/alanyoungcy/pharosbet/internal/session"
)

var nowFunc = time.Now

const shutdownTimeout = 10 * time.Second

// ServerMode serves the HTTP API and the wallet session. The feed is
// reconciled once at startup and then only on demand.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	refresher := pipeline.NewRefresher(deps.Reconciler, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		refresher.Run(ctx)
		return nil
	})
	a.startSession(ctx, g, deps, refresher)
	a.startServer(ctx, g, deps, refresher)
	return wait(g)
}

// RefreshMode runs the reconciliation loop and the archiver without an API.
func (a *App) RefreshMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting refresh mode")
	refresher := pipeline.NewRefresher(deps.Reconciler, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, deps, refresher)
	return wait(g)
}

// FullMode runs the API, the session and the pipeline together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	refresher := pipeline.NewRefresher(deps.Reconciler, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	a.startPipeline(ctx, g, deps, refresher)
	a.startSession(ctx, g, deps, refresher)
	a.startServer(ctx, g, deps, refresher)
	return wait(g)
}

func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies, refresher *pipeline.Refresher) {
	var archiver *pipeline.Archiver
	if deps.Archive != nil {
		archiver = pipeline.NewArchiver(deps.Markets, deps.Archive, a.logger)
	}
	orch := pipeline.NewOrchestrator(refresher, archiver,
		a.cfg.Reconcile.Interval.Duration, a.cfg.Reconcile.ArchiveCron, a.logger)
	g.Go(func() error { return orch.Run(ctx) })
}

func (a *App) startSession(ctx context.Context, g *errgroup.Group, deps *Dependencies, refresher *pipeline.Refresher) {
	g.Go(func() error { return deps.Session.Watch(ctx) })
	g.Go(func() error {
		watchInvalidation(ctx, deps.Session, func(ctx context.Context) {
			refresher.Run(ctx)
			if deps.Notifier == nil {
				return
			}
			var chainID uint64
			if deps.Wallet != nil {
				if n, err := deps.Wallet.GetNetwork(ctx); err == nil {
					chainID = n.ChainID
				}
			}
			if err := deps.Notifier.SessionInvalidated(ctx, chainID); err != nil {
				a.logger.WarnContext(ctx, "invalidation alert failed", slog.String("error", err.Error()))
			}
		}, a.logger)
		return nil
	})
}

func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, refresher *pipeline.Refresher) {
	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, func() any { return deps.Session.Snapshot() }, a.logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("ws hub: %w", err)
			}
			return nil
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(deps.Checks, a.logger),
		Markets: handler.NewMarketHandler(deps.Markets, deps.Session, a.logger),
		Session: handler.NewSessionHandler(deps.Session, a.logger),
		Refresh: handler.NewRefreshHandler(refresher, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// watchInvalidation waits for the session to be invalidated by a chain
// change, rebuilds chain-dependent state through reinit, then resets the
// session so it can connect again.
func watchInvalidation(ctx context.Context, sess *session.Session, reinit func(context.Context), logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Invalidated():
		}
		logger.InfoContext(ctx, "session invalidated, reloading chain state")
		reinit(ctx)
		sess.Reset()
	}
}

func wait(g *errgroup.Group) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
