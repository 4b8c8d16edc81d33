package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cementops/admin/internal/db"
	"cementops/admin/internal/detail"
	"cementops/admin/internal/gateway"
	"cementops/admin/internal/httpapi"
	"cementops/admin/internal/remote"
	"cementops/admin/internal/screens"
)

func newServeCmd() *cobra.Command {
	var skipSeed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Migrate, seed and run the admin HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				log.WithError(err).Error("db connect")
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, cfg.DatabaseURL, cfg.MigrationsDir, "up"); err != nil {
				log.WithError(err).Error("db migrate")
				return err
			}
			if !skipSeed {
				if err := db.Seed(ctx, pool, db.SeedOptions{AdminPassword: cfg.SeedAdminPassword, APIToken: cfg.SeedAPIToken}); err != nil {
					log.WithError(err).Error("db seed")
					return err
				}
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			gw := gateway.New(cfg.APIBaseURL, gateway.SessionCredentials{},
				gateway.WithTimeout(cfg.APITimeout),
				gateway.WithLogger(log),
				gateway.WithMetrics(gateway.NewMetrics(reg)),
			)
			api := remote.New(gw)
			store := screens.NewStore(api, screens.WithTTL(cfg.ScreenTTL), screens.WithLogger(log))
			defer store.Close()
			accounts := db.NewAccounts(pool, cfg.SessionDuration)

			srv := &http.Server{
				Addr: ":" + cfg.Port,
				Handler: httpapi.NewRouter(httpapi.Deps{
					Auth:    accounts,
					Screens: store,
					Viewer: detail.NewViewer(api, detail.Options{
						Currency:         cfg.Currency,
						FallbackImageURL: cfg.FallbackImageURL,
					}, log.WithField("component", "detail")),
					Config:  cfg,
					Logger:  log,
					Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.WithField("addr", srv.Addr).Info("CementOps admin API listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				store.Run(gctx, time.Minute)
				return nil
			})
			g.Go(func() error {
				purgeSessions(gctx, accounts, log.WithField("component", "sessions"))
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				log.WithError(err).Error("server stopped")
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "do not seed the default admin users")
	return cmd
}

// purgeSessions drops expired admin sessions every hour until ctx ends.
func purgeSessions(ctx context.Context, accounts *db.Accounts, log *logrus.Entry) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := accounts.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("purge sessions")
				continue
			}
			if n > 0 {
				log.WithField("purged", n).Info("expired sessions removed")
			}
		}
	}
}
