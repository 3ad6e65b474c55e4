package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	authMetrics "nightout/internal/auth/metrics"
	authService "nightout/internal/auth/service"
	"nightout/internal/onboarding"
	outingMetrics "nightout/internal/outing/metrics"
	outingModels "nightout/internal/outing/models"
	outingService "nightout/internal/outing/service"
	"nightout/internal/outing/store"
	"nightout/internal/outing/tally"
	"nightout/internal/platform/config"
	"nightout/internal/platform/health"
	"nightout/internal/platform/logger"
	"nightout/internal/platform/metrics"
	"nightout/internal/platform/tracer"
	httptransport "nightout/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing nightout",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"storage", cfg.Storage.Backend,
		"auth_events", cfg.Events.Transport,
	)

	checks := health.New(cfg.Environment)
	infra, err := openStorage(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer infra.Close()

	tr := tracer.NewOTel()

	tracker, err := outingService.New(ctx, store.New(infra.kv),
		outingService.WithLogger(log),
		outingService.WithMetrics(outingMetrics.New()),
		outingService.WithDiscardMalformed(cfg.Outing.DiscardMalformed),
	)
	if err != nil {
		return fmt.Errorf("load outing statistics: %w", err)
	}
	unsubscribeOuting := tracker.Subscribe(func(stats outingModels.Statistics) {
		log.Debug("outing statistics changed",
			"active", stats.Active(),
			"group_total", stats.GroupTotal,
			"total_drinks", stats.TotalDrinks,
		)
	})
	defer unsubscribeOuting()

	drinks, err := tally.Open(ctx, tally.NewStore(infra.kv),
		tally.WithLogger(log),
		tally.WithDiscardMalformed(cfg.Outing.DiscardMalformed),
	)
	if err != nil {
		return fmt.Errorf("load drink tally: %w", err)
	}

	identity, err := openIdentity(cfg, infra.kv, log, tr, checks)
	if err != nil {
		return err
	}
	events, err := openRelay(cfg, identity.hub, log, checks)
	if err != nil {
		return err
	}
	defer events.Close()

	auth := authService.New(identity.platform, infra.kv,
		authService.WithLogger(log),
		authService.WithMetrics(authMetrics.New()),
		authService.WithTracer(tr),
		authService.WithProvisioner(infra.profiles, cfg.Identity.ProvisionProviders...),
		authService.WithProvisionQueue(cfg.Identity.ProvisionQueueSize),
	)
	if err := auth.Start(ctx); err != nil {
		// The state has resolved as signed out; keep serving.
		log.Error("auth state provider started without a session", "error", err)
	}
	defer auth.Stop()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        metrics.New(),
		Health:         checks,
		RequestTimeout: cfg.RequestTimeout,
	},
		httptransport.NewOutingHandler(tracker, drinks, log),
		httptransport.NewAuthHandler(auth, log),
		httptransport.NewOnboardingHandler(onboarding.New(infra.kv), log),
	)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return events.Run(gctx)
	})
	if infra.redis != nil {
		g.Go(func() error {
			return infra.redis.RunPoolStats(gctx, 15*time.Second)
		})
	}
	g.Go(func() error {
		logProvisioning(gctx, auth.Provisioned(), log)
		return nil
	})

	return g.Wait()
}

// logProvisioning drains provisioning outcomes until ctx ends or the service stops.
func logProvisioning(ctx context.Context, results <-chan authService.ProvisionResult, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			if r.Err != nil {
				log.Warn("profile provisioning failed",
					"user_id", r.UserID.String(),
					"provider", r.Provider,
					"error", r.Err,
				)
				continue
			}
			log.Info("profile provisioning finished",
				"user_id", r.UserID.String(),
				"provider", r.Provider,
				"outcome", string(r.Outcome),
			)
		}
	}
}
