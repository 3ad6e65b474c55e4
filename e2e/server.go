package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	authService "nightout/internal/auth/service"
	"nightout/internal/identity/memory"
	"nightout/internal/onboarding"
	outingService "nightout/internal/outing/service"
	"nightout/internal/outing/store"
	"nightout/internal/outing/tally"
	"nightout/internal/platform/health"
	"nightout/internal/platform/metrics"
	"nightout/internal/storage/kv"
	httptransport "nightout/internal/transport/http"
)

type inProcessServer struct {
	*httptest.Server
	platform *memory.Platform
	auth     *authService.Service
}

func (s *inProcessServer) Close() {
	s.Server.Close()
	s.auth.Stop()
}

// startInProcess wires the service the way cmd/server does with the memory
// backends selected.
func startInProcess() (*inProcessServer, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local := kv.NewInMemory()
	platform := memory.New()

	tracker, err := outingService.New(ctx, store.New(local), outingService.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("start tracker: %w", err)
	}

	drinks, err := tally.Open(ctx, tally.NewStore(local), tally.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open tally: %w", err)
	}

	auth := authService.New(platform, local, authService.WithLogger(logger))
	if err := auth.Start(ctx); err != nil {
		return nil, fmt.Errorf("start auth: %w", err)
	}

	reg := prometheus.NewRegistry()
	checks := health.New("e2e")
	checks.RegisterCheck("kv", func(context.Context) error { return nil })

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         logger,
		Metrics:        metrics.NewWithRegisterer(reg),
		Gatherer:       reg,
		Health:         checks,
		RequestTimeout: 5 * time.Second,
	},
		httptransport.NewOutingHandler(tracker, drinks, logger),
		httptransport.NewAuthHandler(auth, logger),
		httptransport.NewOnboardingHandler(onboarding.New(local), logger),
	)

	return &inProcessServer{
		Server:   httptest.NewServer(router),
		platform: platform,
		auth:     auth,
	}, nil
}
