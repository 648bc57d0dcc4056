// testserver starts a Frontier API server wired to in-process mock
// providers, for local and E2E testing.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http/httptest"
	"os"
	"time"

	"github.com/seantiz/frontier/internal/api"
	"github.com/seantiz/frontier/internal/mockprovider"
	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/retry"
	"github.com/seantiz/frontier/internal/scenario"
	"github.com/seantiz/frontier/internal/store"
	"github.com/seantiz/frontier/internal/sweep"
)

const (
	seed    = 20240601
	testKey = "test-key"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("FRONTIER_LISTEN_ADDR"); v != "" {
		addr = v
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	loader := scenario.NewLoader(scenario.GeneratedSource{})
	set, err := loader.Load(seed, scenario.SuiteSize)
	if err != nil {
		log.Fatalf("failed to load scenarios: %v", err)
	}

	compat := httptest.NewServer(mockprovider.New(mockprovider.Options{
		APIKey:         testKey,
		Answer:         mockprovider.Oracle(set, 0.8),
		Latency:        20 * time.Millisecond,
		RateLimitEvery: 50,
		RetryAfter:     time.Second,
	}))
	defer compat.Close()
	anthropic := httptest.NewServer(mockprovider.New(mockprovider.Options{
		APIKey:  testKey,
		Answer:  mockprovider.Oracle(set, 0.9),
		Latency: 30 * time.Millisecond,
	}))
	defer anthropic.Close()

	reg := provider.NewDefaultRegistry()
	reg.RegisterProvider(provider.Provider{Name: "mock-compat", Family: provider.FamilyOpenAICompatible, BaseURL: compat.URL, APIKey: testKey})
	reg.RegisterProvider(provider.Provider{Name: "mock-anthropic", Family: provider.FamilyAnthropic, BaseURL: anthropic.URL, APIKey: testKey})

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, m := range []model.Model{
		{ID: "compat-small", Provider: "mock-compat", Name: "small-1", InputCostPerMTok: 0.15, OutputCostPerMTok: 0.6},
		{ID: "compat-reasoner", Provider: "mock-compat", Name: "reasoner-1", Reasoning: true, ReasoningEffort: "high", InputCostPerMTok: 1.1, OutputCostPerMTok: 4.4},
		{ID: "anthropic-fast", Provider: "mock-anthropic", Name: "fast-1", InputCostPerMTok: 0.8, OutputCostPerMTok: 4},
	} {
		m.CreatedAt = time.Now().UTC()
		if err := db.CreateModel(ctx, &m); err != nil {
			log.Fatalf("failed to seed model %s: %v", m.ID, err)
		}
	}

	cache := store.NewLeaderboardCache(db)
	sched := sweep.NewScheduler(sweep.Options{
		Models:    db,
		Providers: reg,
		Caller:    provider.NewClient(reg, nil, 10*time.Second),
		Loader:    loader,
		Writer:    sweep.NewResultWriter(db, cache, logger),
		Logger:    logger,
		Seed:      seed,
		// Mock rate limits ask for one second. Server waits are clamped to
		// [BaseDelay, MaxDelay], so a one second base keeps them honoured.
		Retry: retry.Policy{MaxAttempts: retry.DefaultMaxAttempts, BaseDelay: time.Second, MaxDelay: 4 * time.Second, Jitter: retry.DefaultJitter},
	})
	srv := api.NewServer(addr, db, sched, reg, cache, logger)

	logger.Info("testserver: starting", "addr", addr, "compat_url", compat.URL, "anthropic_url", anthropic.URL)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
