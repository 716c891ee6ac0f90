package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/uizzuu/ddauction-project-sub000/internal/config"
	"github.com/uizzuu/ddauction-project-sub000/internal/dispatcher"
	"github.com/uizzuu/ddauction-project-sub000/internal/hub"
	"github.com/uizzuu/ddauction-project-sub000/internal/ledger"
	"github.com/uizzuu/ddauction-project-sub000/internal/metrics"
	"github.com/uizzuu/ddauction-project-sub000/internal/registry"
	"github.com/uizzuu/ddauction-project-sub000/internal/repository"
	"github.com/uizzuu/ddauction-project-sub000/internal/scheduler"
	"github.com/uizzuu/ddauction-project-sub000/internal/server"
	handler "github.com/uizzuu/ddauction-project-sub000/services/auction/handler"
	"github.com/uizzuu/ddauction-project-sub000/utils"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults apply when omitted)")
	flag.Parse()

	cfg := loadConfig(*configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		utils.Fatal("failed to initialize storage", map[string]any{"error": err.Error()})
	}
	defer closeStore()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	broadcastHub := hub.New(store, m)

	notifier := dispatcher.New(store, broadcastHub, m, cfg.Dispatcher.QueueSize)
	notifier.Start()

	auctionRegistry := registry.New(store)

	bidLedger := ledger.New(store, broadcastHub, notifier, m, ledger.Config{
		MinIncrement:   cfg.Auction.MinIncrement,
		BidWaitTimeout: cfg.Auction.BidWaitTimeout.Std(),
	})

	settler := scheduler.New(scheduler.Config{
		Interval:    cfg.Scheduler.Interval.Std(),
		Concurrency: cfg.Scheduler.Concurrency,
	}, auctionRegistry, store, broadcastHub, notifier, m)
	settler.Start(ctx)

	auctionHandler := handler.NewAuctionHandler(bidLedger, auctionRegistry, notifier)
	wsHandler := server.NewWSHandler(broadcastHub, auctionRegistry, bidLedger, cfg.Hub.WriteTimeout.Std())
	router := server.SetupRouter(cfg, auctionHandler, wsHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("server failed", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("http server shutdown failed", map[string]any{"error": err.Error()})
	}
	if err := settler.Stop(shutdownCtx); err != nil {
		utils.Error("scheduler shutdown failed", map[string]any{"error": err.Error()})
	}
	if err := notifier.Stop(shutdownCtx); err != nil {
		utils.Error("dispatcher shutdown failed", map[string]any{"error": err.Error()})
	}
}

// loadConfig reads the YAML config when a path is given, otherwise runs on
// defaults.
func loadConfig(path string) *config.ServiceConfig {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		utils.Fatal("failed to load config", map[string]any{"path": path, "error": err.Error()})
	}
	return cfg
}

// buildStore selects the durable store when the database is enabled,
// otherwise the in-memory store.
func buildStore(ctx context.Context, cfg *config.ServiceConfig) (repository.AuctionStore, func(), error) {
	if !cfg.Database.Enabled {
		utils.Info("using in-memory store", nil)
		return repository.NewMemoryRepo(), func() {}, nil
	}

	pool, err := repository.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewPostgresRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}

	utils.Info("using postgres store", map[string]any{
		"host": cfg.Database.Host,
		"name": cfg.Database.Name,
	})
	return repo, repo.Close, nil
}
