package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nairawise/internal/api"
	"nairawise/internal/config"
	"nairawise/internal/game"
	"nairawise/internal/scenario"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	catalog, err := game.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalog failed", "err", err)
		os.Exit(1)
	}
	if err := game.ValidateScenario(catalog.Fallback, cfg.ChoiceCount); err != nil {
		logger.Error("catalog fallback does not fit the configured choice count", "err", err)
		os.Exit(1)
	}

	var equities, funds []string
	for _, a := range catalog.Assets {
		if a.Class == game.AssetFund {
			funds = append(funds, a.ID)
		} else {
			equities = append(equities, a.ID)
		}
	}
	source := scenario.NewClient(scenario.Config{
		BaseURL:     cfg.GeminiBaseURL,
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		ChoiceCount: cfg.ChoiceCount,
		EquityIDs:   equities,
		FundIDs:     funds,
	}, logger)

	rules := game.Rules{
		Selection: game.SelectionPolicy{
			ChoiceCount: cfg.ChoiceCount,
			MinSelect:   cfg.MinSelect,
			MaxSelect:   cfg.MaxSelect,
		},
		Ruin: game.RuinPolicy{
			Mode:   cfg.RuinPolicy,
			Buffer: cfg.RuinBuffer,
		},
		Giving: game.GivingPolicy{
			Enabled:           cfg.GivingEnabled,
			HappinessPerTenth: 2,
		},
	}

	server := api.New(cfg, logger, catalog, rules, source)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("nairawise api listening", "addr", cfg.Addr, "ruin_policy", cfg.RuinPolicy)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
