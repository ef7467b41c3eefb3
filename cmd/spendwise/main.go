package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/assistant"
	"spendwise/internal/auth"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	apphttp "spendwise/internal/http"
	"spendwise/internal/llm"
	applog "spendwise/internal/log"
	"spendwise/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup completes first.
func run() int {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		return 1
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err.Error(), "backend", backendCfg.Type.String())
		return 1
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err.Error())
		}
	}()

	relay, err := llm.NewGemini(llm.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.AIRequestTimeout,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", applog.FieldError, err.Error())
		return 1
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	store := res.Store
	svc := apphttp.Services{
		Accounts:  services.NewAccountService(store, tokens, logger),
		Expenses:  services.NewExpenseService(store, res.Events, logger),
		Budgets:   services.NewBudgetService(store, res.Events, logger),
		Assistant: assistant.NewService(assistant.NewAggregator(store, store), relay, logger),
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, tokens, store, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendwise server",
			"port", cfg.Port,
			"backend", backendCfg.Type.String(),
			applog.FieldModel, cfg.GeminiModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		return 1
	}
	logger.Info("Server stopped gracefully")
	return 0
}
