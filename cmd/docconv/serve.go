package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/docconv/api"
	"github.com/bigkaa/docconv/internal/api/handlers"
	"github.com/bigkaa/docconv/internal/config"
	"github.com/bigkaa/docconv/internal/server"
)

// serveCmd запускает HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	cfg, logger := a.Config, a.Logger

	logger.Info("docconv запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("upload_dir", cfg.UploadDir),
		slog.String("output_dir", cfg.OutputDir),
		slog.Bool("auth_enabled", cfg.AuthEnabled()),
	)

	// Встроенный контракт должен быть валидным
	if _, err := api.Load(ctx); err != nil {
		logger.Error("Некорректный OpenAPI-контракт", slog.String("error", err.Error()))
		return fmt.Errorf("openapi: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Start(ctx)
	defer a.Stop()

	// --- HTTP ---
	diskUsage := diskUsageFn(cfg.OutputDir)
	healthHandler := handlers.NewHealthHandler(a.Store, a, diskUsage)
	systemHandler := handlers.NewSystemHandler(cfg, a.Catalog, a.Capabilities.RasterizerName(), diskUsage)
	apiHandler := handlers.NewAPIHandler(
		a.Lifecycle,
		a.Download,
		a.Catalog,
		healthHandler,
		systemHandler,
		cfg.MaxUploadSize,
		logger,
	)

	// JWTAuth == nil не должен попасть в интерфейс как типизированный nil
	var jwtAuth server.JWTAuthProvider
	if a.JWTAuth != nil {
		jwtAuth = a.JWTAuth
	}

	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		return err
	}

	logger.Info("docconv остановлен")
	return nil
}
