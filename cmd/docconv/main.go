// Точка входа docconv — сервиса и CLI конвертации документов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/docconv/internal/app"
	"github.com/bigkaa/docconv/internal/config"
)

// rootCmd — корневая команда docconv.
var rootCmd = &cobra.Command{
	Use:   "docconv",
	Short: "Сервис конвертации и обработки PDF-документов",
	Long: `docconv принимает документы, выполняет одну из операций конвертации
(объединение, разделение, поворот, сжатие PDF, конвертация офисных документов
и изображений) и публикует результат для скачивания.

Команда serve запускает HTTP API, convert выполняет операцию локально.
Настройки задаются переменными окружения DC_*.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, convertCmd, operationsCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newApp загружает конфигурацию и создаёт контекст процесса.
func newApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	logger := config.SetupLogger(cfg)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации", slog.String("error", err.Error()))
		return nil, err
	}
	return a, nil
}

// versionCmd выводит версию сборки.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Показать версию",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.ServiceName, config.Version)
	},
}
