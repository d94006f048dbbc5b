// Пакет config — загрузка и валидация конфигурации docconv
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServiceName — имя сервиса в health-ответах и метриках зависимостей.
const ServiceName = "PDF Toolkit API"

// Config содержит все параметры конфигурации docconv.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Корень хранения загруженных файлов
	UploadDir string
	// Корень хранения результатов конвертации
	OutputDir string
	// Директория для временных файлов конвертеров
	WorkDir string
	// Максимальный размер одного загружаемого файла в байтах
	MaxUploadSize int64
	// Сколько хранятся загрузки и результаты до удаления
	Retention time.Duration
	// Интервал запуска очистки устаревших файлов
	SweepInterval time.Duration
	// Таймаут одной конвертации целиком
	ConversionTimeout time.Duration
	// Таймаут запуска LibreOffice
	OfficeTimeout time.Duration
	// Путь к бинарнику LibreOffice (soffice)
	SofficeBin string
	// Путь к бинарнику pdftoppm (poppler-utils)
	PdftoppmBin string
	// TTF-шрифт с кириллицей для текстовых PDF (опционально)
	FontPath string
	// Размер LRU-кэша метаданных результатов
	ResultCacheSize int
	// URL JWKS endpoint. Пустое значение отключает аутентификацию
	JWKSUrl string
	// Ожидаемый issuer JWT (опционально)
	JWTIssuer string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics (DC_DEPHEALTH_GROUP)
	DephealthGroup string

	// Директория lock-файла выбора ведущего экземпляра очистки на общем томе.
	// Пустое значение: экземпляр единственный и очистку выполняет сам
	LeaderLockDir string
	// Интервал повторного захвата lock ведомым экземпляром
	LeaderRetryInterval time.Duration

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// AuthEnabled сообщает, включена ли JWT-аутентификация.
func (c *Config) AuthEnabled() bool {
	return c.JWKSUrl != ""
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// DC_PORT — порт HTTP-сервера (по умолчанию 8090)
	port, err := getEnvInt("DC_PORT", 8090)
	if err != nil {
		return nil, fmt.Errorf("DC_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("DC_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	cfg.UploadDir = getEnvDefault("DC_UPLOAD_DIR", filepath.Join("data", "uploads"))
	cfg.OutputDir = getEnvDefault("DC_OUTPUT_DIR", filepath.Join("data", "outputs"))
	cfg.WorkDir = getEnvDefault("DC_WORK_DIR", filepath.Join(os.TempDir(), "docconv"))

	// Загрузки и результаты не должны делить один корень: очистка и
	// скачивание работают только с корнем результатов.
	if filepath.Clean(cfg.UploadDir) == filepath.Clean(cfg.OutputDir) {
		return nil, fmt.Errorf("DC_OUTPUT_DIR: должен отличаться от DC_UPLOAD_DIR (%s)", cfg.UploadDir)
	}

	// DC_LEADER_LOCK_DIR — вне корней хранения, иначе очистка удалит lock-файл
	cfg.LeaderLockDir = getEnvDefault("DC_LEADER_LOCK_DIR", "")
	if cfg.LeaderLockDir != "" {
		lockDir := filepath.Clean(cfg.LeaderLockDir)
		if lockDir == filepath.Clean(cfg.UploadDir) || lockDir == filepath.Clean(cfg.OutputDir) {
			return nil, fmt.Errorf("DC_LEADER_LOCK_DIR: не должен совпадать с корнем хранения (%s)", cfg.LeaderLockDir)
		}
	}

	// DC_MAX_UPLOAD_SIZE — максимальный размер файла (по умолчанию 50 MB)
	cfg.MaxUploadSize, err = getEnvInt64("DC_MAX_UPLOAD_SIZE", 50<<20)
	if err != nil {
		return nil, fmt.Errorf("DC_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("DC_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// DC_RETENTION — время жизни файлов (по умолчанию 1h)
	cfg.Retention, err = getEnvDuration("DC_RETENTION", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("DC_RETENTION: %w", err)
	}
	if cfg.Retention <= 0 {
		return nil, fmt.Errorf("DC_RETENTION: значение должно быть положительным")
	}

	// DC_SWEEP_INTERVAL — интервал очистки (по умолчанию 30m)
	cfg.SweepInterval, err = getEnvDuration("DC_SWEEP_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DC_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("DC_SWEEP_INTERVAL: значение должно быть положительным")
	}

	cfg.ConversionTimeout, err = getEnvDuration("DC_CONVERSION_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DC_CONVERSION_TIMEOUT: %w", err)
	}

	cfg.OfficeTimeout, err = getEnvDuration("DC_OFFICE_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DC_OFFICE_TIMEOUT: %w", err)
	}
	if cfg.OfficeTimeout > cfg.ConversionTimeout {
		return nil, fmt.Errorf("DC_OFFICE_TIMEOUT: значение %v должно быть <= DC_CONVERSION_TIMEOUT (%v)",
			cfg.OfficeTimeout, cfg.ConversionTimeout)
	}

	cfg.SofficeBin = getEnvDefault("DC_SOFFICE_BIN", "soffice")
	cfg.PdftoppmBin = getEnvDefault("DC_PDFTOPPM_BIN", "pdftoppm")

	// DC_FONT_PATH — если задан, файл должен существовать
	cfg.FontPath = getEnvDefault("DC_FONT_PATH", "")
	if cfg.FontPath != "" {
		if _, err := os.Stat(cfg.FontPath); err != nil {
			return nil, fmt.Errorf("DC_FONT_PATH: %w", err)
		}
	}

	cfg.ResultCacheSize, err = getEnvInt("DC_RESULT_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("DC_RESULT_CACHE_SIZE: %w", err)
	}
	if cfg.ResultCacheSize <= 0 {
		return nil, fmt.Errorf("DC_RESULT_CACHE_SIZE: значение должно быть положительным")
	}

	// DC_JWKS_URL — опциональный, без него API открыт
	cfg.JWKSUrl = getEnvDefault("DC_JWKS_URL", "")
	cfg.JWTIssuer = getEnvDefault("DC_JWT_ISSUER", "")

	// DC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DC_LOG_LEVEL: %w", err)
	}

	// DC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.DephealthCheckInterval, err = getEnvDuration("DC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("DC_DEPHEALTH_GROUP", "docconv")

	cfg.LeaderRetryInterval, err = getEnvDuration("DC_LEADER_RETRY_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_LEADER_RETRY_INTERVAL: %w", err)
	}
	if cfg.LeaderRetryInterval <= 0 {
		return nil, fmt.Errorf("DC_LEADER_RETRY_INTERVAL: значение должно быть положительным")
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("DC_HTTP_READ_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_HTTP_READ_TIMEOUT: %w", err)
	}
	// Запись ответа ждёт окончания конвертации, поэтому таймаут больше.
	cfg.HTTPWriteTimeout, err = getEnvDuration("DC_HTTP_WRITE_TIMEOUT", 6*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DC_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("DC_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// DC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown HTTP-сервера (по умолчанию 10s)
	cfg.ShutdownTimeout, err = getEnvDuration("DC_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
