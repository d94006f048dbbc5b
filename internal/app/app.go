// Пакет app — контекст процесса docconv.
// Собирает конфигурацию, хранилище, реестр операций, кэш и сервисы
// в один объект, который явно передаётся обработчикам и CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bigkaa/docconv/internal/api/middleware"
	"github.com/bigkaa/docconv/internal/capability"
	"github.com/bigkaa/docconv/internal/config"
	"github.com/bigkaa/docconv/internal/domain/operation"
	"github.com/bigkaa/docconv/internal/replica"
	"github.com/bigkaa/docconv/internal/service"
	"github.com/bigkaa/docconv/internal/storage/attr"
	"github.com/bigkaa/docconv/internal/storage/filestore"
)

// Параметры JWKS-клиента.
const (
	jwksClientTimeout   = 10 * time.Second
	jwksRefreshInterval = 15 * time.Minute
	jwtLeeway           = 5 * time.Second
)

// App — контекст процесса. Создаётся один раз при старте.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store        *filestore.FileStore
	Capabilities *capability.Set
	// Available — результат проверки внешних инструментов при старте
	Available map[operation.Tool]bool
	Registry  *operation.Registry
	Cache     *service.CacheService

	Lifecycle *service.LifecycleService
	Download  *service.DownloadService
	Catalog   *service.CatalogService
	Sweeper   *service.SweeperService
	// Roles — роль экземпляра в очистке общих корней хранения
	Roles replica.RoleProvider

	election        *replica.Election
	electionStarted bool

	// Dephealth и JWTAuth создаются только при включённой аутентификации
	Dephealth *service.DephealthService
	JWTAuth   *middleware.JWTAuth
}

// New создаёт контекст процесса: директории, проверку инструментов,
// реестр операций и сервисы. Фоновые процессы не запускаются (см. Start).
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	// 1. Хранилище
	store, err := filestore.New(cfg.UploadDir, cfg.OutputDir, cfg.MaxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("инициализация хранилища: %w", err)
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать рабочую директорию %s: %w", cfg.WorkDir, err)
	}
	a.Store = store

	// 2. Конвертеры и проверка внешних инструментов
	a.Capabilities = capability.New(capability.Options{
		SofficeBin:    cfg.SofficeBin,
		PdftoppmBin:   cfg.PdftoppmBin,
		OfficeTimeout: cfg.OfficeTimeout,
		FontPath:      cfg.FontPath,
	})
	a.Available = a.Capabilities.Probe()
	for tool, ok := range a.Available {
		if !ok {
			logger.Warn("Внешний инструмент не найден, зависимые операции недоступны",
				slog.String("tool", string(tool)),
			)
		}
	}
	logger.Info("Растеризатор PDF выбран", slog.String("rasterizer", a.Capabilities.RasterizerName()))

	// 3. Реестр операций
	a.Registry, err = operation.NewRegistry(a.Capabilities.Entries(), a.Available, cfg.ConversionTimeout)
	if err != nil {
		return nil, fmt.Errorf("инициализация реестра операций: %w", err)
	}

	// 4. Кэш метаданных, прогрев из attr.json
	a.Cache = service.NewCacheService(cfg.ResultCacheSize, cfg.Retention)
	metas, err := attr.ScanDir(cfg.OutputDir, time.Now().Add(-cfg.Retention))
	if err != nil {
		logger.Warn("Ошибка прогрева кэша метаданных", slog.String("error", err.Error()))
	} else if n := a.Cache.Warm(metas); n > 0 {
		logger.Info("Кэш метаданных прогрет", slog.Int("count", n))
	}

	// 5. Сервисы
	a.Lifecycle = service.NewLifecycleService(a.Registry, store, a.Cache, cfg.WorkDir, cfg.MaxUploadSize, logger)
	a.Download = service.NewDownloadService(a.Lifecycle, logger)
	a.Catalog = service.NewCatalogService(a.Registry)
	a.Sweeper = service.NewSweeperService(store, a.Cache, cfg.Retention, cfg.SweepInterval, logger)

	// Несколько реплик на общем томе: очистку выполняет ведущая
	if cfg.LeaderLockDir != "" {
		a.election = replica.NewElection(cfg.LeaderLockDir, cfg.Port, cfg.LeaderRetryInterval, nil, nil, logger)
		a.Roles = a.election
	} else {
		a.Roles = &replica.StandaloneProvider{}
	}
	a.Sweeper.SetRoleProvider(a.Roles)

	logger.Info("Реестр операций готов",
		slog.Int("operations", len(a.Catalog.List())),
		slog.Int("available", a.Catalog.Available()),
	)

	// 6. Аутентификация и мониторинг JWKS
	if cfg.AuthEnabled() {
		a.JWTAuth, err = middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSUrl,
			Issuer:          cfg.JWTIssuer,
			ClientTimeout:   jwksClientTimeout,
			RefreshInterval: jwksRefreshInterval,
			JWTLeeway:       jwtLeeway,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("инициализация JWT: %w", err)
		}

		a.Dephealth, err = service.NewDephealthService(
			serviceID(),
			cfg.DephealthGroup,
			cfg.JWKSUrl,
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			// Сервис работает и без мониторинга зависимостей
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			a.Dephealth = nil
		}
	}

	return a, nil
}

// Start запускает фоновые процессы: очистку и мониторинг зависимостей.
func (a *App) Start(ctx context.Context) {
	if a.election != nil {
		if err := a.election.Start(); err != nil {
			// Роль остаётся follower: экземпляр работает без очистки
			a.Logger.Error("Ошибка выбора ведущего, очистка отключена",
				slog.String("lock_dir", a.Config.LeaderLockDir),
				slog.String("error", err.Error()),
			)
		} else {
			a.electionStarted = true
		}
	}
	a.Sweeper.Start(ctx)

	if a.Dephealth != nil {
		if err := a.Dephealth.Start(ctx); err != nil {
			a.Logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		} else {
			a.Logger.Info("topologymetrics запущен",
				slog.String("jwks_url", a.Config.JWKSUrl),
				slog.String("check_interval", a.Config.DephealthCheckInterval.String()),
			)
		}
	}
}

// Stop останавливает фоновые процессы.
func (a *App) Stop() {
	a.Sweeper.Stop()
	if a.electionStarted {
		a.election.Stop()
		a.electionStarted = false
	}
	if a.Dephealth != nil {
		a.Dephealth.Stop()
	}
}

// DependenciesHealthy сообщает состояние внешних зависимостей для readiness.
// Без аутентификации внешних зависимостей нет.
func (a *App) DependenciesHealthy() (bool, string) {
	if a.Dephealth == nil {
		if a.Config.AuthEnabled() {
			return true, "мониторинг зависимостей выключен"
		}
		return true, ""
	}
	if !a.Dephealth.JWKSHealthy() {
		return false, "JWKS endpoint недоступен"
	}
	return true, ""
}
