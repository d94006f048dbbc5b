// sweeper.go — фоновая очистка устаревших загрузок и результатов.
//
// Очистка удаляет из корней загрузок и результатов обычные файлы,
// время изменения которых старше DC_RETENTION. Директории и симлинки
// пропускаются. Ошибки файловой системы логируются и считаются, но
// не прерывают обход.
//
// Запускается как горутина: первый проход сразу после старта,
// далее по тикеру (DC_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docconv/internal/replica"
	"github.com/bigkaa/docconv/internal/storage/attr"
	"github.com/bigkaa/docconv/internal/storage/filestore"
)

// Prometheus метрики очистки
var (
	// sweeperRunsTotal — количество запусков очистки.
	sweeperRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docconv_sweeper_runs_total",
		Help: "Общее количество запусков очистки",
	})

	// sweeperFilesDeletedTotal — количество удалённых файлов по корням.
	sweeperFilesDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docconv_sweeper_files_deleted_total",
		Help: "Общее количество файлов, удалённых очисткой",
	}, []string{"root"})

	// sweeperErrorsTotal — количество ошибок файловой системы при очистке.
	sweeperErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docconv_sweeper_errors_total",
		Help: "Общее количество ошибок при очистке",
	})

	// sweeperDurationSeconds — длительность прохода очистки.
	sweeperDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docconv_sweeper_duration_seconds",
		Help:    "Длительность очистки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// Имена корней в лейблах метрик.
const (
	rootUploads = "uploads"
	rootOutputs = "outputs"
)

// SweepResult — результат одного прохода очистки.
type SweepResult struct {
	// Deleted — количество удалённых файлов по корням
	Deleted map[string]int
	// Errors — количество ошибок при обработке файлов
	Errors int
	// Duration — длительность выполнения
	Duration time.Duration
}

// DeletedCount возвращает общее количество удалённых файлов.
func (r *SweepResult) DeletedCount() int {
	n := 0
	for _, c := range r.Deleted {
		n += c
	}
	return n
}

// SweeperService — сервис фоновой очистки.
type SweeperService struct {
	store     *filestore.FileStore
	cache     *CacheService
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	// roles — кто выполняет очистку при нескольких репликах на общем томе
	roles replica.RoleProvider

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeperService создаёт сервис очистки.
func NewSweeperService(
	store *filestore.FileStore,
	cache *CacheService,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *SweeperService {
	return &SweeperService{
		store:     store,
		cache:     cache,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "sweeper")),
		roles:     &replica.StandaloneProvider{},
	}
}

// SetRoleProvider задаёт источник роли экземпляра. Фоновые проходы
// выполняются только ведущим. Вызывается до Start.
func (s *SweeperService) SetRoleProvider(roles replica.RoleProvider) {
	s.roles = roles
}

// Start запускает фоновую горутину очистки с периодическим тикером.
// Вызывается один раз при старте приложения.
func (s *SweeperService) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(sweepCtx)

	s.logger.Info("Очистка запущена",
		slog.String("interval", s.interval.String()),
		slog.String("retention", s.retention.String()),
	)
}

// Stop останавливает фоновую очистку и ждёт завершения текущего прохода.
func (s *SweeperService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.logger.Info("Очистка остановлена")
}

// run — основной цикл фоновой горутины.
func (s *SweeperService) run(ctx context.Context) {
	defer close(s.done)

	// Первый запуск — сразу после старта
	s.tick()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick выполняет плановый проход, если экземпляр ведущий.
func (s *SweeperService) tick() {
	if !s.roles.IsLeader() {
		s.logger.Debug("Проход очистки пропущен: экземпляр не ведущий",
			slog.String("role", string(s.roles.CurrentRole())),
			slog.String("leader_addr", s.roles.LeaderAddr()),
		)
		return
	}
	s.RunOnce(time.Now())
}

// RunOnce выполняет один проход очистки относительно момента now.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (s *SweeperService) RunOnce(now time.Time) *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{Deleted: make(map[string]int, 2)}
	cutoff := now.Add(-s.retention)

	s.logger.Debug("Очистка начата", slog.Time("cutoff", cutoff))

	s.sweepRoot(rootUploads, s.store.UploadDir(), cutoff, result)
	s.sweepRoot(rootOutputs, s.store.OutputDir(), cutoff, result)

	result.Duration = time.Since(start)

	sweeperRunsTotal.Inc()
	for root, n := range result.Deleted {
		sweeperFilesDeletedTotal.WithLabelValues(root).Add(float64(n))
	}
	sweeperErrorsTotal.Add(float64(result.Errors))
	sweeperDurationSeconds.Observe(result.Duration.Seconds())

	s.logger.Info("Очистка завершена",
		slog.Int("deleted_uploads", result.Deleted[rootUploads]),
		slog.Int("deleted_outputs", result.Deleted[rootOutputs]),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)

	return result
}

// sweepRoot удаляет устаревшие обычные файлы одного корня (без рекурсии).
func (s *SweeperService) sweepRoot(root, dir string, cutoff time.Time, result *SweepResult) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Error("Очистка: ошибка чтения директории",
			slog.String("root", root),
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		result.Errors++
		return
	}

	for _, e := range entries {
		// Только обычные файлы: директории и симлинки не трогаем
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors++
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		if err := s.store.Remove(path); err != nil {
			s.logger.Error("Очистка: ошибка удаления файла",
				slog.String("root", root),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}

		if root == rootOutputs && !attr.IsAttrFile(e.Name()) {
			s.cache.Delete(e.Name())
		}

		s.logger.Debug("Очистка: файл удалён",
			slog.String("root", root),
			slog.String("name", e.Name()),
			slog.Time("modified", info.ModTime()),
		)
		result.Deleted[root]++
	}
}
