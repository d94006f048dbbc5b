// election.go — выбор ведущего через flock() на общей файловой системе.
//
// Алгоритм:
//  1. Попытка захватить эксклюзивную блокировку {lockDir}/.sweeper.lock
//  2. Блокировка получена: роль leader, адрес пишется в .sweeper.info
//  3. Блокировка занята: роль follower, адрес ведущего читается из .sweeper.info
//  4. Follower раз в retryInterval повторяет попытку захвата
package replica

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	// lockFileName — имя файла блокировки.
	lockFileName = ".sweeper.lock"
	// infoFileName — имя файла с адресом ведущего.
	infoFileName = ".sweeper.info"
)

// Election — выбор ведущего через flock() на общей FS.
type Election struct {
	lockDir       string
	port          int
	retryInterval time.Duration
	logger        *slog.Logger

	// Коллбэки при смене роли
	onBecomeLeader   func()
	onBecomeFollower func()

	mu         sync.RWMutex
	role       Role
	leaderAddr string
	lockFile   *os.File // открытый файл с flock

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewElection создаёт выбор ведущего.
//
// Параметры:
//   - lockDir: директория lock-файла на общем томе
//   - port: порт HTTP-сервера текущего экземпляра (для адреса в .sweeper.info)
//   - retryInterval: интервал повторного захвата для follower
//   - onBecomeLeader, onBecomeFollower: коллбэки смены роли (могут быть nil)
func NewElection(
	lockDir string,
	port int,
	retryInterval time.Duration,
	onBecomeLeader func(),
	onBecomeFollower func(),
	logger *slog.Logger,
) *Election {
	return &Election{
		lockDir:          lockDir,
		port:             port,
		retryInterval:    retryInterval,
		onBecomeLeader:   onBecomeLeader,
		onBecomeFollower: onBecomeFollower,
		logger:           logger.With(slog.String("component", "election")),
		role:             RoleFollower,
		stopCh:           make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Start определяет начальную роль и возвращает управление.
// Follower продолжает попытки захвата в фоне до Stop.
func (e *Election) Start() error {
	if err := os.MkdirAll(e.lockDir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию lock %s: %w", e.lockDir, err)
	}

	acquired, err := e.tryAcquireLock()
	if err != nil {
		return fmt.Errorf("ошибка при попытке захвата lock: %w", err)
	}

	if acquired {
		e.becomeLeader()
		close(e.done)
	} else {
		e.becomeFollower()
		go e.retryLoop()
	}

	return nil
}

// Stop останавливает выбор и освобождает lock. Повторный вызов безопасен.
func (e *Election) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		<-e.done

		e.mu.Lock()
		defer e.mu.Unlock()

		if e.lockFile != nil {
			_ = syscall.Flock(int(e.lockFile.Fd()), syscall.LOCK_UN)
			_ = e.lockFile.Close()
			e.lockFile = nil
			e.logger.Info("Lock освобождён")
		}
	})
}

// CurrentRole возвращает текущую роль экземпляра.
func (e *Election) CurrentRole() Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role
}

// IsLeader возвращает true, если экземпляр ведущий.
func (e *Election) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.role == RoleLeader
}

// LeaderAddr возвращает адрес ведущего (host:port).
func (e *Election) LeaderAddr() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderAddr
}

// tryAcquireLock пытается захватить flock. Возвращает true, если блокировка получена.
func (e *Election) tryAcquireLock() (bool, error) {
	lockPath := filepath.Join(e.lockDir, lockFileName)

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return false, fmt.Errorf("не удалось открыть lock-файл %s: %w", lockPath, err)
	}

	// Неблокирующая попытка
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return false, nil
	}

	e.mu.Lock()
	e.lockFile = f
	e.mu.Unlock()

	return true, nil
}

func (e *Election) becomeLeader() {
	addr := e.buildAddr()

	e.mu.Lock()
	e.role = RoleLeader
	e.leaderAddr = addr
	e.mu.Unlock()

	if err := e.writeLeaderInfo(addr); err != nil {
		e.logger.Error("Ошибка записи .sweeper.info", slog.String("error", err.Error()))
	}

	e.logger.Info("Роль: LEADER, очистка выполняется этим экземпляром", slog.String("addr", addr))

	if e.onBecomeLeader != nil {
		e.onBecomeLeader()
	}
}

func (e *Election) becomeFollower() {
	addr := e.readLeaderInfo()

	e.mu.Lock()
	e.role = RoleFollower
	e.leaderAddr = addr
	e.mu.Unlock()

	e.logger.Info("Роль: FOLLOWER", slog.String("leader_addr", addr))

	if e.onBecomeFollower != nil {
		e.onBecomeFollower()
	}
}

// retryLoop — горутина follower, периодически пытающаяся захватить lock.
func (e *Election) retryLoop() {
	defer close(e.done)

	ticker := time.NewTicker(e.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			addr := e.readLeaderInfo()
			e.mu.Lock()
			e.leaderAddr = addr
			e.mu.Unlock()

			acquired, err := e.tryAcquireLock()
			if err != nil {
				e.logger.Warn("Ошибка повторного захвата lock", slog.String("error", err.Error()))
				continue
			}
			if acquired {
				e.becomeLeader()
				return
			}
		}
	}
}

// buildAddr формирует адрес текущего экземпляра: hostname:port.
func (e *Election) buildAddr() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return fmt.Sprintf("%s:%d", hostname, e.port)
}

// writeLeaderInfo атомарно записывает адрес ведущего.
func (e *Election) writeLeaderInfo(addr string) error {
	infoPath := filepath.Join(e.lockDir, infoFileName)
	tmpPath := infoPath + ".tmp"

	if err := os.WriteFile(tmpPath, []byte(addr), 0o640); err != nil {
		return fmt.Errorf("ошибка записи temp %s: %w", infoFileName, err)
	}
	if err := os.Rename(tmpPath, infoPath); err != nil {
		return fmt.Errorf("ошибка переименования %s: %w", infoFileName, err)
	}
	return nil
}

// readLeaderInfo читает адрес ведущего. Пустая строка, если файла нет.
func (e *Election) readLeaderInfo() string {
	data, err := os.ReadFile(filepath.Join(e.lockDir, infoFileName))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ RoleProvider = (*Election)(nil)
