// Пакет replica — выбор ведущего экземпляра docconv при нескольких репликах
// на общих корнях хранения.
//
// Конвертацию и скачивание обслуживают все реплики. Очистку устаревших
// файлов выполняет только ведущая, чтобы проходы не пересекались.
package replica

// Role — роль экземпляра docconv.
type Role string

const (
	// RoleStandalone — единственный экземпляр, lock не настроен.
	RoleStandalone Role = "standalone"
	// RoleLeader — ведущий: выполняет очистку.
	RoleLeader Role = "leader"
	// RoleFollower — ведомый: очистку пропускает.
	RoleFollower Role = "follower"
)

// RoleProvider — текущая роль экземпляра.
// Реализации: StandaloneProvider и Election.
type RoleProvider interface {
	// CurrentRole возвращает текущую роль экземпляра.
	CurrentRole() Role
	// IsLeader возвращает true, если экземпляр выполняет очистку.
	IsLeader() bool
	// LeaderAddr возвращает адрес ведущего (host:port).
	// Пустая строка, если ведущий неизвестен.
	LeaderAddr() string
}

// StandaloneProvider — RoleProvider единственного экземпляра.
type StandaloneProvider struct{}

// CurrentRole возвращает RoleStandalone.
func (p *StandaloneProvider) CurrentRole() Role {
	return RoleStandalone
}

// IsLeader всегда возвращает true.
func (p *StandaloneProvider) IsLeader() bool {
	return true
}

// LeaderAddr возвращает пустую строку.
func (p *StandaloneProvider) LeaderAddr() string {
	return ""
}
