package app

import (
	"os"
	"strings"
)

// defaultServiceID — идентификатор сервиса в topologymetrics, если hostname недоступен.
const defaultServiceID = "docconv"

// serviceID возвращает идентификатор сервиса для метрик зависимостей:
// имя владельца пода (Deployment или StatefulSet), выведенное из hostname.
func serviceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return defaultServiceID
	}
	return parseOwnerName(hostname)
}

// parseOwnerName извлекает имя владельца пода из hostname.
//
//	<deployment>-<hash ReplicaSet>-<суффикс пода> → <deployment>
//	<statefulset>-<ordinal>                       → <statefulset>
//
// Остальные имена возвращаются без изменений.
func parseOwnerName(hostname string) string {
	parts := strings.Split(hostname, "-")
	n := len(parts)

	if n >= 3 && len(parts[n-1]) == 5 && isAlnum(parts[n-1]) &&
		len(parts[n-2]) >= 6 && len(parts[n-2]) <= 10 && isAlnum(parts[n-2]) {
		return strings.Join(parts[:n-2], "-")
	}
	if n >= 2 && isDigits(parts[n-1]) {
		return strings.Join(parts[:n-1], "-")
	}
	return hostname
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return s != ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
