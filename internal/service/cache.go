// Пакет service — бизнес-логика docconv.
// cache.go — LRU-кэш метаданных результатов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docconv_result_cache_hits_total",
		Help: "Общее количество попаданий в кэш метаданных результатов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docconv_result_cache_misses_total",
		Help: "Общее количество промахов кэша метаданных результатов.",
	})
)

// CacheService — LRU-кэш метаданных результатов по имени файла.
// TTL записи равен времени хранения результатов: после него файл
// всё равно будет удалён очисткой.
type CacheService struct {
	cache *expirable.LRU[string, *model.ResultMetadata]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.ResultMetadata](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает метаданные из кэша по имени файла результата.
// Возвращает (метаданные, true) при hit или (nil, false) при miss.
func (c *CacheService) Get(filename string) (*model.ResultMetadata, bool) {
	val, ok := c.cache.Get(filename)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(filename string, meta *model.ResultMetadata) {
	c.cache.Add(filename, meta)
}

// Delete удаляет запись из кэша (файл удалён очисткой).
func (c *CacheService) Delete(filename string) {
	c.cache.Remove(filename)
}

// Len возвращает количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}

// Warm заполняет кэш метаданными, прочитанными с диска при старте.
func (c *CacheService) Warm(metas []*model.ResultMetadata) int {
	for _, m := range metas {
		c.cache.Add(m.Filename, m)
	}
	return len(metas)
}
