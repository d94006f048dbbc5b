// catalog.go — список операций для клиентов.
package service

import (
	"github.com/bigkaa/docconv/internal/domain/model"
	"github.com/bigkaa/docconv/internal/domain/operation"
)

// CatalogService — неизменяемый список дескрипторов операций.
// Строится один раз из реестра, безопасен для конкурентного чтения.
type CatalogService struct {
	descriptors []model.OperationDescriptor
	byID        map[string]int
	byEndpoint  map[string]int
}

// NewCatalogService создаёт каталог по дескрипторам реестра.
func NewCatalogService(registry *operation.Registry) *CatalogService {
	ds := registry.Descriptors()
	c := &CatalogService{
		descriptors: ds,
		byID:        make(map[string]int, len(ds)),
		byEndpoint:  make(map[string]int, len(ds)),
	}
	for i, d := range ds {
		c.byID[d.ID] = i
		if d.Endpoint != "" {
			c.byEndpoint[d.Endpoint] = i
		}
	}
	return c
}

// List возвращает копии всех дескрипторов в порядке реестра.
func (c *CatalogService) List() []model.OperationDescriptor {
	out := make([]model.OperationDescriptor, len(c.descriptors))
	for i, d := range c.descriptors {
		out[i] = copyDescriptor(d)
	}
	return out
}

// Get возвращает дескриптор по идентификатору операции.
func (c *CatalogService) Get(id string) (model.OperationDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.OperationDescriptor{}, false
	}
	return copyDescriptor(c.descriptors[i]), true
}

// ByEndpoint возвращает дескриптор по пути отдельного endpoint (без /api/).
func (c *CatalogService) ByEndpoint(endpoint string) (model.OperationDescriptor, bool) {
	i, ok := c.byEndpoint[endpoint]
	if !ok {
		return model.OperationDescriptor{}, false
	}
	return copyDescriptor(c.descriptors[i]), true
}

// Available возвращает количество операций, для которых найдены все инструменты.
func (c *CatalogService) Available() int {
	n := 0
	for _, d := range c.descriptors {
		if d.Available {
			n++
		}
	}
	return n
}

func copyDescriptor(d model.OperationDescriptor) model.OperationDescriptor {
	d.Params = append([]model.ParamSpec(nil), d.Params...)
	return d
}
