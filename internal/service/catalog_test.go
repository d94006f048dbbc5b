package service

import (
	"testing"
	"time"

	"github.com/bigkaa/docconv/internal/domain/model"
	"github.com/bigkaa/docconv/internal/domain/operation"
)

func newTestCatalog(t *testing.T) *CatalogService {
	t.Helper()
	registry, err := operation.NewRegistry(testServiceEntries(), map[operation.Tool]bool{testToolMissing: false}, time.Second)
	if err != nil {
		t.Fatalf("Ошибка создания реестра: %v", err)
	}
	return NewCatalogService(registry)
}

func TestCatalogService_List(t *testing.T) {
	c := newTestCatalog(t)

	list := c.List()
	if len(list) != len(testServiceEntries()) {
		t.Fatalf("ожидалось %d дескрипторов, получено %d", len(testServiceEntries()), len(list))
	}
	if list[0].ID != "merge_pdfs" {
		t.Errorf("порядок реестра нарушен: первый %s", list[0].ID)
	}
	if c.Available() != len(list)-1 {
		t.Errorf("Available() = %d, ожидалось %d", c.Available(), len(list)-1)
	}
}

func TestCatalogService_ListReturnsCopies(t *testing.T) {
	c := newTestCatalog(t)

	list := c.List()
	for i := range list {
		list[i].Name = "изменено"
		if len(list[i].Params) > 0 {
			list[i].Params[0].Default = "0"
		}
	}

	d, ok := c.Get("rotate_pdf")
	if !ok {
		t.Fatal("rotate_pdf не найдена")
	}
	if d.Name != "Rotate PDF" {
		t.Errorf("изменение копии повлияло на каталог: %q", d.Name)
	}
	if d.Params[0].Default != "90" {
		t.Errorf("изменение параметров копии повлияло на каталог: %q", d.Params[0].Default)
	}
}

func TestCatalogService_Lookups(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name     string
		lookup   func() (model.OperationDescriptor, bool)
		wantID   string
		wantFind bool
	}{
		{"Get существующей", func() (model.OperationDescriptor, bool) { return c.Get("word_to_pdf") }, "word_to_pdf", true},
		{"Get неизвестной", func() (model.OperationDescriptor, bool) { return c.Get("nope") }, "", false},
		{"ByEndpoint", func() (model.OperationDescriptor, bool) { return c.ByEndpoint("pdf-to-text") }, "pdf_to_text", true},
		{"ByEndpoint неизвестный", func() (model.OperationDescriptor, bool) { return c.ByEndpoint("convert") }, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.lookup()
			if ok != tt.wantFind {
				t.Fatalf("found = %v, ожидалось %v", ok, tt.wantFind)
			}
			if d.ID != tt.wantID {
				t.Errorf("ID = %q, ожидался %q", d.ID, tt.wantID)
			}
		})
	}

	if d, _ := c.Get("word_to_pdf"); d.Available {
		t.Error("операция без инструмента должна быть недоступна")
	}
}
