package service

import (
	"testing"
	"time"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	meta := &model.ResultMetadata{
		Filename:  "report_merged.pdf",
		Operation: "merge_pdf",
		Size:      1024,
	}

	if _, ok := cache.Get("report_merged.pdf"); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	cache.Set("report_merged.pdf", meta)
	got, ok := cache.Get("report_merged.pdf")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.Operation != "merge_pdf" {
		t.Errorf("Operation = %q, ожидался %q", got.Operation, "merge_pdf")
	}
}

// TestCacheService_Delete проверяет удаление из кэша.
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set("old.txt", &model.ResultMetadata{Filename: "old.txt"})

	cache.Delete("old.txt")

	if _, ok := cache.Get("old.txt"); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	cache := NewCacheService(100, 50*time.Millisecond)
	cache.Set("ttl.pdf", &model.ResultMetadata{Filename: "ttl.pdf"})

	if _, ok := cache.Get("ttl.pdf"); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("ttl.pdf"); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Eviction проверяет вытеснение при превышении maxSize.
func TestCacheService_Eviction(t *testing.T) {
	cache := NewCacheService(2, 5*time.Minute)

	cache.Set("a.pdf", &model.ResultMetadata{Filename: "a.pdf"})
	cache.Set("b.pdf", &model.ResultMetadata{Filename: "b.pdf"})
	cache.Set("c.pdf", &model.ResultMetadata{Filename: "c.pdf"})

	if cache.Len() != 2 {
		t.Errorf("ожидалось 2 записи, получено %d", cache.Len())
	}
	if _, ok := cache.Get("a.pdf"); ok {
		t.Error("самая старая запись должна быть вытеснена")
	}
	if _, ok := cache.Get("c.pdf"); !ok {
		t.Error("ожидался cache hit для c.pdf")
	}
}

// TestCacheService_Warm проверяет прогрев кэша метаданными с диска.
func TestCacheService_Warm(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	n := cache.Warm([]*model.ResultMetadata{
		{Filename: "a_text.txt"},
		{Filename: "b_pages.zip"},
	})
	if n != 2 {
		t.Errorf("ожидалось 2, получено %d", n)
	}
	if _, ok := cache.Get("b_pages.zip"); !ok {
		t.Error("ожидался cache hit после Warm")
	}
}
