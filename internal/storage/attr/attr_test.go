package attr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// testMetadata создаёт тестовые метаданные.
func testMetadata() *model.ResultMetadata {
	return &model.ResultMetadata{
		Filename:        "report_merged.pdf",
		Operation:       "merge_pdf",
		RequestID:       "0b8f3c1e-5a4d-4e3f-9a7b-2c1d0e9f8a7b",
		SourceFilenames: []string{"report.pdf", "appendix.pdf"},
		ContentType:     "application/pdf",
		Size:            2048,
		RequestedBy:     "admin",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

// writeWithData создаёт файл результата и его attr.json.
func writeWithData(t *testing.T, dir, name string, meta *model.ResultMetadata) {
	t.Helper()
	dataPath := filepath.Join(dir, name)
	if err := os.WriteFile(dataPath, []byte("%PDF"), 0o640); err != nil {
		t.Fatalf("ошибка создания файла результата: %v", err)
	}
	if err := Write(AttrFilePath(dataPath), meta); err != nil {
		t.Fatalf("ошибка записи %s: %v", name, err)
	}
}

// TestWriteAndRead проверяет запись и чтение attr.json.
func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	meta := testMetadata()
	path := filepath.Join(dir, "report_merged.pdf"+AttrSuffix)

	if err := Write(path, meta); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	readMeta, err := Read(path)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}

	if readMeta.Filename != meta.Filename {
		t.Errorf("Filename: ожидалось %q, получено %q", meta.Filename, readMeta.Filename)
	}
	if readMeta.Operation != meta.Operation {
		t.Errorf("Operation: ожидалось %q, получено %q", meta.Operation, readMeta.Operation)
	}
	if readMeta.RequestID != meta.RequestID {
		t.Errorf("RequestID: ожидалось %q, получено %q", meta.RequestID, readMeta.RequestID)
	}
	if len(readMeta.SourceFilenames) != 2 || readMeta.SourceFilenames[1] != "appendix.pdf" {
		t.Errorf("SourceFilenames: получено %v", readMeta.SourceFilenames)
	}
	if readMeta.ContentType != meta.ContentType {
		t.Errorf("ContentType: ожидалось %q, получено %q", meta.ContentType, readMeta.ContentType)
	}
	if readMeta.Size != meta.Size {
		t.Errorf("Size: ожидалось %d, получено %d", meta.Size, readMeta.Size)
	}
	if readMeta.RequestedBy != meta.RequestedBy {
		t.Errorf("RequestedBy: ожидалось %q, получено %q", meta.RequestedBy, readMeta.RequestedBy)
	}
	if !readMeta.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("CreatedAt: ожидалось %v, получено %v", meta.CreatedAt, readMeta.CreatedAt)
	}
}

// TestWrite_AtomicNoTmpFile проверяет, что temp файл не остаётся после записи.
func TestWrite_AtomicNoTmpFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pdf"+AttrSuffix)

	if err := Write(path, testMetadata()); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("временный файл не должен существовать после атомарной записи")
	}
}

// TestWrite_OverwriteExisting проверяет перезапись существующего attr.json.
func TestWrite_OverwriteExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pdf"+AttrSuffix)
	meta := testMetadata()

	if err := Write(path, meta); err != nil {
		t.Fatalf("ошибка первой записи: %v", err)
	}

	meta.Size = 4096
	meta.RequestedBy = ""
	if err := Write(path, meta); err != nil {
		t.Fatalf("ошибка перезаписи: %v", err)
	}

	readMeta, err := Read(path)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if readMeta.Size != 4096 {
		t.Errorf("размер не обновлён: %d", readMeta.Size)
	}
	if readMeta.RequestedBy != "" {
		t.Errorf("RequestedBy должен быть пустым, получено %q", readMeta.RequestedBy)
	}
}

// TestWrite_AnonymousOmitsRequestedBy проверяет, что без аутентификации
// поле requested_by не пишется в JSON.
func TestWrite_AnonymousOmitsRequestedBy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anon.pdf"+AttrSuffix)

	meta := testMetadata()
	meta.RequestedBy = ""
	if err := Write(path, meta); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if strings.Contains(string(data), "requested_by") {
		t.Errorf("requested_by не должен попадать в attr.json: %s", data)
	}
}

// TestRead_NotFound проверяет ошибку при чтении несуществующего файла.
func TestRead_NotFound(t *testing.T) {
	if _, err := Read("/nonexistent/path/file.attr.json"); err == nil {
		t.Error("ожидалась ошибка для несуществующего файла")
	}
}

// TestRead_InvalidJSON проверяет ошибку при невалидном JSON.
func TestRead_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.attr.json")
	if err := os.WriteFile(path, []byte("invalid json"), 0o640); err != nil {
		t.Fatalf("ошибка создания файла: %v", err)
	}

	if _, err := Read(path); err == nil {
		t.Error("ожидалась ошибка для невалидного JSON")
	}
}

// TestDelete проверяет удаление attr.json.
func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.attr.json")

	if err := Write(path, testMetadata()); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}
	if err := Delete(path); err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("файл должен быть удалён")
	}
}

// TestDelete_NotFound проверяет, что удаление несуществующего файла не ошибка.
func TestDelete_NotFound(t *testing.T) {
	if err := Delete("/nonexistent/path/file.attr.json"); err != nil {
		t.Errorf("удаление несуществующего файла не должно возвращать ошибку: %v", err)
	}
}

// TestAttrFilePath проверяет формирование пути к attr.json.
func TestAttrFilePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/outputs/report_merged.pdf", "/outputs/report_merged.pdf.attr.json"},
		{"/outputs/scan_images.zip", "/outputs/scan_images.zip.attr.json"},
		{"notes.txt", "notes.txt.attr.json"},
	}

	for _, tt := range tests {
		if result := AttrFilePath(tt.input); result != tt.expected {
			t.Errorf("AttrFilePath(%q): ожидалось %q, получено %q", tt.input, tt.expected, result)
		}
	}
}

// TestDataFilePathFromAttr проверяет извлечение пути файла результата из attr.json.
func TestDataFilePathFromAttr(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/outputs/report_merged.pdf.attr.json", "/outputs/report_merged.pdf"},
		{"/outputs/table.xlsx.attr.json", "/outputs/table.xlsx"},
	}

	for _, tt := range tests {
		if result := DataFilePathFromAttr(tt.input); result != tt.expected {
			t.Errorf("DataFilePathFromAttr(%q): ожидалось %q, получено %q", tt.input, tt.expected, result)
		}
	}
}

// TestIsAttrFile проверяет определение файла метаданных по пути.
func TestIsAttrFile(t *testing.T) {
	if !IsAttrFile("report.pdf.attr.json") {
		t.Error("report.pdf.attr.json должен быть attr-файлом")
	}
	if IsAttrFile("report.pdf") {
		t.Error("report.pdf не должен быть attr-файлом")
	}
}

// TestScanDir проверяет сканирование директории на attr.json файлы.
func TestScanDir(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"a_merged.pdf", "b_text.txt", "c_images.zip"} {
		meta := testMetadata()
		meta.Filename = name
		writeWithData(t, dir, name, meta)
	}

	// Обычный файл без attr.json
	os.WriteFile(filepath.Join(dir, "raw_output.pdf"), []byte("data"), 0o640)

	results, err := ScanDir(dir, time.Time{})
	if err != nil {
		t.Fatalf("ошибка сканирования: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("ожидалось 3 метаданных, получено %d", len(results))
	}
}

// TestScanDir_EmptyDir проверяет сканирование пустой директории.
func TestScanDir_EmptyDir(t *testing.T) {
	results, err := ScanDir(t.TempDir(), time.Time{})
	if err != nil {
		t.Fatalf("ошибка сканирования: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("ожидалось 0 метаданных, получено %d", len(results))
	}
}

// TestScanDir_SkipInvalidJSON проверяет, что невалидные attr.json пропускаются.
func TestScanDir_SkipInvalidJSON(t *testing.T) {
	dir := t.TempDir()

	writeWithData(t, dir, "good.pdf", testMetadata())
	os.WriteFile(filepath.Join(dir, "bad.pdf"), []byte("%PDF"), 0o640)
	os.WriteFile(filepath.Join(dir, "bad.pdf"+AttrSuffix), []byte("broken"), 0o640)

	results, err := ScanDir(dir, time.Time{})
	if err != nil {
		t.Fatalf("ошибка сканирования: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("ожидалось 1 метаданных (невалидный пропущен), получено %d", len(results))
	}
}

// TestScanDir_SkipOrphan проверяет, что attr.json без файла результата пропускается.
func TestScanDir_SkipOrphan(t *testing.T) {
	dir := t.TempDir()

	writeWithData(t, dir, "kept.pdf", testMetadata())
	if err := Write(filepath.Join(dir, "gone.pdf"+AttrSuffix), testMetadata()); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	results, err := ScanDir(dir, time.Time{})
	if err != nil {
		t.Fatalf("ошибка сканирования: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("ожидалось 1 метаданных (сирота пропущена), получено %d", len(results))
	}
}

// TestScanDir_SkipExpired проверяет отсев результатов старше границы хранения.
func TestScanDir_SkipExpired(t *testing.T) {
	dir := t.TempDir()

	fresh := testMetadata()
	writeWithData(t, dir, "fresh.pdf", fresh)
	old := testMetadata()
	old.CreatedAt = time.Now().Add(-2 * time.Hour).UTC()
	writeWithData(t, dir, "old.pdf", old)

	results, err := ScanDir(dir, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ошибка сканирования: %v", err)
	}
	if len(results) != 1 || results[0].Filename != "fresh.pdf" {
		t.Fatalf("ожидался только fresh.pdf, получено %d метаданных", len(results))
	}
}

// TestScanDir_FilenameFromDisk проверяет, что имя и размер берутся из файла результата.
func TestScanDir_FilenameFromDisk(t *testing.T) {
	dir := t.TempDir()

	meta := testMetadata()
	meta.Filename = "stale_name.pdf"
	meta.ContentType = ""
	writeWithData(t, dir, "report_merged_1.pdf", meta)

	results, err := ScanDir(dir, time.Time{})
	if err != nil {
		t.Fatalf("ошибка сканирования: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ожидалось 1 метаданных, получено %d", len(results))
	}
	got := results[0]
	if got.Filename != "report_merged_1.pdf" {
		t.Errorf("Filename = %q, ожидалось имя файла на диске", got.Filename)
	}
	if got.Size != int64(len("%PDF")) {
		t.Errorf("Size = %d, ожидался размер файла", got.Size)
	}
	if got.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q", got.ContentType)
	}
}

// TestWrite_TooLargeAttr проверяет отклонение слишком больших attr.json.
func TestWrite_TooLargeAttr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.attr.json")

	meta := testMetadata()
	meta.SourceFilenames = []string{strings.Repeat("A", maxAttrFileSize+1)}

	if err := Write(path, meta); err == nil {
		t.Error("ожидалась ошибка для слишком большого attr.json")
	}
}
