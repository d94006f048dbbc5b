// operations.go — GET /api/operations: список операций для клиентов.
package handlers

import (
	"net/http"

	"github.com/bigkaa/docconv/internal/domain/model"
)

// operationsResponse — ответ со списком операций.
type operationsResponse struct {
	Operations []model.OperationDescriptor `json:"operations"`
}

// ListOperations возвращает дескрипторы всех операций в порядке реестра.
func (h *APIHandler) ListOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, operationsResponse{Operations: h.catalog.List()})
}
