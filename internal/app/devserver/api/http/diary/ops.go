package diary

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "entries-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries",
		Summary:     "Создать запись дневника",
		Description: "Повторная доставка с тем же идентификатором корреляции не создает дубликат.",
		Tags:        []string{"entries"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "entries-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Удалить запись дневника",
		Tags:        []string{"entries"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) todayOp() huma.Operation {
	return huma.Operation{
		OperationID: "entries-today",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/today",
		Summary:     "Записи за сегодня",
		Tags:        []string{"entries"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
