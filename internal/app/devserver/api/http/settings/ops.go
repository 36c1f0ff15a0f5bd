package settings

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-update",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Сохранить настройки (upsert)",
		Tags:        []string{"settings"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "settings-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Получить настройки",
		Tags:        []string{"settings"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
