package preset

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "presets-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/presets",
		Summary:     "Создать заготовку",
		Description: "Занятое имя дает 409; клиент трактует это как успех.",
		Tags:        []string{"presets"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "presets-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/presets/{id}",
		Summary:     "Удалить заготовку",
		Tags:        []string{"presets"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
