package preset

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"nutrilog/internal/app/devserver/api/http/middleware/auth"
	"nutrilog/internal/app/devserver/store"
)

type Handler struct {
	store      *store.Store
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(st *store.Store, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		store:      st,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) create(ctx context.Context, in *createInput) (*createOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if in.Body.Name == "" {
		return nil, huma.Error400BadRequest("имя заготовки не может быть пустым")
	}

	p, duplicate := h.store.CreatePreset(userID, in.Body)
	if duplicate {
		return nil, huma.Error409Conflict("заготовка с таким именем уже существует")
	}
	return &createOutput{Body: p}, nil
}

func (h *Handler) delete(ctx context.Context, in *deleteInput) (*struct{}, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if !h.store.DeletePreset(userID, in.ID) {
		return nil, huma.Error404NotFound("заготовка не найдена")
	}
	return &struct{}{}, nil
}
