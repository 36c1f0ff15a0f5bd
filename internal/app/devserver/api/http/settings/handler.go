package settings

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
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.getOp(), h.get)
}

func (h *Handler) update(ctx context.Context, in *updateInput) (*settingsOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	cfg := h.store.PutSettings(userID, in.Body)
	return &settingsOutput{Body: cfg}, nil
}

func (h *Handler) get(ctx context.Context, _ *struct{}) (*settingsOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	cfg, ok := h.store.GetSettings(userID)
	if !ok {
		return nil, huma.Error404NotFound("настройки не найдены")
	}
	return &settingsOutput{Body: cfg}, nil
}
