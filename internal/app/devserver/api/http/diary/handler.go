package diary

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
	huma.Register(api, h.todayOp(), h.today)
}

func (h *Handler) create(ctx context.Context, in *createInput) (*createOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}
	if in.Body.FoodID == "" {
		return nil, huma.Error400BadRequest("food_id не может быть пустым")
	}

	e := h.store.CreateEntry(userID, in.Body)
	return &createOutput{Body: e}, nil
}

func (h *Handler) delete(ctx context.Context, in *deleteInput) (*struct{}, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	if !h.store.DeleteEntry(userID, in.ID) {
		return nil, huma.Error404NotFound("запись не найдена")
	}
	return &struct{}{}, nil
}

func (h *Handler) today(ctx context.Context, _ *struct{}) (*todayOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	return &todayOutput{Body: h.store.TodayEntries(userID)}, nil
}
