package auth

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"nutrilog/internal/app/devserver/store"
	"nutrilog/internal/domain/remote"
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
	huma.Register(api, h.loginOp(), h.login)
}

func (h *Handler) login(_ context.Context, in *loginInput) (*loginOutput, error) {
	if in.Body.Login == "" {
		return nil, huma.Error400BadRequest("логин не может быть пустым")
	}

	token, userID, expiresAt := h.store.Login(in.Body.Login)
	h.log.Info("выдан токен", slog.String("user_id", userID))

	return &loginOutput{
		Body: remote.LoginResponse{
			Token:     token,
			UserID:    userID,
			ExpiresAt: expiresAt,
		},
	}, nil
}
