package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/devserver/store"

	"github.com/danielgtaylor/huma/v2"
)

type Auth struct {
	store *store.Store
	log   *slog.Logger
}

func New(st *store.Store, log *slog.Logger) *Auth {
	return &Auth{
		store: st,
		log:   log.With("component", "auth middleware"),
	}
}

type contextKey string

const UserIDKey contextKey = "userID"

// GetUserID достает пользователя из контекста запроса.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token := ctx.Header("Authorization")

		if len(token) < 7 || token[:7] != "Bearer " {
			a.log.Warn("запрос без bearer-токена")
			unauthorized(ctx)
			return
		}

		userID, ok := a.store.Validate(token[7:])
		if !ok {
			a.log.Warn("недействительный токен")
			unauthorized(ctx)
			return
		}

		newCtx := context.WithValue(ctx.Context(), UserIDKey, userID)
		next(huma.WithContext(ctx, newCtx))
	}
}

func unauthorized(ctx huma.Context) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": "Unauthorized",
	})
}
