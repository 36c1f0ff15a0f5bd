// Сервер-заглушка для локальной разработки клиента NutriLog.
// Состояние живет в памяти и пропадает при перезапуске.

// POST /api/v1/auth/login     # Вход (публичный)
// GET  /api/v1/health         # Проверка доступности (публичный)
// POST /api/v1/entries        # Создать запись дневника (auth)
// DELETE /api/v1/entries/{id} # Удалить запись (auth)
// GET  /api/v1/entries/today  # Записи за сегодня (auth)
// POST /api/v1/presets        # Создать заготовку, 409 при занятом имени (auth)
// DELETE /api/v1/presets/{id} # Удалить заготовку (auth)
// PUT  /api/v1/settings       # Сохранить настройки (auth)
// GET  /api/v1/settings       # Получить настройки (auth)
// GET  /api/v1/catalog        # Справочник продуктов (auth)

package api

import (
	authAPI "nutrilog/internal/app/devserver/api/http/auth"
	catalogAPI "nutrilog/internal/app/devserver/api/http/catalog"
	diaryAPI "nutrilog/internal/app/devserver/api/http/diary"
	healthAPI "nutrilog/internal/app/devserver/api/http/health"
	"nutrilog/internal/app/devserver/api/http/middleware"
	"nutrilog/internal/app/devserver/api/http/middleware/auth"
	"nutrilog/internal/app/devserver/api/http/middleware/logger"
	presetAPI "nutrilog/internal/app/devserver/api/http/preset"
	settingsAPI "nutrilog/internal/app/devserver/api/http/settings"
	"nutrilog/internal/app/devserver/store"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health   *healthAPI.Handler
	Auth     *authAPI.Handler
	Diary    *diaryAPI.Handler
	Preset   *presetAPI.Handler
	Settings *settingsAPI.Handler
	Catalog  *catalogAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(st *store.Store, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("NutriLog Dev API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(st, log)
	h.Health.SetupRoutes(API)
	h.Auth.SetupRoutes(API)
	h.Diary.SetupRoutes(API)
	h.Preset.SetupRoutes(API)
	h.Settings.SetupRoutes(API)
	h.Catalog.SetupRoutes(API)

	return mux
}

func handlers(st *store.Store, log *slog.Logger) *Handlers {
	authMW := auth.New(st, log).Middleware()
	logMW := logger.New(log).Middleware()

	public := func() huma.Middlewares { return middleware.Stack(logMW) }
	protected := func() huma.Middlewares { return middleware.Stack(authMW, logMW) }

	return &Handlers{
		Health:   healthAPI.NewHandler(log, public()),
		Auth:     authAPI.NewHandler(st, log, public()),
		Diary:    diaryAPI.NewHandler(st, log, protected()),
		Preset:   presetAPI.NewHandler(st, log, protected()),
		Settings: settingsAPI.NewHandler(st, log, protected()),
		Catalog:  catalogAPI.NewHandler(st, log, protected()),
	}
}
