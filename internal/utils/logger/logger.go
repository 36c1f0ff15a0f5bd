// Package logger настраивает slog под окружение приложения.
package logger

import (
	"os"

	"golang.org/x/exp/slog"

	"nutrilog/internal/app/client/config"
)

// New возвращает логгер для окружения: local - цветной человекочитаемый
// вывод с уровнем DEBUG, dev - JSON с уровнем DEBUG, prod - JSON с INFO.
func New(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
}

func setupPrettySlog() *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	return slog.New(opts.NewPrettyHandler(os.Stdout))
}
