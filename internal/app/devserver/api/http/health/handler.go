package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	log        *slog.Logger
	middleware huma.Middlewares
	started    time.Time
}

func NewHandler(log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		log:        log,
		middleware: mws,
		started:    time.Now(),
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.checkOp(), h.check)
}

func (h *Handler) check(_ context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check")

	return &Output{
		Body: Response{
			Status:  "OK",
			Service: "nutrilog-devserver",
			Uptime:  time.Since(h.started).Round(time.Second).String(),
		},
	}, nil
}
