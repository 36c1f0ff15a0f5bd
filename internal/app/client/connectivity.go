package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/time/rate"
)

// probeTimeout ограничивает время одной проверки доступности сервера.
// Проверка не должна подвешивать вызывающий код.
const probeTimeout = 5 * time.Second

// Connectivity отслеживает доступность сети. Флаг online ставится извне
// (события браузера, команда пользователя), но сам по себе он врет:
// online-событие говорит лишь о наличии интерфейса, не о достижимости
// сервера. Поэтому окончательный ответ - флаг плюс живая проверка.
type Connectivity struct {
	probe   func(ctx context.Context) error
	limiter *rate.Limiter
	log     *slog.Logger

	mu        sync.Mutex
	online    bool
	lastProbe bool
}

// NewConnectivity создает трекер доступности. probe - запрос к серверу
// (обычно health-эндпоинт). Проверки троттлятся: не чаще одной
// в секунду, чтобы частые вызовы TrulyOnline не превращались в шторм.
func NewConnectivity(probe func(ctx context.Context) error, log *slog.Logger) *Connectivity {
	return &Connectivity{
		probe:   probe,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log,
		online:  true,
	}
}

// SetOnline выставляет флаг доступности сети.
func (c *Connectivity) SetOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online = online
	if !online {
		c.lastProbe = false
	}
}

// Online возвращает текущее значение флага без проверки сервера.
func (c *Connectivity) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// TrulyOnline отвечает, достижим ли сервер на самом деле: флаг включен
// И проверка прошла. При сработавшем троттлинге возвращается результат
// последней проверки.
func (c *Connectivity) TrulyOnline(ctx context.Context) bool {
	c.mu.Lock()
	online := c.online
	last := c.lastProbe
	c.mu.Unlock()

	if !online {
		return false
	}

	if !c.limiter.Allow() {
		return last
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := c.probe(probeCtx)
	reachable := err == nil
	if err != nil {
		c.log.Debug("сервер недоступен", slog.String("error", err.Error()))
	}

	c.mu.Lock()
	c.lastProbe = reachable
	c.mu.Unlock()
	return reachable
}
