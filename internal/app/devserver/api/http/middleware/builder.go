package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// Func - сигнатура мидлвари huma.
type Func = func(ctx huma.Context, next func(huma.Context))

// Stack собирает цепочку мидлварей для одного хендлера.
// Каждый вызов возвращает независимый срез.
func Stack(mws ...Func) huma.Middlewares {
	out := make(huma.Middlewares, 0, len(mws))
	for _, mw := range mws {
		out = append(out, mw)
	}
	return out
}
