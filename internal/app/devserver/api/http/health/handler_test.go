package health

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestHealthCheck(t *testing.T) {
	h := NewHandler(slog.Default(), huma.Middlewares{})

	out, err := h.check(context.Background(), &Input{})
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, "OK", out.Body.Status)
	assert.Equal(t, "nutrilog-devserver", out.Body.Service)

	uptime, err := time.ParseDuration(out.Body.Uptime)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, uptime, time.Duration(0))
}
