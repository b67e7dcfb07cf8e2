package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdown_RunsHooksInReverseOrder(t *testing.T) {
	s := NewShutdown(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var order []string
	hook := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return err
		}
	}

	redisErr := errors.New("already closed")
	s.Register("redis", hook("redis", redisErr))
	s.Register("provider", hook("provider", nil))
	s.Register("flow", hook("flow", nil))
	s.Register("nil", nil)

	err := s.Execute(context.Background())

	assert.Equal(t, []string{"flow", "provider", "redis"}, order)
	assert.ErrorIs(t, err, redisErr)
	assert.Contains(t, err.Error(), "redis")

	assert.NoError(t, s.Execute(context.Background()))
	assert.Len(t, order, 3)
}
