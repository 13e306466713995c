package ideabase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autom8ter/ideabase"
)

func TestLogger(t *testing.T) {
	ctx := ideabase.WithRequestID(context.Background(), "req-1")
	t.Run("debug", func(t *testing.T) {
		logger, err := ideabase.NewLogger("debug", map[string]any{})
		assert.Nil(t, err)
		assert.NotNil(t, logger)
		logger.Debug(ctx, "debug logger", nil)
	})
	t.Run("info", func(t *testing.T) {
		logger, err := ideabase.NewLogger("info", map[string]any{"service": "ideabase"})
		assert.Nil(t, err)
		assert.NotNil(t, logger)
		logger.Info(ctx, "info logger", map[string]any{"collection": "ideas"})
	})
	t.Run("warn", func(t *testing.T) {
		logger, err := ideabase.NewLogger("warning", map[string]any{})
		assert.Nil(t, err)
		assert.NotNil(t, logger)
		logger.Warn(ctx, "warn logger", nil)
	})
	t.Run("error", func(t *testing.T) {
		logger, err := ideabase.NewLogger("error", map[string]any{})
		assert.Nil(t, err)
		assert.NotNil(t, logger)
		logger.Error(ctx, "error logger", fmt.Errorf("this is an error"), nil)
	})
	t.Run("nop", func(t *testing.T) {
		ideabase.NopLogger().Info(ctx, "dropped", nil)
	})
	t.Run("request id", func(t *testing.T) {
		assert.Equal(t, "req-1", ideabase.RequestID(ctx))
		assert.Equal(t, "", ideabase.RequestID(context.Background()))
	})
}
