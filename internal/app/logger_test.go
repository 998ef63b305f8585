package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		t.Run(env, func(t *testing.T) {
			logger, err := NewLogger(env)
			require.NoError(t, err)
			require.NotNil(t, logger)

			assert.Equal(t, env == "development", logger.Core().Enabled(zap.DebugLevel))
		})
	}
}
