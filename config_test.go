package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigMatchesSpecTable(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8000, cfg.MaxRequestHeadSize)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxRequestBodyBufferSize)
	assert.Equal(t, 8000, cfg.MaxRequestTrailersSize)
	assert.Equal(t, 3, cfg.MaxErrorResponses)
	assert.Equal(t, Version{1, 0}, cfg.MinHTTPVersion)
	assert.Equal(t, Version{1, 1}, cfg.MaxHTTPVersion)
	assert.True(t, cfg.DiscardRejectedInformational)
	assert.False(t, cfg.ImmediatelyContinueExpect100)
	assert.Equal(t, 3*time.Second, cfg.TimeoutFileLock)
	assert.Equal(t, 3*time.Minute, cfg.TimeoutIdleConnection)
	assert.True(t, cfg.ImplementMissingOptions)
}

func TestBuilderNeverMutatesReceiver(t *testing.T) {
	base := NewConfigBuilder()
	withBigHead := base.WithMaxRequestHeadSize(99999)

	assert.Equal(t, 8000, base.Build().MaxRequestHeadSize)
	assert.Equal(t, 99999, withBigHead.Build().MaxRequestHeadSize)
}

func TestBuilderChainAccumulates(t *testing.T) {
	cfg := NewConfigBuilder().
		WithMaxErrorResponses(1).
		WithImmediatelyContinueExpect100(true).
		WithTimeoutIdleConnection(90 * time.Second).
		Build()

	assert.Equal(t, 1, cfg.MaxErrorResponses)
	assert.True(t, cfg.ImmediatelyContinueExpect100)
	assert.Equal(t, 90*time.Second, cfg.TimeoutIdleConnection)
}
