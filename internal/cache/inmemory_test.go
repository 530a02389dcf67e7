package cache

import (
	"context"
	"testing"

	"github.com/facturo/facturo/internal/config"
	"github.com/facturo/facturo/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	c := NewInMemoryCache(cfg, logger.NewNoopLogger())

	key := GenerateKey(PrefixReconciliationState, "tenant_1", "doc_1")
	assert.Equal(t, "reconciliation:v1::tenant_1:doc_1", key)

	c.Set(ctx, key, "summary", 0)
	got, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, "summary", got)

	other := GenerateKey(PrefixReconciliationState, "tenant_1", "doc_2")
	c.Set(ctx, other, "other", 0)
	c.Delete(ctx, key)

	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
	_, ok = c.Get(ctx, other)
	assert.True(t, ok)

	c.Flush(ctx)
	_, ok = c.Get(ctx, other)
	assert.False(t, ok)
}

func TestDisabledCacheMisses(t *testing.T) {
	ctx := context.Background()
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = false
	c := NewInMemoryCache(cfg, logger.NewNoopLogger())

	c.Set(ctx, "k", "v", 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
