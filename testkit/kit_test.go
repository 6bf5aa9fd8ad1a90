package testkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKit(t *testing.T) {
	kit := NewKit(t)
	require.NotNil(t, kit.Logger)
	require.NotNil(t, kit.Meter)

	counter, err := kit.Meter.Counter("testkit_calls_total", "calls")
	require.NoError(t, err)
	counter.Inc(kit.Ctx)
}

func TestNewContext(t *testing.T) {
	ctx := NewContext(t, time.Minute)
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}

func TestLoadConfig(t *testing.T) {
	loader := LoadConfig(t, "app", "couchbase:\n  bucket: travel\n")
	assert.Equal(t, "travel", loader.Get("couchbase.bucket"))
}
