package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	assert.Equal(t, 6, c.Detection.FalsePositiveLookback)
	assert.Equal(t, 3, c.Detection.FalsePositiveAncestors)
	assert.Equal(t, 256, c.Detection.LinkTextLimit)
	assert.Equal(t, 100*time.Millisecond, c.Watcher.Debounce())
	assert.Equal(t, time.Second, c.Watcher.Settle())
	assert.Equal(t, 5*time.Second, c.Watcher.Periodic())
	assert.Equal(t, 15*time.Second, c.Queue.CallTimeout())
}

func TestLoadFromBytes(t *testing.T) {
	yml := []byte(`
detection:
  false_positive_lookback: 10
watcher:
  debounce_ms: 250
queue:
  max_concurrent: 2
`)
	c, err := LoadFromBytes(yml)
	require.NoError(t, err)

	assert.Equal(t, 10, c.Detection.FalsePositiveLookback)
	// unset fields still get defaults
	assert.Equal(t, 3, c.Detection.FalsePositiveAncestors)
	assert.Equal(t, 250*time.Millisecond, c.Watcher.Debounce())
	assert.Equal(t, time.Second, c.Watcher.Settle())
	assert.Equal(t, 2, c.Queue.MaxConcurrent)
}

func TestLoadFromBytesEnvExpansion(t *testing.T) {
	t.Setenv("DOMLENS_CDP", "ws://127.0.0.1:9222/devtools")
	c, err := LoadFromBytes([]byte("browser:\n  cdp_url: ${DOMLENS_CDP}\n"))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools", c.Browser.CDPURL)
}

func TestLoadFromBytesMalformed(t *testing.T) {
	_, err := LoadFromBytes([]byte("detection: [not a map"))
	require.Error(t, err)
}
