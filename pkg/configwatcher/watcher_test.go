package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"testhub_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
database:
  driver: sqlite
jwt:
  secret: dev-secret
engine:
  max_write_retries: %d
`

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf(baseConfig, 3)), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, file, func(cfg *config.Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// 等待 watcher 就绪
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf(baseConfig, 5)), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 5, cfg.Engine.MaxWriteRetries)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	assert.NoError(t, <-done)
}
