package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuildService_Run(t *testing.T) {
	ctx := context.Background()
	t.Run("Should run the command with the release version", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "version.txt")
		svc := NewBuildService(time.Minute, zaptest.NewLogger(t))
		err := svc.Run(ctx, `printf "%s" "$RELEASE_VERSION" > `+out, "v1.2.0")
		require.NoError(t, err)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "v1.2.0", string(data))
	})
	t.Run("Should return stderr of a failing command", func(t *testing.T) {
		svc := NewBuildService(time.Minute, nil)
		err := svc.Run(ctx, "echo broken >&2; exit 3", "v1.2.0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build command failed")
		assert.Contains(t, err.Error(), "broken")
	})
	t.Run("Should time out long commands", func(t *testing.T) {
		svc := NewBuildService(50*time.Millisecond, nil)
		err := svc.Run(ctx, "sleep 5", "v1.2.0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})
	t.Run("Should reject an empty command", func(t *testing.T) {
		svc := NewBuildService(0, nil)
		assert.Error(t, svc.Run(ctx, "  ", "v1.2.0"))
	})
}

func TestTail(t *testing.T) {
	long := strings.Repeat("a", maxOutputTail) + "end"
	assert.Len(t, tail(long), maxOutputTail)
	assert.True(t, strings.HasSuffix(tail(long), "end"))
	assert.Equal(t, "x", tail("  x \n"))
}
