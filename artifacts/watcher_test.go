package artifacts

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"obesitycheck/ml"
	"obesitycheck/ml/mltest"
)

func TestWatcherPicksUpArtifactsThatAppear(t *testing.T) {
	dir := t.TempDir()
	settings := Settings{
		ScalerPath: filepath.Join(dir, mltest.ScalerFile),
		ModelType:  ml.ModelRandomForest,
		ModelPath:  filepath.Join(dir, mltest.ModelFile),
	}

	w, err := NewWatcher(settings, zap.NewNop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	require.ErrorIs(t, w.Current().Ready(), ml.ErrMissingArtifact)

	var notified atomic.Int32
	w.OnReload(func(b *Bundle) {
		if b.Ready() == nil {
			notified.Add(1)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	mltest.WriteArtifacts(t, dir)

	require.Eventually(t, func() bool {
		return w.Current().Ready() == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, w.Reloads(), int64(1))
	assert.GreaterOrEqual(t, notified.Load(), int32(1))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	scalerPath, modelPath := mltest.WriteArtifacts(t, dir)

	w, err := NewWatcher(Settings{ScalerPath: scalerPath, ModelType: ml.ModelRandomForest, ModelPath: modelPath}, zap.NewNop())
	require.NoError(t, err)
	defer w.watcher.Close()

	require.NoError(t, w.Current().Ready())
	assert.False(t, w.relevant(fsnotifyEvent(filepath.Join(dir, "notes.txt"))))
	assert.True(t, w.relevant(fsnotifyEvent(scalerPath)))
}

func fsnotifyEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
