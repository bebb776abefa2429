package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"jobpilot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfOnly(name string) bool { return strings.HasSuffix(name, ".pdf") }

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(_ context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, filepath.Base(path))
	return nil
}

func (c *collector) got() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func startWatcher(t *testing.T, dir string, c *collector) {
	t.Helper()
	fw, err := NewFolderWatcher(dir, 50*time.Millisecond, pdfOnly, c.handle, errors.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fw.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)
}

func TestNewFileIsHandledOnce(t *testing.T) {
	dir := t.TempDir()
	c := &collector{}
	startWatcher(t, dir, c)

	path := filepath.Join(dir, "cv.pdf")
	f, err := os.Create(path)
	require.NoError(t, err)
	for range 5 {
		_, err := f.WriteString("%PDF-1.4 chunk\n")
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(c.got()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"cv.pdf"}, c.got())
}

func TestIgnoredFiles(t *testing.T) {
	dir := t.TempDir()
	c := &collector{}
	startWatcher(t, dir, c)

	for _, name := range []string{"notes.txt", ".hidden.pdf", "~$cv.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.pdf"), []byte("x"), 0600))

	require.Eventually(t, func() bool { return len(c.got()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"real.pdf"}, c.got())
}

func TestNewFolderWatcherValidatesDir(t *testing.T) {
	_, err := NewFolderWatcher(filepath.Join(t.TempDir(), "missing"), 0, nil, nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))

	file := filepath.Join(t.TempDir(), "file.pdf")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	_, err = NewFolderWatcher(file, 0, nil, nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestHasFileChanged(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFolderWatcher(dir, 0, nil, nil, nil)
	require.NoError(t, err)

	path := filepath.Join(dir, "cv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0600))
	assert.True(t, fw.hasFileChanged(path))
	assert.False(t, fw.hasFileChanged(path))

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.True(t, fw.hasFileChanged(path))

	assert.False(t, fw.hasFileChanged(filepath.Join(dir, "gone.pdf")))
}
