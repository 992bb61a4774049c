package batch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.js")
	aw := NewAtomicWriter(DefaultWriteConfig())

	require.NoError(t, aw.WriteFile(path, "first"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	require.NoError(t, aw.WriteFile(path, "second"))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestWriteFileLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.js")
	aw := NewAtomicWriter(DefaultWriteConfig())
	require.NoError(t, aw.WriteFile(path, "content"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.js", entries[0].Name())
}

func TestWriteFileBackupOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.js")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	cfg := DefaultWriteConfig()
	cfg.BackupOriginal = true
	aw := NewAtomicWriter(cfg)
	require.NoError(t, aw.WriteFile(path, "new"))

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "old", string(backup))
}

func TestConcurrentWritesSamePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.js")
	aw := NewAtomicWriter(DefaultWriteConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, aw.WriteFile(path, "content"))
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))
}

func TestExpandGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.rb"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.rb"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte(""), 0o644))

	files, err := Expand(filepath.Join(dir, "**", "*.rb"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestOutputPathSwapsExtension(t *testing.T) {
	r := &Runner{OutExt: ".js"}
	assert.Equal(t, "src/app.js", r.outputPath("src/app.rb"))

	r.OutExt = ""
	assert.Equal(t, "src/app.js", r.outputPath("src/app.rb"))
}
