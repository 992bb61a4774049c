package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/srcjs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"), false)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenSkipReturnsNilStore(t *testing.T) {
	store, err := Open("skip", false)
	require.NoError(t, err)
	assert.Nil(t, store)

	// Every method on a nil Store is a no-op.
	_, ok := store.Get("digest")
	assert.False(t, ok)
	assert.NoError(t, store.Put("digest", "f.rb", srcjs.DefaultOptions(), &srcjs.Result{}))
	assert.NoError(t, store.Close())
}

func TestDigestVariesWithSourceAndOptions(t *testing.T) {
	opts := srcjs.DefaultOptions()
	a := Digest("x = 1", opts)
	b := Digest("x = 2", opts)
	assert.NotEqual(t, a, b)

	opts.ESLevel = 2015
	c := Digest("x = 1", opts)
	assert.NotEqual(t, a, c)

	assert.Equal(t, a, Digest("x = 1", srcjs.DefaultOptions()))
}

func TestPutAndGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	opts := srcjs.DefaultOptions()
	digest := Digest("x = 1", opts)

	_, ok := store.Get(digest)
	assert.False(t, ok)

	require.NoError(t, store.Put(digest, "f.rb", opts, &srcjs.Result{Text: "let x = 1;"}))

	cached, ok := store.Get(digest)
	require.True(t, ok)
	assert.Equal(t, "let x = 1;", cached.Text)
}

func TestPutDuplicateDigestIsIgnored(t *testing.T) {
	store := openTestStore(t)
	opts := srcjs.DefaultOptions()
	digest := Digest("x = 1", opts)

	require.NoError(t, store.Put(digest, "f.rb", opts, &srcjs.Result{Text: "first"}))
	assert.NoError(t, store.Put(digest, "f.rb", opts, &srcjs.Result{Text: "second"}))

	cached, ok := store.Get(digest)
	require.True(t, ok)
	assert.Equal(t, "first", cached.Text)
}

func TestGetBumpsHitCount(t *testing.T) {
	store := openTestStore(t)
	opts := srcjs.DefaultOptions()
	digest := Digest("x = 1", opts)
	require.NoError(t, store.Put(digest, "f.rb", opts, &srcjs.Result{Text: "t"}))

	_, ok := store.Get(digest)
	require.True(t, ok)

	var row Conversion
	require.NoError(t, store.db.Where("digest = ?", digest).First(&row).Error)
	assert.Equal(t, 1, row.HitCount)
	assert.NotNil(t, row.LastHitAt)
}

func TestPruneDropsOnlyColdEntries(t *testing.T) {
	store := openTestStore(t)
	opts := srcjs.DefaultOptions()

	cold := Digest("cold", opts)
	warm := Digest("warm", opts)
	require.NoError(t, store.Put(cold, "cold.rb", opts, &srcjs.Result{Text: "c"}))
	require.NoError(t, store.Put(warm, "warm.rb", opts, &srcjs.Result{Text: "w"}))
	_, ok := store.Get(warm)
	require.True(t, ok)

	// Age both rows past the cutoff.
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.db.Model(&Conversion{}).Where("1 = 1").Update("created_at", old).Error)

	dropped, err := store.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dropped)

	_, ok = store.Get(cold)
	assert.False(t, ok)
	_, ok = store.Get(warm)
	assert.True(t, ok)
}
