package dictionary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIsIdempotent(t *testing.T) {
	d := New("")
	added, err := d.Add("spelgud")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = d.Add("spelgud")
	require.NoError(t, err)
	assert.False(t, added)

	assert.True(t, d.Contains("spelgud"))
	assert.Equal(t, 1, d.Len())
}

func TestContainsIsCaseSensitive(t *testing.T) {
	d := New("")
	_, err := d.Add("Golang")
	require.NoError(t, err)
	assert.True(t, d.Contains("Golang"))
	assert.False(t, d.Contains("golang"))
}

func TestContainsNormalises(t *testing.T) {
	d := New("")
	// "e" followed by a combining acute accent.
	_, err := d.Add("cafe\u0301")
	require.NoError(t, err)
	assert.True(t, d.Contains("caf\u00e9"))
	added, err := d.Add("caf\u00e9")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestAddRejectsInvalidWords(t *testing.T) {
	d := New("")
	for _, w := range []string{"", "two words", "line\nbreak"} {
		_, err := d.Add(w)
		assert.ErrorIs(t, err, ErrInvalidWord, "word %q", w)
	}
	assert.Equal(t, 0, d.Len())
}

func TestAddAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dictionary.txt")
	d := New(path)
	_, err := d.Add("foo")
	require.NoError(t, err)
	_, err = d.Add("bar")
	require.NoError(t, err)
	_, err = d.Add("foo")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "foo\nbar\n", string(data))
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nalpha\n\n  beta  \nalpha\n"), 0o644))

	d := New(path)
	require.NoError(t, d.Load())
	assert.Equal(t, []string{"alpha", "beta"}, d.Words())

	_, err := d.Add("gamma")
	require.NoError(t, err)

	reloaded := New(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, reloaded.Words())
}

func TestLoadMissingFile(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, d.Load())
	assert.Equal(t, 0, d.Len())
}

func TestPersistRewritesSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.txt")
	require.NoError(t, os.WriteFile(path, []byte("zeta\nalpha\nzeta\n"), 0o644))
	d := New(path)
	require.NoError(t, d.Load())
	require.NoError(t, d.Persist())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha\nzeta\n", string(data))
}

func TestPersistenceFailureKeepsWord(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// The parent of the dictionary path is a regular file, so every write fails.
	d := New(filepath.Join(blocker, "dictionary.txt"))
	added, err := d.Add("word")
	assert.True(t, added)
	assert.True(t, errors.Is(err, ErrPersistence), "got %v", err)
	assert.True(t, d.Contains("word"))
	assert.ErrorIs(t, d.Persist(), ErrPersistence)
}

func TestConcurrentAccess(t *testing.T) {
	d := New("")
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				_, _ = d.Add(string(rune('a'+i)) + string(rune('a'+j%26)))
				_ = d.Contains("aa")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8*26, d.Len())
}

func TestWatchPicksUpExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dictionary.txt")
	d := New(path)
	_, err := d.Add("first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notified := make(chan int, 4)
	require.NoError(t, d.Watch(ctx, func(added int) { notified <- added }))

	require.NoError(t, os.WriteFile(path, []byte("first\nsecond\nthird\n"), 0o644))

	select {
	case n := <-notified:
		assert.Equal(t, 2, n)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the external edit")
	}
	assert.True(t, d.Contains("second"))
	assert.True(t, d.Contains("third"))
}

func TestWatchRequiresPath(t *testing.T) {
	require.Error(t, New("").Watch(context.Background(), nil))
}
