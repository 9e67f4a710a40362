package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "users.idx"))
}

func TestFindMissingFile(t *testing.T) {
	ix := newTestIndexer(t)
	_, found, err := ix.Find(1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestAppendAndFind(t *testing.T) {
	ix := newTestIndexer(t)

	require.NoError(t, ix.Append(10, 0))
	require.NoError(t, ix.Append(20, 57))
	require.NoError(t, ix.Append(30, 114))

	offset, found, err := ix.Find(20)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(57), offset)

	_, found, err = ix.Find(25)
	require.NoError(t, err)
	require.False(t, found)
}

func TestAppendKeepsSortOrder(t *testing.T) {
	ix := newTestIndexer(t)

	// Out-of-order inserts must still land in key order on disk.
	for _, e := range []Entry{{Key: 30, Offset: 300}, {Key: 10, Offset: 100}, {Key: 20, Offset: 200}, {Key: 5, Offset: 50}} {
		require.NoError(t, ix.Append(e.Key, e.Offset))
	}

	for _, e := range []Entry{{Key: 5, Offset: 50}, {Key: 10, Offset: 100}, {Key: 20, Offset: 200}, {Key: 30, Offset: 300}} {
		offset, found, err := ix.Find(e.Key)
		require.NoError(t, err)
		require.True(t, found, "key %d", e.Key)
		require.Equal(t, e.Offset, offset, "key %d", e.Key)
	}
}

func TestAppendDuplicateOverwrites(t *testing.T) {
	ix := newTestIndexer(t)

	require.NoError(t, ix.Append(7, 100))
	require.NoError(t, ix.Append(7, 200))

	offset, found, err := ix.Find(7)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(200), offset)

	info, err := os.Stat(ix.path)
	require.NoError(t, err)
	require.Equal(t, int64(entrySize), info.Size(), "duplicate must not grow the file")
}

func TestAppendRejectsOutOfRange(t *testing.T) {
	ix := newTestIndexer(t)
	require.Error(t, ix.Append(-1, 0))
	require.Error(t, ix.Append(1<<33, 0))
}

func TestRebuild(t *testing.T) {
	ix := newTestIndexer(t)
	require.NoError(t, ix.Append(99, 1))

	err := ix.Rebuild([]Entry{
		{Key: 3, Offset: 30},
		{Key: 1, Offset: 10},
		{Key: 2, Offset: 20},
		{Key: -5, Offset: 0}, // out of range, skipped
	})
	require.NoError(t, err)

	// The previous content is gone.
	_, found, err := ix.Find(99)
	require.NoError(t, err)
	require.False(t, found)

	offset, found, err := ix.Find(2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(20), offset)

	info, err := os.Stat(ix.path)
	require.NoError(t, err)
	require.Equal(t, int64(3*entrySize), info.Size())
}

func TestClearTolerant(t *testing.T) {
	ix := newTestIndexer(t)
	require.NoError(t, ix.Clear(), "clearing a missing file is not an error")
	require.NoError(t, ix.Append(1, 0))
	require.NoError(t, ix.Clear())
	_, err := os.Stat(ix.path)
	require.True(t, os.IsNotExist(err))
}

func TestIndexable(t *testing.T) {
	require.True(t, Indexable(0))
	require.True(t, Indexable(1<<32-1))
	require.False(t, Indexable(-1))
	require.False(t, Indexable(1<<32))
}
