package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mos9527/librespot-dl/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackID(t *testing.T, hex string) downloader.TrackID {
	t.Helper()
	id, err := downloader.TrackIDFromHex(hex)
	require.NoError(t, err)
	return id
}

func openArchive(t *testing.T, path string) *Archive {
	t.Helper()
	a, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_RecordAndHas(t *testing.T) {
	ctx := context.Background()
	a := openArchive(t, filepath.Join(t.TempDir(), "archive.db"))
	id := trackID(t, "0000000000000000000000000000003e")

	has, err := a.Has(ctx, id)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, a.Record(ctx, id, "Artist - Song.ogg"))
	has, err = a.Has(ctx, id)
	require.NoError(t, err)
	assert.True(t, has)

	// Recording again replaces the path
	require.NoError(t, a.Record(ctx, id, "moved/Artist - Song.ogg"))
	entries, err := a.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id.Base62(), entries[0].TrackID)
	assert.Equal(t, "moved/Artist - Song.ogg", entries[0].Path)
}

func TestArchive_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "archive.db")
	id := trackID(t, "00000000000000000000000000000001")

	first, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, id, "a.mp3"))
	require.NoError(t, first.Close())

	second := openArchive(t, path)
	has, err := second.Has(ctx, id)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestArchive_ConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	a := openArchive(t, filepath.Join(t.TempDir(), "archive.db"))

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id, _ := downloader.TrackIDFromHex(fmtGID(n))
			assert.NoError(t, a.Record(ctx, id, "track"))
		}(i)
	}
	wg.Wait()

	entries, err := a.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 16)
}

func fmtGID(n int) string {
	return fmt.Sprintf("%032x", n)
}
