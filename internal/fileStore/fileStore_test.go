package fileStore_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dedupfs/dedupfs/internal/fileStore"
	"github.com/dedupfs/dedupfs/pkg/types"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newStore(t *testing.T, codec fileStore.Codec) (*fileStore.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := fileStore.NewFileStore(fileStore.StoreConfig{
		Path:   dir,
		Codec:  codec,
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	return store, dir
}

func TestPutGetRoundTripAllCodecs(t *testing.T) {
	for _, codec := range []fileStore.Codec{fileStore.CodecZstd, fileStore.CodecXZ, fileStore.CodecNone} {
		t.Run(string(codec), func(t *testing.T) {
			store, _ := newStore(t, codec)

			data := bytes.Repeat([]byte("compressible content. "), 1000)
			hash, err := store.Put(data)
			require.NoError(t, err)
			assert.Equal(t, types.Sum(data), hash)

			loaded, err := store.Get(hash)
			require.NoError(t, err)
			assert.Equal(t, data, loaded)
		})
	}
}

func TestChunkFileLayout(t *testing.T) {
	store, dir := newStore(t, fileStore.CodecNone)

	hash, err := store.Put([]byte("where does this land"))
	require.NoError(t, err)

	hex := hash.String()
	_, err = os.Stat(filepath.Join(dir, "cas", hex[:2], hex[2:]))
	assert.NoError(t, err, "chunk must live at cas/<hex[:2]>/<hex[2:]>")
}

func TestPutIsIdempotent(t *testing.T) {
	store, _ := newStore(t, fileStore.CodecZstd)

	data := []byte("written exactly once")
	first, err := store.Put(data)
	require.NoError(t, err)

	statsAfterFirst, err := store.Stats()
	require.NoError(t, err)

	second, err := store.Put(data)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	statsAfterSecond, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsAfterFirst.Chunks, statsAfterSecond.Chunks)
	assert.Equal(t, statsAfterFirst.Writes, statsAfterSecond.Writes,
		"second put of identical bytes must not write")
}

func TestGetMissingChunk(t *testing.T) {
	store, _ := newStore(t, fileStore.CodecZstd)

	_, err := store.Get(types.Sum([]byte("never stored")))
	require.Error(t, err)

	var missing *types.MissingChunkError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, types.Sum([]byte("never stored")), missing.Hash)
}

func TestCompressionSavesSpace(t *testing.T) {
	store, _ := newStore(t, fileStore.CodecZstd)

	data := bytes.Repeat([]byte("very repetitive payload. "), 2000)
	_, err := store.Put(data)
	require.NoError(t, err)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Less(t, stats.TotalBytes, uint64(len(data)),
		"repetitive content must shrink on disk")
}

func TestCodecChangeKeepsOldChunksReadable(t *testing.T) {
	dir := t.TempDir()

	zstdStore, err := fileStore.NewFileStore(fileStore.StoreConfig{
		Path: dir, Codec: fileStore.CodecZstd, Logger: quietLogger(),
	})
	require.NoError(t, err)
	hash, err := zstdStore.Put([]byte("written under zstd"))
	require.NoError(t, err)
	require.NoError(t, zstdStore.Close())

	xzStore, err := fileStore.NewFileStore(fileStore.StoreConfig{
		Path: dir, Codec: fileStore.CodecXZ, Logger: quietLogger(),
	})
	require.NoError(t, err)
	defer xzStore.Close()

	loaded, err := xzStore.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte("written under zstd"), loaded)
}

func TestNoTemporaryFilesLeftBehind(t *testing.T) {
	store, dir := newStore(t, fileStore.CodecZstd)

	for i := 0; i < 10; i++ {
		_, err := store.Put([]byte{byte(i), byte(i + 1), byte(i + 2)})
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries, "published chunks must not leave temp files")
}

func TestContains(t *testing.T) {
	store, _ := newStore(t, fileStore.CodecNone)

	hash, err := store.Put([]byte("present"))
	require.NoError(t, err)

	ok, err := store.Contains(hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Contains(types.Sum([]byte("absent")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownCodecRejected(t *testing.T) {
	_, err := fileStore.NewFileStore(fileStore.StoreConfig{
		Path:   t.TempDir(),
		Codec:  fileStore.Codec("lz77"),
		Logger: quietLogger(),
	})
	// The codec is validated lazily on first write; opening succeeds.
	require.NoError(t, err)

	store, _ := newStore(t, fileStore.Codec("lz77"))
	_, putErr := store.Put([]byte("doomed"))
	require.Error(t, putErr)

	var writeErr *types.StoreWriteError
	assert.True(t, errors.As(putErr, &writeErr))
}
