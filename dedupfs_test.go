package dedupfs_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dedupfs/dedupfs"
	"github.com/dedupfs/dedupfs/internal/recipeStore"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func randomBytes(seed uint64, n int) []byte {
	out := make([]byte, 0, n+7)
	state := seed
	for len(out) < n {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], z)
		out = append(out, word[:]...)
	}
	return out[:n]
}

func newEngine(t *testing.T, backend string) *dedupfs.DedupFS {
	t.Helper()
	engine, err := dedupfs.New(dedupfs.Config{
		Path:    t.TempDir(),
		Backend: backend,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, backend := range []string{"badger", "file"} {
		t.Run(backend, func(t *testing.T) {
			engine := newEngine(t, backend)

			data := randomBytes(11, 256*1024)
			recipe, err := engine.Write("backup/2026-08-23.img", data)
			require.NoError(t, err)
			assert.Equal(t, uint64(len(data)), recipe.TotalSize)

			loaded, err := engine.Read("backup/2026-08-23.img")
			require.NoError(t, err)
			assert.Equal(t, data, loaded)
		})
	}
}

func TestIngestRestoreWithoutPersistence(t *testing.T) {
	engine := newEngine(t, "file")

	data := randomBytes(12, 64*1024)
	recipe, err := engine.Ingest(data)
	require.NoError(t, err)

	restored, err := engine.Restore(recipe)
	require.NoError(t, err)
	assert.Equal(t, data, restored)

	ids, err := engine.ListRecipes()
	require.NoError(t, err)
	assert.Empty(t, ids, "Ingest must not persist a recipe")
}

func TestDataSurvivesReopen(t *testing.T) {
	for _, backend := range []string{"badger", "file"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			data := randomBytes(13, 128*1024)

			engine, err := dedupfs.New(dedupfs.Config{
				Path: dir, Backend: backend, Logger: quietLogger(),
			})
			require.NoError(t, err)
			_, err = engine.Write("kept", data)
			require.NoError(t, err)
			require.NoError(t, engine.Close())

			reopened, err := dedupfs.New(dedupfs.Config{
				Path: dir, Backend: backend, Logger: quietLogger(),
			})
			require.NoError(t, err)
			defer reopened.Close()

			loaded, err := reopened.Read("kept")
			require.NoError(t, err)
			assert.Equal(t, data, loaded)
		})
	}
}

func TestDuplicateContentIsStoredOnce(t *testing.T) {
	engine := newEngine(t, "file")

	data := randomBytes(14, 100*1024)
	_, err := engine.Write("first copy", data)
	require.NoError(t, err)

	statsAfterFirst, err := engine.Stats()
	require.NoError(t, err)

	_, err = engine.Write("second copy", data)
	require.NoError(t, err)

	statsAfterSecond, err := engine.Stats()
	require.NoError(t, err)
	assert.Equal(t, statsAfterFirst.Chunks, statsAfterSecond.Chunks,
		"the second copy must not add chunks")
	assert.Equal(t, statsAfterFirst.TotalBytes, statsAfterSecond.TotalBytes)
}

func TestRecipeLifecycle(t *testing.T) {
	engine := newEngine(t, "badger")

	recipe, err := engine.Ingest([]byte("lifecycle payload"))
	require.NoError(t, err)

	require.NoError(t, engine.SaveRecipe("a", recipe))
	require.NoError(t, engine.SaveRecipe("b", recipe))

	ids, err := engine.ListRecipes()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	loaded, err := engine.LoadRecipe("a")
	require.NoError(t, err)
	assert.Equal(t, recipe, loaded)

	require.NoError(t, engine.DeleteRecipe("a"))
	_, err = engine.LoadRecipe("a")
	assert.ErrorIs(t, err, recipeStore.ErrNotFound)

	// chunks are untouched by recipe deletion
	ok, err := engine.Contains(recipe.Chunks[0].Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContains(t *testing.T) {
	engine := newEngine(t, "file")

	recipe, err := engine.Ingest(bytes.Repeat([]byte("x"), 1024))
	require.NoError(t, err)
	require.NotEmpty(t, recipe.Chunks)

	ok, err := engine.Contains(recipe.Chunks[0].Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnknownBackendRejected(t *testing.T) {
	_, err := dedupfs.New(dedupfs.Config{
		Path:    t.TempDir(),
		Backend: "redis",
		Logger:  quietLogger(),
	})
	assert.ErrorContains(t, err, "unknown backend")
}
