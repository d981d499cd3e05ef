package types_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dedupfs/dedupfs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStringParseRoundTrip(t *testing.T) {
	h := types.Sum([]byte("hello world"))

	s := h.String()
	assert.Len(t, s, 64)

	parsed, err := types.ParseHash(s)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseHashRejectsBadInput(t *testing.T) {
	_, err := types.ParseHash("zz")
	assert.Error(t, err)

	_, err = types.ParseHash("abcd")
	assert.Error(t, err)
}

func TestSumIsContentAddressed(t *testing.T) {
	a := types.Sum([]byte("same bytes"))
	b := types.Sum([]byte("same bytes"))
	c := types.Sum([]byte("other bytes"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRecipeValidate(t *testing.T) {
	good := types.Recipe{
		Chunks: []types.ChunkRef{
			{Hash: types.Sum([]byte("a")), Length: 100},
			{Hash: types.Sum([]byte("b")), Length: 28},
		},
		TotalSize: 128,
	}
	assert.NoError(t, good.Validate())

	bad := good
	bad.TotalSize = 127
	err := bad.Validate()
	require.Error(t, err)

	var corrupt *types.CorruptRecipeError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, -1, corrupt.Position)
	assert.Equal(t, uint64(127), corrupt.Expected)
	assert.Equal(t, uint64(128), corrupt.Actual)
}

func TestRecipeUniqueChunks(t *testing.T) {
	shared := types.Sum([]byte("shared"))
	r := types.Recipe{
		Chunks: []types.ChunkRef{
			{Hash: shared, Length: 6},
			{Hash: types.Sum([]byte("only once")), Length: 9},
			{Hash: shared, Length: 6},
		},
		TotalSize: 21,
	}

	assert.Equal(t, 3, len(r.Chunks))
	assert.Equal(t, 2, r.UniqueChunks())
}

func TestRecipeJSONRoundTrip(t *testing.T) {
	original := types.Recipe{
		Chunks: []types.ChunkRef{
			{Hash: types.Sum([]byte("first")), Length: 4096},
			{Hash: types.Sum([]byte("second")), Length: 52},
		},
		TotalSize: 4148,
	}

	jsonBytes, err := json.Marshal(original)
	require.NoError(t, err)

	// Digests appear as hex, not as base64 byte arrays.
	assert.Contains(t, string(jsonBytes), original.Chunks[0].Hash.String())

	var decoded types.Recipe
	require.NoError(t, json.Unmarshal(jsonBytes, &decoded))
	assert.Equal(t, original, decoded)
}

func TestMissingChunkErrorMessage(t *testing.T) {
	h := types.Sum([]byte("gone"))
	err := &types.MissingChunkError{Hash: h, Position: 3}

	assert.Contains(t, err.Error(), h.String())
	assert.Contains(t, err.Error(), "position 3")
}

func TestStoreWriteErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &types.StoreWriteError{Hash: types.Sum([]byte("x")), Err: cause}

	assert.True(t, errors.Is(err, cause))
}
