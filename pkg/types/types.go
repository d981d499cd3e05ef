package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the length of a chunk digest in bytes (SHA-256).
const HashSize = 32

// Hash is the SHA-256 digest of a chunk's raw bytes. It is the chunk's
// identity: two chunks with identical bytes collapse to the same Hash and
// therefore to one stored instance. Digest collision is treated as never
// occurring.
type Hash [HashSize]byte

// Sum returns the digest of data.
func Sum(data []byte) Hash {
	return sha256.Sum256(data)
}

// String returns the fixed-width lowercase hex form of the hash. This is
// the canonical storage-key and log representation.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters, for log output.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:4])
}

// ParseHash parses a 64-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parsing chunk hash: %w", err)
	}
	if len(decoded) != HashSize {
		return h, fmt.Errorf("chunk hash is %d bytes, want %d", len(decoded), HashSize)
	}
	copy(h[:], decoded)
	return h, nil
}

// ChunkData is one chunk emitted by the chunker together with its digest.
type ChunkData struct {
	Hash       Hash   // SHA-256 over Data
	Data       []byte // the raw chunk bytes
	DataLength uint32 // len(Data)
}

// ChunkCollection is an ordered sequence of chunks. Concatenating the Data
// fields in order reproduces the chunked input exactly.
type ChunkCollection []ChunkData

// TotalLength returns the summed length of all chunks.
func (cc ChunkCollection) TotalLength() uint64 {
	var total uint64
	for _, c := range cc {
		total += uint64(c.DataLength)
	}
	return total
}

// ChunkRef references one stored chunk from a recipe.
type ChunkRef struct {
	Hash   Hash
	Length uint32
}

// Recipe is the ordered list of chunk references needed to reconstruct one
// file's exact bytes. It is immutable once produced by ingestion and is the
// sole artifact needed to restore the file.
type Recipe struct {
	Chunks    []ChunkRef
	TotalSize uint64
}

// Validate checks the structural invariant: the recorded chunk lengths must
// sum to TotalSize.
func (r Recipe) Validate() error {
	var total uint64
	for _, ref := range r.Chunks {
		total += uint64(ref.Length)
	}
	if total != r.TotalSize {
		return &CorruptRecipeError{Position: -1, Expected: r.TotalSize, Actual: total}
	}
	return nil
}

// UniqueChunks returns the number of distinct chunk digests referenced by
// the recipe. The difference to len(Chunks) is the dedup win within this
// single file.
func (r Recipe) UniqueChunks() int {
	seen := make(map[Hash]struct{}, len(r.Chunks))
	for _, ref := range r.Chunks {
		seen[ref.Hash] = struct{}{}
	}
	return len(seen)
}

// StoreStats reports operational counters and content totals of a chunk
// store.
type StoreStats struct {
	Chunks     uint64 // number of distinct chunks held
	TotalBytes uint64 // summed stored chunk payload sizes (after any at-rest compression)
	Reads      uint64 // read operations since the store was opened
	Writes     uint64 // write operations since the store was opened
}
