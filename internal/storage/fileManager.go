// Package storage orchestrates chunking and chunk storage into whole-file
// ingest and restore operations. It owns recipe construction and
// verification; the durable medium behind it is pluggable.
package storage

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dedupfs/dedupfs/pkg/polyChunker"
	"github.com/dedupfs/dedupfs/pkg/types"
	workerpool "github.com/dedupfs/dedupfs/pkg/workerPool"
)

// ChunkStore is the durable, idempotent, digest-keyed surface the file
// manager stores chunks in. Implementations must tolerate concurrent calls:
// puts of the same digest converge, and a get never observes a partially
// written entry.
type ChunkStore interface {
	Put(data []byte) (types.Hash, error)
	PutChunks(chunks types.ChunkCollection) error
	Get(hash types.Hash) ([]byte, error)
	Contains(hash types.Hash) (bool, error)
	Stats() (types.StoreStats, error)
	Close() error
}

// ingestBatchSize is the number of chunks handed to one worker task during
// ingestion. Batching amortizes the store's existence checks.
const ingestBatchSize = 64

type FileManager struct {
	store ChunkStore
	pool  *workerpool.WorkerPool
	log   *logrus.Logger
}

func NewFileManager(store ChunkStore, log *logrus.Logger) *FileManager {
	if log == nil {
		log = logrus.New()
	}
	return &FileManager{
		store: store,
		pool:  workerpool.NewWorkerPool(workerpool.Config{}),
		log:   log,
	}
}

// Ingest chunks data, stores every chunk, and returns the recipe that
// reconstructs it. Ingesting the same bytes twice produces identical
// recipes and writes nothing new. Empty input yields a recipe with zero
// references and TotalSize 0.
func (fm *FileManager) Ingest(data []byte) (types.Recipe, error) {
	chunks, err := polyChunker.ChunkBytes(data)
	if err != nil {
		return types.Recipe{}, fmt.Errorf("chunking: %w", err)
	}

	if err := fm.storeChunks(chunks); err != nil {
		return types.Recipe{}, err
	}

	recipe := types.Recipe{
		Chunks:    make([]types.ChunkRef, len(chunks)),
		TotalSize: uint64(len(data)),
	}
	for i, chunk := range chunks {
		recipe.Chunks[i] = types.ChunkRef{Hash: chunk.Hash, Length: chunk.DataLength}
	}

	fm.log.WithFields(logrus.Fields{
		"bytes":  recipe.TotalSize,
		"chunks": len(recipe.Chunks),
		"unique": recipe.UniqueChunks(),
	}).Debug("Ingested file")

	return recipe, nil
}

// storeChunks writes the collection through the worker pool. Write order
// does not matter: recipe order is fixed by the chunk sequence, not by
// store completion.
func (fm *FileManager) storeChunks(chunks types.ChunkCollection) error {
	if len(chunks) == 0 {
		return nil
	}

	batches := (len(chunks) + ingestBatchSize - 1) / ingestBatchSize
	room := fm.pool.CreateRoom(batches)

	for start := 0; start < len(chunks); start += ingestBatchSize {
		end := start + ingestBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		room.NewTaskWaitForFreeSlot(func() interface{} {
			return fm.store.PutChunks(batch)
		})
	}

	for _, result := range room.Collect() {
		if err, ok := result.(error); ok && err != nil {
			return fmt.Errorf("storing chunks: %w", err)
		}
	}
	return nil
}

// Restore reassembles the exact bytes described by recipe. It fails with a
// MissingChunkError naming the digest and its recipe position when a chunk
// is absent, and with a CorruptRecipeError when retrieved bytes disagree
// with the recorded lengths. No partial result is ever returned.
func (fm *FileManager) Restore(recipe types.Recipe) ([]byte, error) {
	if err := recipe.Validate(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, recipe.TotalSize)
	for i, ref := range recipe.Chunks {
		data, err := fm.store.Get(ref.Hash)
		if err != nil {
			var missing *types.MissingChunkError
			if errors.As(err, &missing) {
				return nil, &types.MissingChunkError{Hash: ref.Hash, Position: i}
			}
			return nil, fmt.Errorf("restoring chunk %d: %w", i, err)
		}

		if uint32(len(data)) != ref.Length {
			return nil, &types.CorruptRecipeError{
				Position: i,
				Expected: uint64(ref.Length),
				Actual:   uint64(len(data)),
			}
		}
		out = append(out, data...)
	}

	if uint64(len(out)) != recipe.TotalSize {
		return nil, &types.CorruptRecipeError{
			Position: -1,
			Expected: recipe.TotalSize,
			Actual:   uint64(len(out)),
		}
	}
	return out, nil
}

// Contains reports whether the store holds a chunk with the given digest.
func (fm *FileManager) Contains(hash types.Hash) (bool, error) {
	return fm.store.Contains(hash)
}

// StoreStats exposes the underlying store's totals for dedup and space
// savings reporting.
func (fm *FileManager) StoreStats() (types.StoreStats, error) {
	return fm.store.Stats()
}

// Close stops the ingest workers and closes the chunk store.
func (fm *FileManager) Close() error {
	fm.pool.Close()
	return fm.store.Close()
}
