package types

import "fmt"

// MissingChunkError reports a chunk digest that is absent from the store.
// During restoration Position is the index of the offending reference in
// the recipe; a store-level lookup sets it to -1. A missing chunk signals
// data loss in the store and is never retried internally.
type MissingChunkError struct {
	Hash     Hash
	Position int
}

func (e *MissingChunkError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("chunk %s not found in store", e.Hash)
	}
	return fmt.Sprintf("chunk %s (recipe position %d) not found in store", e.Hash, e.Position)
}

// CorruptRecipeError reports retrieved bytes that do not match the lengths
// recorded in a recipe. Position is the index of the mismatching reference,
// or -1 when the total size is inconsistent. Distinct from MissingChunkError:
// the data is present but inconsistent.
type CorruptRecipeError struct {
	Position int
	Expected uint64
	Actual   uint64
}

func (e *CorruptRecipeError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("corrupt recipe: total size %d, recorded %d", e.Actual, e.Expected)
	}
	return fmt.Sprintf("corrupt recipe: chunk at position %d has %d bytes, recorded %d", e.Position, e.Actual, e.Expected)
}

// StoreWriteError reports a rejected write of the durable medium during a
// put. Retry policy, if any, belongs to the medium, not to this core.
type StoreWriteError struct {
	Hash Hash
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("storing chunk %s: %v", e.Hash, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}
