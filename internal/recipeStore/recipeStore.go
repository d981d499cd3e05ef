// Package recipeStore persists recipes under caller-chosen identifiers.
// Each recipe is one deterministic CBOR record on disk, published with a
// temp-file rename so a reader never sees a half-written record. The store
// does not interpret identifiers; naming policy belongs to the caller.
package recipeStore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"

	"github.com/dedupfs/dedupfs/pkg/types"
)

// ErrNotFound is returned when no recipe is stored under the requested
// identifier.
var ErrNotFound = errors.New("recipe not found")

const recipesDir = "recipes"

// encMode is the deterministic encoder: identical recipes always produce
// identical bytes on disk.
var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

type StoreConfig struct {
	Path   string // root directory, records live in <root>/recipes
	Logger *logrus.Logger
}

type RecipeStore struct {
	root string
	log  *logrus.Logger
}

// recipeRecord is the on-disk form of one stored recipe. The identifier is
// kept inside the record because the filename only carries its digest.
type recipeRecord struct {
	ID        string        `cbor:"id"`
	TotalSize uint64        `cbor:"totalSize"`
	Chunks    []chunkRecord `cbor:"chunks"`
}

type chunkRecord struct {
	Hash   []byte `cbor:"hash"`
	Length uint32 `cbor:"length"`
}

func NewRecipeStore(config StoreConfig) (*RecipeStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("no path provided in configuration")
	}

	if err := os.MkdirAll(filepath.Join(config.Path, recipesDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating recipe directory: %w", err)
	}

	return &RecipeStore{
		root: config.Path,
		log:  config.Logger,
	}, nil
}

// recordPath hashes the identifier so arbitrary identifiers (slashes,
// unicode, very long names) map to safe fixed-length filenames.
func (s *RecipeStore) recordPath(id string) string {
	sum := sha256.Sum256([]byte(id))
	return filepath.Join(s.root, recipesDir, hex.EncodeToString(sum[:])+".cbor")
}

// Save stores recipe under id, replacing any previous record with the same
// identifier.
func (s *RecipeStore) Save(id string, recipe types.Recipe) error {
	if err := recipe.Validate(); err != nil {
		return fmt.Errorf("refusing to save recipe %q: %w", id, err)
	}

	record := recipeRecord{
		ID:        id,
		TotalSize: recipe.TotalSize,
		Chunks:    make([]chunkRecord, len(recipe.Chunks)),
	}
	for i, ref := range recipe.Chunks {
		record.Chunks[i] = chunkRecord{
			Hash:   append([]byte(nil), ref.Hash[:]...),
			Length: ref.Length,
		}
	}

	encoded, err := encMode.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding recipe %q: %w", id, err)
	}

	tmpFile, err := os.CreateTemp(filepath.Join(s.root, recipesDir), ".recipe-*")
	if err != nil {
		return fmt.Errorf("saving recipe %q: %w", id, err)
	}
	if _, err := tmpFile.Write(encoded); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return fmt.Errorf("saving recipe %q: %w", id, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("saving recipe %q: %w", id, err)
	}
	if err := os.Rename(tmpFile.Name(), s.recordPath(id)); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("saving recipe %q: %w", id, err)
	}

	s.log.WithFields(logrus.Fields{
		"recipe": id,
		"chunks": len(recipe.Chunks),
		"bytes":  recipe.TotalSize,
	}).Debug("Saved recipe")
	return nil
}

// Load returns the recipe stored under id, or ErrNotFound.
func (s *RecipeStore) Load(id string) (types.Recipe, error) {
	encoded, err := os.ReadFile(s.recordPath(id))
	if os.IsNotExist(err) {
		return types.Recipe{}, fmt.Errorf("loading recipe %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Recipe{}, fmt.Errorf("loading recipe %q: %w", id, err)
	}

	var record recipeRecord
	if err := cbor.Unmarshal(encoded, &record); err != nil {
		return types.Recipe{}, fmt.Errorf("decoding recipe %q: %w", id, err)
	}

	recipe := types.Recipe{
		Chunks:    make([]types.ChunkRef, len(record.Chunks)),
		TotalSize: record.TotalSize,
	}
	for i, chunk := range record.Chunks {
		if len(chunk.Hash) != types.HashSize {
			return types.Recipe{}, fmt.Errorf("decoding recipe %q: chunk %d has a %d byte hash", id, i, len(chunk.Hash))
		}
		copy(recipe.Chunks[i].Hash[:], chunk.Hash)
		recipe.Chunks[i].Length = chunk.Length
	}

	if err := recipe.Validate(); err != nil {
		return types.Recipe{}, fmt.Errorf("loading recipe %q: %w", id, err)
	}
	return recipe, nil
}

// Delete removes the record stored under id. Deleting an absent identifier
// is ErrNotFound.
func (s *RecipeStore) Delete(id string) error {
	err := os.Remove(s.recordPath(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("deleting recipe %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting recipe %q: %w", id, err)
	}
	return nil
}

// List returns the identifiers of all stored recipes, sorted.
func (s *RecipeStore) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, recipesDir))
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cbor" {
			continue
		}
		encoded, err := os.ReadFile(filepath.Join(s.root, recipesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("listing recipes: %w", err)
		}
		var record recipeRecord
		if err := cbor.Unmarshal(encoded, &record); err != nil {
			return nil, fmt.Errorf("listing recipes: decoding %s: %w", entry.Name(), err)
		}
		ids = append(ids, record.ID)
	}

	sort.Strings(ids)
	return ids, nil
}
