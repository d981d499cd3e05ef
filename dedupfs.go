// Package dedupfs is a deduplicating storage engine. Files are split into
// content-defined chunks, chunks are stored once under their SHA-256 digest,
// and every file is represented by a recipe listing the chunks that rebuild
// it. Identical content, whether within one file or across files, is stored
// a single time.
package dedupfs

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dedupfs/dedupfs/internal/config"
	"github.com/dedupfs/dedupfs/internal/fileStore"
	"github.com/dedupfs/dedupfs/internal/keyValStore"
	"github.com/dedupfs/dedupfs/internal/recipeStore"
	"github.com/dedupfs/dedupfs/internal/storage"
	"github.com/dedupfs/dedupfs/pkg/types"
)

type Config struct {
	Path          string         // storage root directory
	Backend       string         // "badger" (default) or "file"
	Compression   string         // file backend only: "zstd" (default), "xz" or "none"
	MinimumFreeGB int            // refuse to open below this much free disk space
	Logger        *logrus.Logger // defaults to a fresh logrus logger
}

type DedupFS struct {
	fm      *storage.FileManager
	recipes *recipeStore.RecipeStore
	config  Config
	log     *logrus.Logger
}

func New(conf Config) (*DedupFS, error) {
	if conf.Logger == nil {
		conf.Logger = logrus.New()
	}
	if conf.Backend == "" {
		conf.Backend = "badger"
	}

	var store storage.ChunkStore
	var err error
	switch conf.Backend {
	case "badger":
		store, err = keyValStore.NewKeyValStore(keyValStore.StoreConfig{
			Path:          conf.Path,
			MinimumFreeGB: conf.MinimumFreeGB,
			Logger:        conf.Logger,
		})
	case "file":
		store, err = fileStore.NewFileStore(fileStore.StoreConfig{
			Path:          conf.Path,
			Codec:         fileStore.Codec(conf.Compression),
			MinimumFreeGB: conf.MinimumFreeGB,
			Logger:        conf.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q, want badger or file", conf.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating chunk store: %w", err)
	}

	recipes, err := recipeStore.NewRecipeStore(recipeStore.StoreConfig{
		Path:   conf.Path,
		Logger: conf.Logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("error creating recipe store: %w", err)
	}

	return &DedupFS{
		fm:      storage.NewFileManager(store, conf.Logger),
		recipes: recipes,
		config:  conf,
		log:     conf.Logger,
	}, nil
}

// NewFromConfigFile opens an engine configured by a YAML file.
func NewFromConfigFile(path string) (*DedupFS, error) {
	fileConf, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(Config{
		Path:          fileConf.Path,
		Backend:       fileConf.Backend,
		Compression:   fileConf.Compression,
		MinimumFreeGB: fileConf.MinimumFreeGB,
	})
}

// Ingest stores data as deduplicated chunks and returns the recipe that
// reconstructs it. The recipe is not persisted; use SaveRecipe or Write for
// that.
func (d *DedupFS) Ingest(data []byte) (types.Recipe, error) {
	return d.fm.Ingest(data)
}

// Restore reassembles the exact bytes described by recipe.
func (d *DedupFS) Restore(recipe types.Recipe) ([]byte, error) {
	return d.fm.Restore(recipe)
}

// Contains reports whether a chunk with the given digest is stored.
func (d *DedupFS) Contains(hash types.Hash) (bool, error) {
	return d.fm.Contains(hash)
}

// Write ingests data and persists the resulting recipe under id in one
// step.
func (d *DedupFS) Write(id string, data []byte) (types.Recipe, error) {
	recipe, err := d.fm.Ingest(data)
	if err != nil {
		return types.Recipe{}, err
	}
	if err := d.recipes.Save(id, recipe); err != nil {
		return types.Recipe{}, err
	}
	return recipe, nil
}

// Read restores the bytes of the recipe persisted under id.
func (d *DedupFS) Read(id string) ([]byte, error) {
	recipe, err := d.recipes.Load(id)
	if err != nil {
		return nil, err
	}
	return d.fm.Restore(recipe)
}

// SaveRecipe persists recipe under id, replacing any previous recipe with
// that identifier.
func (d *DedupFS) SaveRecipe(id string, recipe types.Recipe) error {
	return d.recipes.Save(id, recipe)
}

// LoadRecipe returns the recipe persisted under id.
func (d *DedupFS) LoadRecipe(id string) (types.Recipe, error) {
	return d.recipes.Load(id)
}

// DeleteRecipe removes the recipe persisted under id. Chunks stay in the
// store; the engine has no garbage collection.
func (d *DedupFS) DeleteRecipe(id string) error {
	return d.recipes.Delete(id)
}

// ListRecipes returns the identifiers of all persisted recipes, sorted.
func (d *DedupFS) ListRecipes() ([]string, error) {
	return d.recipes.List()
}

// Stats reports chunk store totals and operation counters.
func (d *DedupFS) Stats() (types.StoreStats, error) {
	return d.fm.StoreStats()
}

func (d *DedupFS) Close() error {
	return d.fm.Close()
}
