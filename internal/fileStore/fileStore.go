// Package fileStore stores chunks as individual files in a hash-fanned
// directory tree: <root>/cas/<hex[:2]>/<hex[2:]>. Chunk files are written
// to a temporary file and renamed into place, so a reader can never observe
// a partially written chunk. Payloads are compressed at rest (see Codec).
package fileStore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"

	"github.com/dedupfs/dedupfs/pkg/types"
)

const (
	casDir = "cas"
	tmpDir = "tmp"
)

type StoreConfig struct {
	Path          string // root directory of the store
	Codec         Codec  // at-rest compression, CodecZstd when empty
	MinimumFreeGB int    // refuse to open when less space is available
	Logger        *logrus.Logger
}

type FileStore struct {
	config       StoreConfig
	root         string
	codec        Codec
	log          *logrus.Logger
	readCounter  uint64
	writeCounter uint64
}

func NewFileStore(config StoreConfig) (*FileStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Codec == "" {
		config.Codec = CodecZstd
	}
	if config.Path == "" {
		return nil, fmt.Errorf("no path provided in configuration")
	}

	for _, dir := range []string{
		config.Path,
		filepath.Join(config.Path, casDir),
		filepath.Join(config.Path, tmpDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}

	if config.MinimumFreeGB > 0 {
		usage, err := disk.Usage(config.Path)
		if err != nil {
			return nil, fmt.Errorf("cannot determine disk usage: %w", err)
		}
		freeGB := usage.Free / (1024 * 1024 * 1024)
		if freeGB < uint64(config.MinimumFreeGB) {
			return nil, fmt.Errorf("not enough space available on disk: %d GB free, %d GB required", freeGB, config.MinimumFreeGB)
		}
	}

	return &FileStore{
		config: config,
		root:   config.Path,
		codec:  config.Codec,
		log:    config.Logger,
	}, nil
}

func (s *FileStore) chunkPath(hash types.Hash) string {
	hex := hash.String()
	return filepath.Join(s.root, casDir, hex[:2], hex[2:])
}

// Put stores data under its digest and returns the digest. An already
// present digest is a no-op: the key is wholly determined by the value, so
// the existing file is known to hold the same bytes.
func (s *FileStore) Put(data []byte) (types.Hash, error) {
	hash := types.Sum(data)

	if _, err := os.Stat(s.chunkPath(hash)); err == nil {
		return hash, nil
	}

	if err := s.writeChunk(hash, data); err != nil {
		return hash, err
	}
	return hash, nil
}

// PutChunks stores every chunk of the collection that is not yet present.
func (s *FileStore) PutChunks(chunks types.ChunkCollection) error {
	for _, chunk := range chunks {
		if _, err := os.Stat(s.chunkPath(chunk.Hash)); err == nil {
			continue
		}
		if err := s.writeChunk(chunk.Hash, chunk.Data); err != nil {
			return err
		}
	}
	return nil
}

// writeChunk publishes a chunk file atomically: the frame is written to a
// unique temporary file, then renamed onto the content-addressed path.
// Concurrent writers of the same digest race on the rename, but both
// publish identical bytes, so any interleaving converges.
func (s *FileStore) writeChunk(hash types.Hash, data []byte) error {
	atomic.AddUint64(&s.writeCounter, 1)

	frame, err := encodeFrame(s.codec, data)
	if err != nil {
		return &types.StoreWriteError{Hash: hash, Err: err}
	}

	target := s.chunkPath(hash)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &types.StoreWriteError{Hash: hash, Err: err}
	}

	tmpFile, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "chunk-*")
	if err != nil {
		return &types.StoreWriteError{Hash: hash, Err: err}
	}

	if _, err := tmpFile.Write(frame); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return &types.StoreWriteError{Hash: hash, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return &types.StoreWriteError{Hash: hash, Err: err}
	}

	if err := os.Rename(tmpFile.Name(), target); err != nil {
		os.Remove(tmpFile.Name())
		return &types.StoreWriteError{Hash: hash, Err: err}
	}
	return nil
}

// Get returns the raw bytes stored for hash. A digest without a chunk file
// is a MissingChunkError, surfaced unretried: the store has no self-healing
// path.
func (s *FileStore) Get(hash types.Hash) ([]byte, error) {
	atomic.AddUint64(&s.readCounter, 1)

	frame, err := os.ReadFile(s.chunkPath(hash))
	if os.IsNotExist(err) {
		return nil, &types.MissingChunkError{Hash: hash, Position: -1}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading chunk %s: %w", hash, err)
	}

	data, err := decodeFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("error decoding chunk %s: %w", hash, err)
	}
	return data, nil
}

// Contains reports whether hash is present without retrieving its bytes.
func (s *FileStore) Contains(hash types.Hash) (bool, error) {
	atomic.AddUint64(&s.readCounter, 1)

	_, err := os.Stat(s.chunkPath(hash))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking chunk %s: %w", hash, err)
	}
	return true, nil
}

// Stats walks the chunk tree and returns file and byte totals together
// with the operation counters of this store instance. TotalBytes is the
// stored (compressed) size.
func (s *FileStore) Stats() (types.StoreStats, error) {
	stats := types.StoreStats{
		Reads:  atomic.LoadUint64(&s.readCounter),
		Writes: atomic.LoadUint64(&s.writeCounter),
	}

	err := filepath.WalkDir(filepath.Join(s.root, casDir), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Chunks++
		stats.TotalBytes += uint64(info.Size())
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("error walking chunk tree: %w", err)
	}
	return stats, nil
}

func (s *FileStore) Close() error {
	return nil
}
