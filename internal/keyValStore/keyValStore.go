// Package keyValStore stores chunks in a BadgerDB keyed by their SHA-256
// digest. Writes are idempotent: a digest that is already present is never
// rewritten, which is the deduplication path. Badger transactions make
// writes appear atomic to concurrent readers.
package keyValStore

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/dedupfs/dedupfs/pkg/types"
)

type StoreConfig struct {
	Path          string // directory holding the Badger database
	MinimumFreeGB int    // refuse to open when less space is available
	Logger        *logrus.Logger
}

type KeyValStore struct {
	config       StoreConfig
	badgerDB     *badger.DB
	log          *logrus.Logger
	readCounter  uint64
	writeCounter uint64
}

func NewKeyValStore(config StoreConfig) (*KeyValStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	if err := config.checkConfig(); err != nil {
		return nil, fmt.Errorf("error checking config for KeyValStore: %w", err)
	}

	opts := badger.DefaultOptions(config.Path)
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger database: %w", err)
	}

	k := &KeyValStore{
		config:   config,
		badgerDB: db,
		log:      config.Logger,
	}

	k.logDiskUsage()

	return k, nil
}

// Put stores data under its digest and returns the digest. If the digest is
// already present the call is a no-op; content addressing guarantees the
// stored bytes are identical.
func (k *KeyValStore) Put(data []byte) (types.Hash, error) {
	hash := types.Sum(data)

	exists, err := k.Contains(hash)
	if err != nil {
		return hash, err
	}
	if exists {
		return hash, nil
	}

	atomic.AddUint64(&k.writeCounter, 1)
	err = k.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(hash[:], data)
	})
	if err != nil {
		return hash, &types.StoreWriteError{Hash: hash, Err: err}
	}
	return hash, nil
}

// PutChunks stores every chunk of the collection that is not yet present,
// using a single write batch for the missing ones.
func (k *KeyValStore) PutChunks(chunks types.ChunkCollection) error {
	existing, err := k.batchCheckExistence(chunks)
	if err != nil {
		return err
	}

	wb := k.badgerDB.NewWriteBatch()
	defer wb.Cancel()

	for _, chunk := range chunks {
		if existing[chunk.Hash] {
			continue
		}
		atomic.AddUint64(&k.writeCounter, 1)
		// Copy the hash out of the loop variable: the write batch retains
		// the key slice until Flush, and under go <1.22 loop semantics
		// chunk.Hash[:] aliases storage reused on the next iteration.
		hash := chunk.Hash
		if err := wb.Set(hash[:], chunk.Data); err != nil {
			return &types.StoreWriteError{Hash: chunk.Hash, Err: err}
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("error flushing chunk batch: %w", err)
	}
	return nil
}

// Get returns the stored bytes for hash. A digest absent from the store is
// a MissingChunkError; it signals data loss and is not retried here.
func (k *KeyValStore) Get(hash types.Hash) ([]byte, error) {
	atomic.AddUint64(&k.readCounter, 1)

	var data []byte
	err := k.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(hash[:])
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, &types.MissingChunkError{Hash: hash, Position: -1}
	}
	if err != nil {
		return nil, fmt.Errorf("error reading chunk %s: %w", hash, err)
	}
	return data, nil
}

// Contains reports whether hash is present without retrieving its bytes.
func (k *KeyValStore) Contains(hash types.Hash) (bool, error) {
	atomic.AddUint64(&k.readCounter, 1)

	err := k.badgerDB.View(func(txn *badger.Txn) error {
		_, err := txn.Get(hash[:])
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking chunk %s: %w", hash, err)
	}
	return true, nil
}

func (k *KeyValStore) batchCheckExistence(chunks types.ChunkCollection) (map[types.Hash]bool, error) {
	existing := make(map[types.Hash]bool, len(chunks))

	err := k.badgerDB.View(func(txn *badger.Txn) error {
		for _, chunk := range chunks {
			atomic.AddUint64(&k.readCounter, 1)
			_, err := txn.Get(chunk.Hash[:])
			if err == badger.ErrKeyNotFound {
				existing[chunk.Hash] = false
				continue
			}
			if err != nil {
				return err
			}
			existing[chunk.Hash] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error checking chunk existence: %w", err)
	}
	return existing, nil
}

// Stats walks the key space and returns chunk and byte totals together
// with the operation counters of this store instance.
func (k *KeyValStore) Stats() (types.StoreStats, error) {
	stats := types.StoreStats{
		Reads:  atomic.LoadUint64(&k.readCounter),
		Writes: atomic.LoadUint64(&k.writeCounter),
	}

	err := k.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			stats.Chunks++
			stats.TotalBytes += uint64(it.Item().ValueSize())
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("error walking chunk keys: %w", err)
	}
	return stats, nil
}

func (k *KeyValStore) Close() error {
	return k.badgerDB.Close()
}
