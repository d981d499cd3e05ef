// Package polyChunker splits byte streams into content-defined chunks using
// a polynomial rolling hash over a sliding 48-byte window. Boundaries depend
// only on the bytes inside the window, so a small edit perturbs only nearby
// chunks and the boundary sequence re-synchronizes within one window width.
// Identical input always produces identical boundaries, independent of
// process or prior state; this is what makes digest-based deduplication
// meaningful across independent ingestions.
package polyChunker

import (
	"bufio"
	"bytes"
	"io"
	"runtime"
	"sync"

	"github.com/dedupfs/dedupfs/pkg/types"
)

const (
	// WindowSize is the width of the rolling-hash window in bytes.
	WindowSize = 48

	// MinChunkSize is the minimum chunk length. The cut condition is not
	// evaluated before the current chunk holds this many bytes, so an
	// input shorter than MinChunkSize always yields exactly one chunk.
	MinChunkSize = 48

	// hashModulus keeps the accumulator in a fixed prime field.
	hashModulus uint64 = 1_000_000_007

	// hashBase shifts the accumulator by one byte position per input byte.
	hashBase uint64 = 256

	// boundaryMask selects the low 12 bits of the hash. A cut happens when
	// they are all zero, a 1/4096 chance per eligible byte, which yields
	// an average chunk size near 4 KiB.
	boundaryMask uint64 = 0xFFF
)

// No maximum chunk size is enforced: a pathological input can in principle
// run arbitrarily long before the next cut. Forcing a cut at some limit
// would change chunk digests for affected inputs, so the gap is accepted.

// ChunkBytes splits data into chunks and computes their SHA-256 digests
// concurrently. The returned collection covers data exactly and in order;
// empty input yields an empty collection.
func ChunkBytes(data []byte) (types.ChunkCollection, error) {
	return ChunkReader(bytes.NewReader(data))
}

// ChunkReader streams reader through the chunker. Boundary detection is
// sequential (it must be, for determinism); digest computation fans out to
// a bounded set of workers and results are reassembled in input order.
func ChunkReader(reader io.Reader) (types.ChunkCollection, error) {
	numberOfWorkers := runtime.NumCPU()

	hashChan := make(chan chunkInformation, numberOfWorkers+1)
	workerLimit := make(chan struct{}, numberOfWorkers)
	var wg sync.WaitGroup
	var collectorWg sync.WaitGroup

	resultChan := make(chan types.ChunkCollection, 1)
	collectorWg.Add(1)
	go collectChunkData(&collectorWg, hashChan, resultChan)

	br := bufio.NewReader(reader)
	rh := newRollingHash()
	var scanErr error

	for chunkIndex := 0; ; chunkIndex++ {
		chunk, err := rh.nextChunk(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			scanErr = err
			break
		}

		wg.Add(1)
		workerLimit <- struct{}{}
		go hashChunk(&wg, hashChan, chunk, chunkIndex, workerLimit)
	}

	wg.Wait()
	close(hashChan)
	collectorWg.Wait()

	if scanErr != nil {
		return nil, scanErr
	}
	return <-resultChan, nil
}

// ChunkReaderSynchronously is the sequential variant of ChunkReader, used
// where predictable single-threaded behavior matters more than throughput.
func ChunkReaderSynchronously(reader io.Reader) (types.ChunkCollection, error) {
	chunks := types.ChunkCollection{}

	br := bufio.NewReader(reader)
	rh := newRollingHash()
	for {
		chunk, err := rh.nextChunk(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		chunks = append(chunks, types.ChunkData{
			Hash:       types.Sum(chunk),
			Data:       chunk,
			DataLength: uint32(len(chunk)),
		})
	}

	return chunks, nil
}

// ChunkBytesSynchronously is the sequential variant of ChunkBytes.
func ChunkBytesSynchronously(data []byte) (types.ChunkCollection, error) {
	return ChunkReaderSynchronously(bytes.NewReader(data))
}

// rollingHash holds the transient chunking state of one ingestion call:
// the polynomial hash of the last WindowSize bytes and the ring buffer
// backing it. The window keeps sliding across cut points, which keeps
// boundaries purely content-local. Never persisted.
type rollingHash struct {
	window [WindowSize]byte
	filled int
	oldest int
	hash   uint64
	// leadingPower is hashBase^(WindowSize-1) mod hashModulus, the weight
	// of the window's oldest byte in the polynomial.
	leadingPower uint64
}

func newRollingHash() *rollingHash {
	rh := &rollingHash{leadingPower: 1}
	for i := 0; i < WindowSize-1; i++ {
		rh.leadingPower = rh.leadingPower * hashBase % hashModulus
	}
	return rh
}

// feed slides the window right by one byte and updates the hash in O(1):
// the oldest byte's leading term is removed, the remainder is shifted by
// one position and the new byte appended, all mod hashModulus.
func (rh *rollingHash) feed(b byte) {
	if rh.filled < WindowSize {
		rh.window[rh.filled] = b
		rh.filled++
		rh.hash = (rh.hash*hashBase + uint64(b)) % hashModulus
		return
	}

	out := uint64(rh.window[rh.oldest])
	rh.window[rh.oldest] = b
	rh.oldest = (rh.oldest + 1) % WindowSize

	withoutLeading := (rh.hash + hashModulus - out*rh.leadingPower%hashModulus) % hashModulus
	rh.hash = (withoutLeading*hashBase + uint64(b)) % hashModulus
}

// boundary reports whether the current window position is a cut point.
func (rh *rollingHash) boundary() bool {
	return rh.filled == WindowSize && rh.hash&boundaryMask == 0
}

// nextChunk reads bytes until the cut condition fires or input ends. The
// cut is evaluated only once the current chunk holds MinChunkSize bytes;
// the byte that satisfies it is the last byte of the chunk. A non-empty
// trailing buffer is flushed as a final chunk. Returns io.EOF once the
// input is exhausted and nothing remains to flush.
func (rh *rollingHash) nextChunk(br *bufio.Reader) ([]byte, error) {
	buf := make([]byte, 0, 4096)

	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			if len(buf) == 0 {
				return nil, io.EOF
			}
			return buf, nil
		}
		if err != nil {
			return nil, err
		}

		buf = append(buf, b)
		rh.feed(b)

		if len(buf) >= MinChunkSize && rh.boundary() {
			return buf, nil
		}
	}
}

type chunkInformation struct {
	chunkNumber int
	hash        types.Hash
	data        []byte
}

func hashChunk(wg *sync.WaitGroup, hashChan chan<- chunkInformation, chunk []byte, chunkIndex int, workerLimit chan struct{}) {
	defer wg.Done()
	defer func() { <-workerLimit }()

	hashChan <- chunkInformation{
		chunkNumber: chunkIndex,
		hash:        types.Sum(chunk),
		data:        chunk,
	}
}

func collectChunkData(collectorWg *sync.WaitGroup, hashChan <-chan chunkInformation, resultChan chan<- types.ChunkCollection) {
	defer collectorWg.Done()

	chunkMap := map[int]types.ChunkData{}

	for info := range hashChan {
		chunkMap[info.chunkNumber] = types.ChunkData{
			Hash:       info.hash,
			Data:       info.data,
			DataLength: uint32(len(info.data)),
		}
	}

	result := make(types.ChunkCollection, len(chunkMap))
	for i := 0; i < len(chunkMap); i++ {
		result[i] = chunkMap[i]
	}

	resultChan <- result
}
