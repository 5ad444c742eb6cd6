package colstore

import (
	"os"
	"syscall"

	"github.com/arxos/snbgrid/internal/snberr"
)

// perColumnOverhead approximates the fixed bookkeeping cost (descriptor,
// map entries, freshness counter) carried per resident column, used only
// to size the planning budget — not charged against actual allocations.
const perColumnOverhead = 64

// planLayout computes the chunking strategy: estimate how many columns
// can be resident at once, decide between a single in-memory chunk or a
// multi-chunk disk-backed layout, and pre-allocate the shared
// free-vector pool.
func (s *Store) planLayout() error {
	usedColumns := len(s.attrs)
	if usedColumns == 0 {
		s.chunkOfAttr = nil
		s.columnInChunk = nil
		return nil
	}

	perColumnBytes := int64(perColumnOverhead) + 4*int64(s.instances) + s.cfg.ChunkBufferBytes
	if perColumnBytes <= 0 {
		perColumnBytes = 1
	}
	maxMemoryColumns := int(s.cfg.MaxMemoryBytes / perColumnBytes / 2)
	if maxMemoryColumns < 1 {
		maxMemoryColumns = 1
	}

	// Single in-memory chunk: the chunk allocates its column vectors
	// directly in openForWrite and never loads or evicts, so the
	// free-vector pool stays empty rather than double-accounting the
	// whole store's memory.
	if usedColumns <= maxMemoryColumns {
		s.pool = newVectorPool(0, s.instances)
		s.assignColumns(1, usedColumns)
		return nil
	}

	chunkColumns := maxMemoryColumns / 3
	if chunkColumns < 1 {
		chunkColumns = 1
	}
	chunkCount := (usedColumns + chunkColumns - 1) / chunkColumns
	chunkColumns = (usedColumns + chunkCount - 1) / chunkCount // rebalance near-equal
	memoryChunkCount := maxMemoryColumns / chunkColumns
	if memoryChunkCount > chunkCount {
		memoryChunkCount = chunkCount
	}
	if memoryChunkCount < 1 {
		memoryChunkCount = 1
	}

	if err := s.allocatePool(memoryChunkCount, chunkColumns); err != nil {
		return err
	}

	if s.tempDir == "" && chunkCount > 1 {
		// cfg.TempDir selects the parent; "" falls back to the process temp
		// directory. The per-run uuid subdirectory keeps concurrent
		// materializations from colliding on DataChunk<N>.dat names.
		dir, err := os.MkdirTemp(s.cfg.TempDir, "snbgrid-"+s.runID+"-")
		if err != nil {
			return snberr.Wrap(err, snberr.CodeIOError, "failed to create temp directory")
		}
		s.tempDir = dir
	}

	if err := s.checkDiskSpace(usedColumns, chunkCount); err != nil {
		return err
	}

	s.assignColumns(chunkCount, chunkColumns)
	return nil
}

// allocatePool pre-allocates memoryChunkCount·chunkColumns int32 vectors
// sized s.instances. If the full plan cannot be allocated, it shrinks to
// 90% of what succeeded and retries once; if even a single column's
// vector cannot be allocated, it fails with InsufficientMemory.
func (s *Store) allocatePool(memoryChunkCount, chunkColumns int) error {
	want := memoryChunkCount * chunkColumns
	got := s.tryAllocate(want)
	if got < want && got > 0 {
		shrunk := int(float64(got) * 0.9)
		if shrunk < 1 {
			shrunk = 1
		}
		got = s.tryAllocate(shrunk)
	}
	if got == 0 {
		return snberr.New(snberr.CodeInsufficientMemory, "could not allocate a single column vector within the memory budget")
	}
	s.pool = newVectorPool(got, s.instances)
	return nil
}

// tryAllocate attempts to allocate n vectors, returning how many
// succeeded before a recovered out-of-memory panic (if any).
func (s *Store) tryAllocate(n int) (allocated int) {
	defer func() {
		if r := recover(); r != nil {
			// best-effort: whatever we counted before the panic stands.
		}
	}()
	for i := 0; i < n; i++ {
		_ = make([]int32, s.instances)
		allocated++
	}
	return allocated
}

// checkDiskSpace verifies free space ≥ columns·instances·4 bytes +
// chunkCount·bufferSize.
func (s *Store) checkDiskSpace(usedColumns, chunkCount int) error {
	if s.tempDir == "" {
		return nil // single in-memory chunk, nothing touches disk
	}
	required := uint64(usedColumns)*uint64(s.instances)*4 + uint64(chunkCount)*uint64(s.cfg.ChunkBufferBytes)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.tempDir, &stat); err != nil {
		return snberr.Wrap(err, snberr.CodeIOError, "failed to stat temp directory free space")
	}
	available := uint64(stat.Bavail) * uint64(stat.Bsize)
	if available < required {
		return snberr.New(snberr.CodeInsufficientDisk, "insufficient temp-disk free space for column store chunks")
	}
	return nil
}

// assignColumns lays out used attributes into chunkCount chunks of
// chunkColumns width (last chunk may be shorter), row-major within each
// chunk, and allocates the chunk descriptors themselves.
func (s *Store) assignColumns(chunkCount, chunkColumns int) {
	s.chunkOfAttr = make([]int, len(s.attrs))
	s.columnInChunk = make([]int, len(s.attrs))
	s.chunks = make([]*chunk, chunkCount)

	for ci := 0; ci < chunkCount; ci++ {
		lo := ci * chunkColumns
		hi := lo + chunkColumns
		if hi > len(s.attrs) {
			hi = len(s.attrs)
		}
		width := hi - lo
		if width < 0 {
			width = 0
		}
		s.chunks[ci] = newChunk(ci, width, s.instances)
		for col, a := 0, lo; a < hi; col, a = col+1, a+1 {
			s.chunkOfAttr[a] = ci
			s.columnInChunk[a] = col
		}
	}
	if s.metrics != nil {
		s.metrics.ChunksCreated.Add(float64(chunkCount))
	}
}
