// Package colstore implements the PreparedColumnStore: a columnar,
// chunked-on-disk materialization of per-attribute recoding indices plus
// per-target-value log-probability tables, with memory-budgeted LRU
// chunk eviction and a shared free-vector pool.
//
// The resident/evict-on-pressure shape follows an AdvancedCache/
// ResourcePool style LRU, adapted from an approximate key-value cache to
// an exact, deterministic column residency tracker — the LRU eviction
// sequence here must be reproducible bit-for-bit, which rules out
// ristretto's probabilistic admission used elsewhere in this module for
// non-critical memoization.
package colstore

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/arxos/snbgrid/internal/cancel"
	"github.com/arxos/snbgrid/internal/config"
	"github.com/arxos/snbgrid/internal/logger"
	"github.com/arxos/snbgrid/internal/metrics"
	"github.com/arxos/snbgrid/internal/snberr"
)

// PreparedAttribute is one used attribute's prepared univariate model: its
// part count (recoding index domain) and a precomputed log P(X=v | Y=j)
// table, row-major [partIndex][targetPartIndex]. The j dimension indexes
// the attribute's own univariate partition of the target: one singleton
// part per target value for a classifier, the attribute's target value
// groups for a grouped-target classifier, or its target intervals for a
// regressor.
type PreparedAttribute struct {
	Name               string
	PartCount          int
	ConditionalLnProbs [][]float64

	// TargetValueGroupMatching maps each target value index to this
	// attribute's target group index (the j dimension of
	// ConditionalLnProbs). Nil means singleton groups: value index ==
	// group index.
	TargetValueGroupMatching []int

	// TargetPartFrequencies is the instance count of each univariate
	// target part, in target order. Set for a Continuous (regression)
	// target, where it defines the attribute's target interval bounds as
	// cumulative frequencies over rank-ordered instances.
	TargetPartFrequencies []int64
}

// RecordIterator is the abstract instance-reading interface: one
// recoding index per selected attribute plus one target index, all
// 1-based; the store subtracts 1 to obtain 0-based internal indices.
type RecordIterator interface {
	// Next fills row with the next instance's (attributeCount+1) 1-based
	// indices and returns true, or returns false when exhausted.
	Next(row []int32) (bool, error)
}

// Store is the PreparedColumnStore.
type Store struct {
	cfg     *config.StoreConfig
	metrics *metrics.Store
	token   *cancel.Token

	tempDir   string
	runID     string
	instances int

	sink cancel.ProgressSink

	attrs        []*PreparedAttribute
	order        []int // current external order (by index into attrs), mutated by shuffle
	naturalOrder []int

	chunkOfAttr   []int // attrs index -> chunk index
	columnInChunk []int // attrs index -> column offset within its chunk

	chunks []*chunk
	pool   *vectorPool

	targetIndex []int32 // in-memory, 0-based, len == instances

	fillError bool
	freshness int64
}

// New creates an empty store bound to the given resource budget,
// cancellation token, and metrics sink.
func New(cfg *config.StoreConfig, tok *cancel.Token, m *metrics.Store) *Store {
	if cfg == nil {
		cfg = config.DefaultStoreConfig()
	}
	return &Store{
		cfg:     cfg,
		metrics: m,
		token:   tok,
		sink:    cancel.NoopSink{},
		runID:   uuid.NewString(),
	}
}

// SetProgressSink replaces the store's progress sink (NoopSink by
// default).
func (s *Store) SetProgressSink(sink cancel.ProgressSink) {
	if sink != nil {
		s.sink = sink
	}
}

// SetUsedAttributes registers the prepared attributes to materialize.
// One-shot: must be called before ComputePreparedData.
func (s *Store) SetUsedAttributes(attrs []*PreparedAttribute) error {
	if s.attrs != nil {
		return snberr.InvariantViolation("PreparedColumnStore", 0, "SetUsedAttributes already called")
	}
	s.attrs = attrs
	s.order = make([]int, len(attrs))
	s.naturalOrder = make([]int, len(attrs))
	for i := range attrs {
		s.order[i] = i
		s.naturalOrder[i] = i
	}
	return nil
}

// IsFillError reports whether a latched I/O error has been observed; it
// surfaces as an interrupt equivalent to cancellation.
func (s *Store) IsFillError() bool { return s.fillError }

// InstanceCount returns the number of materialized instances.
func (s *Store) InstanceCount() int { return s.instances }

// UsedAttributeCount returns the number of registered attributes.
func (s *Store) UsedAttributeCount() int { return len(s.attrs) }

// UsedAttribute returns the prepared attribute registered at index i —
// the same index space the Fill/Upgrade methods use.
func (s *Store) UsedAttribute(i int) *PreparedAttribute { return s.attrs[i] }

// AttributeIndexAt returns the attribute index at external order position
// i, reflecting any shuffle currently in effect.
func (s *Store) AttributeIndexAt(i int) int { return s.order[i] }

func (s *Store) nextFreshness() int64 {
	s.freshness++
	return s.freshness
}

// ComputePreparedData opens iter, computes the chunk layout, creates
// chunk files (or a single in-memory chunk if the whole store fits), and
// streams every instance once, writing one 4-byte int per used attribute
// to the chunk owning that column, plus the target index to the in-memory
// target vector.
func (s *Store) ComputePreparedData(iter RecordIterator, instanceCount int) error {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.MaterializeTime.Observe(time.Since(start).Seconds())
		}
	}()

	if s.attrs == nil {
		return snberr.InvariantViolation("PreparedColumnStore", 0, "SetUsedAttributes must be called before ComputePreparedData")
	}
	s.instances = instanceCount
	s.targetIndex = make([]int32, instanceCount)

	if err := s.planLayout(); err != nil {
		return err
	}
	if err := s.createChunkFiles(); err != nil {
		return err
	}
	defer s.closeWriteHandles()

	s.sink.OnMainLabel("materializing prepared data")
	row := make([]int32, len(s.attrs)+1)
	for i := 0; i < instanceCount; i++ {
		if i%4096 == 0 {
			if s.token.IsInterruptionRequested() {
				return snberr.New(snberr.CodeCancelled, "materialization interrupted")
			}
			s.sink.OnProgress(i * 100 / instanceCount)
		}
		ok, err := iter.Next(row)
		if err != nil {
			s.fillError = true
			if s.metrics != nil {
				s.metrics.FillErrors.Inc()
			}
			return snberr.Wrap(err, snberr.CodeIOError, "record iterator failed")
		}
		if !ok {
			return snberr.InvariantViolation("PreparedColumnStore", i, "record iterator exhausted before instanceCount")
		}
		s.targetIndex[i] = row[len(s.attrs)] - 1
		for a := range s.attrs {
			ci := s.chunkOfAttr[a]
			col := s.columnInChunk[a]
			if err := s.chunks[ci].writeValue(col, i, row[a]-1); err != nil {
				s.fillError = true
				if s.metrics != nil {
					s.metrics.FillErrors.Inc()
				}
				return snberr.Wrap(err, snberr.CodeIOError, "chunk write failed")
			}
		}
	}
	s.sink.OnProgress(100)
	return nil
}

// TargetIndexAt returns the 0-based target index of instance i.
func (s *Store) TargetIndexAt(i int) int32 { return s.targetIndex[i] }

// FillRecodingIndexesAt guarantees the chunk containing attr is resident
// and copies its recoding-index column into out.
func (s *Store) FillRecodingIndexesAt(attrIdx int, out []int32) error {
	ci := s.chunkOfAttr[attrIdx]
	col := s.columnInChunk[attrIdx]
	c := s.chunks[ci]
	if err := s.ensureResident(c); err != nil {
		return err
	}
	copy(out, c.columns[col])
	return nil
}

// FillTargetConditionalLnProbsAt fills out[i] = log P(X_attr = recoding[i]
// | Y_j) for every instance i.
func (s *Store) FillTargetConditionalLnProbsAt(attrIdx, j int, out []float64) error {
	ci := s.chunkOfAttr[attrIdx]
	col := s.columnInChunk[attrIdx]
	c := s.chunks[ci]
	if err := s.ensureResident(c); err != nil {
		return err
	}
	table := s.attrs[attrIdx].ConditionalLnProbs
	column := c.columns[col]
	for i := range column {
		out[i] = table[column[i]][j]
	}
	return nil
}

// UpgradeTargetConditionalLnProbsAt accumulates in[i] + w·log P(X_attr =
// recoding[i] | Y_j) into out[i].
func (s *Store) UpgradeTargetConditionalLnProbsAt(attrIdx, j int, w float64, in, out []float64) error {
	ci := s.chunkOfAttr[attrIdx]
	col := s.columnInChunk[attrIdx]
	c := s.chunks[ci]
	if err := s.ensureResident(c); err != nil {
		return err
	}
	table := s.attrs[attrIdx].ConditionalLnProbs
	column := c.columns[col]
	for i := range column {
		out[i] = in[i] + w*table[column[i]][j]
	}
	return nil
}

// ShuffleUsedAttributes permutes the external attribute order, shuffling
// whole chunks first then columns within each chunk, so random-order
// traversals stay cache-coherent without moving any on-disk data.
func (s *Store) ShuffleUsedAttributes(rng *rand.Rand) {
	byChunk := map[int][]int{}
	var chunkOrder []int
	seen := map[int]bool{}
	for _, a := range s.order {
		ci := s.chunkOfAttr[a]
		if !seen[ci] {
			seen[ci] = true
			chunkOrder = append(chunkOrder, ci)
		}
		byChunk[ci] = append(byChunk[ci], a)
	}

	rng.Shuffle(len(chunkOrder), func(i, j int) { chunkOrder[i], chunkOrder[j] = chunkOrder[j], chunkOrder[i] })
	for _, ci := range chunkOrder {
		cols := byChunk[ci]
		rng.Shuffle(len(cols), func(i, j int) { cols[i], cols[j] = cols[j], cols[i] })
	}

	result := make([]int, 0, len(s.order))
	for _, ci := range chunkOrder {
		result = append(result, byChunk[ci]...)
	}
	s.order = result
}

// RestoreUsedAttributes resets the external attribute order to the order
// SetUsedAttributes was called with.
func (s *Store) RestoreUsedAttributes() {
	copy(s.order, s.naturalOrder)
}

// Close removes every chunk file and the run's temp directory, returning
// the first error met; a failure to remove the temp directory is also
// logged as a warning.
func (s *Store) Close() error {
	var firstErr error
	for _, c := range s.chunks {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.tempDir != "" {
		if err := os.RemoveAll(s.tempDir); err != nil {
			logger.Warn("colstore: failed to clean temp dir %s: %v", s.tempDir, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Store) chunkFilePath(n int) string {
	return filepath.Join(s.tempDir, "DataChunk"+strconv.Itoa(n)+".dat")
}
