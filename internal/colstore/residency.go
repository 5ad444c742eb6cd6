package colstore

import "github.com/arxos/snbgrid/internal/snberr"

// createChunkFiles opens every chunk for the streaming write pass.
func (s *Store) createChunkFiles() error {
	for _, c := range s.chunks {
		if err := c.openForWrite(s); err != nil {
			return err
		}
	}
	return nil
}

// closeWriteHandles flushes and closes every disk-backed chunk's write
// handle once materialization has finished streaming.
func (s *Store) closeWriteHandles() error {
	for _, c := range s.chunks {
		if err := c.finishWrite(); err != nil {
			return err
		}
	}
	return nil
}

// ensureResident guarantees c is loaded into memory, evicting the
// least-recently-used disk-backed chunk if the free-vector pool is
// exhausted.
func (s *Store) ensureResident(c *chunk) error {
	if s.metrics != nil {
		s.metrics.ChunkLoads.Inc()
	}
	if c.resident {
		c.loadFreshness = s.nextFreshness()
		return nil
	}

	cols, ok := s.pool.acquire(c.columnCount)
	for !ok {
		victim := s.pickEvictionVictim(c)
		if victim == nil {
			return snberr.New(snberr.CodeInsufficientMemory, "no resident chunk available to evict for load")
		}
		s.unload(victim)
		cols, ok = s.pool.acquire(c.columnCount)
	}

	if err := c.load(cols); err != nil {
		s.pool.release(cols)
		s.fillError = true
		if s.metrics != nil {
			s.metrics.FillErrors.Inc()
		}
		return err
	}
	c.resident = true
	c.loadFreshness = s.nextFreshness()
	if s.metrics != nil {
		s.metrics.ResidentChunks.Inc()
	}
	return nil
}

// pickEvictionVictim returns the resident, disk-backed chunk (other than
// exclude) with the smallest loadFreshness, or nil if none is evictable.
func (s *Store) pickEvictionVictim(exclude *chunk) *chunk {
	var victim *chunk
	for _, c := range s.chunks {
		if c == exclude || !c.resident || !c.diskBacked {
			continue
		}
		if victim == nil || c.loadFreshness < victim.loadFreshness {
			victim = c
		}
	}
	return victim
}

func (s *Store) unload(c *chunk) {
	cols := c.columns
	c.columns = nil
	c.resident = false
	s.pool.release(cols)
	if s.metrics != nil {
		s.metrics.ChunkEvictions.Inc()
		s.metrics.ResidentChunks.Dec()
	}
}
