package colstore

// vectorPool is the shared free-vector pool: a fixed set of int32 column
// vectors, sized to the instance count, handed out to resident chunks and
// returned on eviction.
type vectorPool struct {
	free      [][]int32
	instances int
}

func newVectorPool(n, instances int) *vectorPool {
	free := make([][]int32, n)
	for i := range free {
		free[i] = make([]int32, instances)
	}
	return &vectorPool{free: free, instances: instances}
}

// acquire takes n vectors from the pool, or reports false if fewer than n
// are currently free.
func (p *vectorPool) acquire(n int) ([][]int32, bool) {
	if len(p.free) < n {
		return nil, false
	}
	taken := append([][]int32(nil), p.free[len(p.free)-n:]...)
	p.free = p.free[:len(p.free)-n]
	return taken, true
}

// release returns vectors to the pool for reuse, clearing their contents
// so a stale column's values never leak into a newly loaded chunk.
func (p *vectorPool) release(vecs [][]int32) {
	for _, v := range vecs {
		for i := range v {
			v[i] = 0
		}
	}
	p.free = append(p.free, vecs...)
}

// available reports the number of currently free vectors.
func (p *vectorPool) available() int { return len(p.free) }
