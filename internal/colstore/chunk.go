package colstore

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/arxos/snbgrid/internal/snberr"
)

// chunk is one column group: either permanently resident (the single
// in-memory chunk case) or disk-backed with a `DataChunk<N>.dat` file,
// little-endian 4-byte-int records, row-major by (instance,
// column-within-chunk).
type chunk struct {
	id          int
	columnCount int
	instances   int

	diskBacked bool
	path       string

	resident      bool
	loadFreshness int64
	columns       [][]int32 // len columnCount, each len instances; nil when not resident

	writeFile *os.File
	writer    *bufio.Writer
}

func newChunk(id, columnCount, instances int) *chunk {
	return &chunk{id: id, columnCount: columnCount, instances: instances}
}

// openForWrite prepares the chunk for the streaming write pass of
// ComputePreparedData: either a direct in-memory column allocation (sole
// chunk, whole store fits in the budget) or a freshly created chunk file.
func (c *chunk) openForWrite(s *Store) error {
	if c.columnCount == 0 {
		return nil
	}
	if len(s.chunks) == 1 && s.tempDir == "" {
		cols := make([][]int32, c.columnCount)
		for i := range cols {
			cols[i] = make([]int32, c.instances)
		}
		c.columns = cols
		c.resident = true
		c.diskBacked = false
		return nil
	}

	c.diskBacked = true
	c.path = s.chunkFilePath(c.id)
	f, err := os.Create(c.path)
	if err != nil {
		return snberr.Wrap(err, snberr.CodeIOError, "failed to create chunk file "+c.path)
	}
	c.writeFile = f
	bufSize := int(s.cfg.ChunkBufferBytes)
	if bufSize <= 0 {
		bufSize = 4096
	}
	c.writer = bufio.NewWriterSize(f, bufSize)
	return nil
}

// writeValue writes the recoding index for (row, col) of this chunk.
// Callers must present (row, col) pairs in the file's natural row-major
// order for disk-backed chunks — guaranteed by Store.ComputePreparedData's
// instance-then-attribute iteration order.
func (c *chunk) writeValue(col, row int, value int32) error {
	if !c.diskBacked {
		c.columns[col][row] = value
		return nil
	}
	return binary.Write(c.writer, binary.LittleEndian, value)
}

// finishWrite flushes and closes the write handle for a disk-backed
// chunk, leaving it non-resident until first load.
func (c *chunk) finishWrite() error {
	if !c.diskBacked {
		return nil
	}
	if err := c.writer.Flush(); err != nil {
		return snberr.Wrap(err, snberr.CodeIOError, "failed to flush chunk file "+c.path)
	}
	if err := c.writeFile.Close(); err != nil {
		return snberr.Wrap(err, snberr.CodeIOError, "failed to close chunk file "+c.path)
	}
	c.writer = nil
	c.writeFile = nil
	return nil
}

// load reopens the chunk file and reads its sequential 4-byte ints,
// dispatching each to (row, col) = divmod by columnCount.
func (c *chunk) load(cols [][]int32) error {
	f, err := os.Open(c.path)
	if err != nil {
		return snberr.Wrap(err, snberr.CodeIOError, "failed to open chunk file "+c.path)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	total := c.instances * c.columnCount
	for i := 0; i < total; i++ {
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return snberr.Wrap(err, snberr.CodeIOError, "failed to read chunk file "+c.path)
		}
		row := i / c.columnCount
		col := i % c.columnCount
		cols[col][row] = v
	}
	c.columns = cols
	return nil
}

// close closes any open handle and removes the backing file, if any.
func (c *chunk) close() error {
	if c.writeFile != nil {
		_ = c.writer.Flush()
		_ = c.writeFile.Close()
		c.writeFile = nil
		c.writer = nil
	}
	if c.diskBacked && c.path != "" {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			return snberr.Wrap(err, snberr.CodeIOError, "failed to remove chunk file "+c.path)
		}
	}
	return nil
}
