package mempool

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mel2oo/go-http1/memview"
)

// ErrEmptyPool is returned by Write and ReadFrom when more storage is needed
// but the pool has none left to lend.
var ErrEmptyPool = errors.New("mempool.Buffer: pool is empty")

// Buffer is a variable-sized byte buffer whose storage is drawn from a
// BufferPool. A nil *buffer Release is safe, so messages without a body can
// carry a zero buffer.
type Buffer interface {
	// Bytes returns a MemView of the buffer contents. The view is valid only
	// until the next modification of the buffer.
	Bytes() memview.MemView

	// Len returns the number of bytes held; Len() == Bytes().Len().
	Len() int

	// Reset empties the buffer. An alias for Release.
	Reset()

	// Release empties the buffer and returns its storage to the pool.
	Release()

	// Write appends p to the buffer, obtaining storage from the pool as
	// needed. Returns ErrEmptyPool if the write stopped early.
	io.Writer

	// ReadFrom copies r into the buffer until EOF or error, obtaining storage
	// from the pool as needed. Returns ErrEmptyPool if storage ran out; note
	// this can happen even when all of r was copied, if r's EOF coincides
	// exactly with the end of the allocated storage.
	io.ReaderFrom
}

type buffer struct {
	pool bufferPool

	// Contents occupy chunks[0][0] through chunks[len-1][writeOffset].
	// Every chunk has length pool.chunkBytes.
	chunks [][]byte

	// Offset into the final chunk where the next write lands. Zero when
	// there are no chunks; otherwise in (0, chunkBytes].
	writeOffset int
}

var _ Buffer = (*buffer)(nil)

func (buf *buffer) Bytes() memview.MemView {
	var result memview.MemView
	for idx, chunk := range buf.chunks {
		if idx == len(buf.chunks)-1 {
			result.Append(memview.New(chunk[:buf.writeOffset]))
		} else {
			result.Append(memview.New(chunk))
		}
	}
	return result
}

func (buf *buffer) Len() int {
	if len(buf.chunks) == 0 {
		return 0
	}
	return buf.pool.chunkBytes*(len(buf.chunks)-1) + buf.writeOffset
}

func (buf *buffer) Reset() { buf.Release() }

func (buf *buffer) Release() {
	if buf == nil {
		return
	}
	buf.pool.release(buf.chunks)
	buf.chunks = nil
	buf.writeOffset = 0
}

// available returns the unwritten space at the tail of the final chunk.
func (buf *buffer) available() int {
	if len(buf.chunks) == 0 {
		return 0
	}
	return buf.pool.chunkBytes - buf.writeOffset
}

// addChunk obtains one more chunk from the pool. Reports whether it
// succeeded.
func (buf *buffer) addChunk() bool {
	chunk := buf.pool.getChunk()
	if chunk == nil {
		return false
	}
	buf.chunks = append(buf.chunks, chunk)
	buf.writeOffset = 0
	return true
}

func (buf *buffer) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if buf.available() == 0 {
			if !buf.addChunk() {
				return written, ErrEmptyPool
			}
		}
		tail := buf.chunks[len(buf.chunks)-1]
		n := copy(tail[buf.writeOffset:], p[written:])
		buf.writeOffset += n
		written += n
	}
	return written, nil
}

func (buf *buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		if buf.available() == 0 {
			if !buf.addChunk() {
				return total, ErrEmptyPool
			}
		}

		tail := buf.chunks[len(buf.chunks)-1]
		n, err := r.Read(tail[buf.writeOffset:])
		if n < 0 {
			panic("mempool.Buffer: reader returned negative count from Read")
		}
		buf.writeOffset += n
		total += int64(n)

		if err == io.EOF {
			buf.dropEmptyTail()
			return total, nil
		}
		if err != nil {
			buf.dropEmptyTail()
			return total, err
		}
	}
}

// dropEmptyTail returns a completely unused final chunk to the pool.
func (buf *buffer) dropEmptyTail() {
	n := len(buf.chunks)
	if n == 0 || buf.writeOffset > 0 {
		return
	}
	buf.pool.release([][]byte{buf.chunks[n-1]})
	buf.chunks = buf.chunks[:n-1]
	buf.writeOffset = buf.pool.chunkBytes
	if n == 1 {
		buf.writeOffset = 0
	}
}
