package mempool

import (
	"github.com/pkg/errors"
)

// BufferPool is a factory of variable-sized buffers whose backing storage is
// drawn from a fixed-size pool of chunks. Message receivers use it to
// accumulate body bytes, so the memory held by in-flight messages is bounded
// by the pool size rather than by whatever a peer chooses to send. Clients
// must return backing storage by calling Release on each buffer.
type BufferPool interface {
	// NewBuffer returns a new empty buffer.
	NewBuffer() Buffer
}

// MakeBufferPool creates a pool holding up to maxPoolBytes of storage,
// handed out in chunks of chunkBytes.
func MakeBufferPool(maxPoolBytes, chunkBytes int64) (BufferPool, error) {
	if chunkBytes < 1 {
		return nil, errors.Errorf("invalid chunk size %d", chunkBytes)
	}
	if maxPoolBytes < chunkBytes {
		return nil, errors.Errorf("pool size %d smaller than chunk size %d", maxPoolBytes, chunkBytes)
	}

	numChunks := maxPoolBytes / chunkBytes
	chunks := make(chan []byte, numChunks)
	for i := int64(0); i < numChunks; i++ {
		chunks <- make([]byte, chunkBytes)
	}

	return bufferPool{
		chunks:     chunks,
		chunkBytes: int(chunkBytes),
	}, nil
}

type bufferPool struct {
	// All chunks currently available for lending.
	chunks chan []byte

	// Size of each chunk in bytes.
	chunkBytes int
}

var _ BufferPool = (*bufferPool)(nil)

func (pool bufferPool) NewBuffer() Buffer {
	return &buffer{pool: pool}
}

// getChunk obtains a zeroed chunk from the pool, or nil if the pool is empty.
func (pool bufferPool) getChunk() []byte {
	select {
	case chunk := <-pool.chunks:
		for i := range chunk {
			chunk[i] = 0
		}
		return chunk
	default:
		return nil
	}
}

// release returns chunks to the pool without blocking.
func (pool bufferPool) release(chunks [][]byte) {
	for _, chunk := range chunks {
		select {
		case pool.chunks <- chunk:
		default:
			return
		}
	}
}
