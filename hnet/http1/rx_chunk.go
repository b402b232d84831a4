package http1

import (
	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/memview"
)

// chunkReceiver assembles a chunked body: a sequence of size-prefixed
// chunks terminated by a zero-size chunk with optional trailers. Chunk data
// is handed out as views of the fed input; the data of one chunk is
// delivered in a single event once its trailing CRLF has been seen.
type chunkReceiver struct {
	limits   *Limits
	header   chunkHeader
	trailers headersParser

	phase        chunkPhase
	remaining    int64 // data bytes still expected for the current chunk
	data         memview.MemView
	trailerblock *hnet.Headers
}

type chunkPhase int

const (
	ckHeader chunkPhase = iota
	ckData
	ckDataCR
	ckDataLF
	ckTrailers
	ckDone
)

func newChunkReceiver(limits *Limits) chunkReceiver {
	return chunkReceiver{
		limits:   limits,
		header:   newChunkHeader(limits),
		trailers: newHeadersParser(limits),
	}
}

func (c *chunkReceiver) clear() {
	c.header.clear()
	c.trailers.clear()
	c.phase = ckHeader
	c.remaining = 0
	c.data = memview.MemView{}
	c.trailerblockReset()
}

func (c *chunkReceiver) trailerblockReset() {
	c.trailerblock = nil
}

// receive consumes bytes until the body is complete or input runs out.
// bodyTotal accumulates chunk sizes across the whole body so the cumulative
// bound can be enforced. Completed chunks are delivered through emit.
func (c *chunkReceiver) receive(pending memview.MemView, r *memview.MemViewReader, bodyTotal *int64, emit func(hnet.Chunk)) (bool, error) {
	for {
		switch c.phase {
		case ckHeader:
			ok, perr := c.header.parse(r)
			if perr != nil {
				return false, perr
			}
			if !ok {
				return false, nil
			}

			*bodyTotal += c.header.size
			if *bodyTotal > c.limits.MaxBodyLength {
				return false, parseError(BodyTooLarge, "chunked body exceeds %d bytes", c.limits.MaxBodyLength)
			}

			if c.header.size == 0 {
				c.trailerblock = hnet.NewHeaders()
				c.phase = ckTrailers
				continue
			}
			c.remaining = c.header.size
			c.phase = ckData

		case ckData:
			avail := pending.Len() - r.BytesRead()
			if avail == 0 {
				return false, nil
			}
			take := minInt64(c.remaining, avail)
			view := pending.SubView(r.BytesRead(), r.BytesRead()+take)
			r.Skip(take)
			c.data.Append(view)
			c.remaining -= take
			if c.remaining == 0 {
				c.phase = ckDataCR
			}

		case ckDataCR:
			b, err := r.ReadByte()
			if err != nil {
				return false, nil
			}
			switch {
			case b == '\r':
				c.phase = ckDataLF
			case b == '\n' && !c.limits.StrictCRLF:
				c.emitChunk(emit)
			default:
				return false, parseError(InvalidCRLF, "chunk data not terminated by CRLF")
			}

		case ckDataLF:
			b, err := r.ReadByte()
			if err != nil {
				return false, nil
			}
			if b != '\n' {
				return false, parseError(InvalidCRLF, "CR not followed by LF after chunk data")
			}
			c.emitChunk(emit)

		case ckTrailers:
			ok, perr := c.trailers.parse(r, c.trailerblock)
			if perr != nil {
				return false, perr
			}
			if !ok {
				return false, nil
			}
			emit(hnet.Chunk{
				Size:      0,
				Extension: string(c.header.extension),
				IsLast:    true,
				Trailers:  c.trailerblock,
			})
			c.phase = ckDone

		case ckDone:
			return true, nil
		}
	}
}

// emitChunk delivers the completed chunk and resets for the next header.
func (c *chunkReceiver) emitChunk(emit func(hnet.Chunk)) {
	emit(hnet.Chunk{
		Size:      c.header.size,
		Extension: string(c.header.extension),
		Data:      c.data,
	})
	c.data = memview.MemView{}
	c.header.clear()
	c.phase = ckHeader
}
