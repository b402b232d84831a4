package http1

import (
	"github.com/mel2oo/go-http1/memview"
)

// chunkHeader parses "chunk-size [;extension] CRLF", with the size in hex.
type chunkHeader struct {
	limits *Limits

	size      int64
	extension []byte

	sizeDigits int
	length     int
	wsCount    int
	state      chunkHeaderState
}

type chunkHeaderState int

const (
	chSize chunkHeaderState = iota
	chSizeWS
	chExtension
	chLineLF
	chValid
)

func newChunkHeader(limits *Limits) chunkHeader {
	return chunkHeader{limits: limits}
}

func (c *chunkHeader) clear() {
	c.size = 0
	c.extension = c.extension[:0]
	c.sizeDigits = 0
	c.length = 0
	c.wsCount = 0
	c.state = chSize
}

func (c *chunkHeader) parse(r *memview.MemViewReader) (bool, *ParseError) {
	for c.state != chValid {
		b, err := r.ReadByte()
		if err != nil {
			return false, nil
		}
		if perr := c.parseByte(b); perr != nil {
			return false, perr
		}
	}
	return true, nil
}

func (c *chunkHeader) parseByte(b byte) *ParseError {
	c.length++
	if c.length > c.limits.MaxLineLength {
		return parseError(LineTooLong, "chunk header exceeds %d bytes", c.limits.MaxLineLength)
	}

	switch c.state {
	case chSize:
		if IsHexDigit(b) {
			c.size = c.size*16 + int64(hexValue(b))
			c.sizeDigits++
			if c.size > c.limits.MaxChunkSize || c.sizeDigits > 16 {
				return parseError(InvalidChunkSize, "chunk size exceeds %d", c.limits.MaxChunkSize)
			}
			return nil
		}
		if c.sizeDigits == 0 {
			return parseError(InvalidChunkSize, "chunk header byte 0x%02x is not a hex digit", b)
		}
		return c.afterSizeByte(b)

	case chSizeWS:
		if IsSpaceOrTab(b) {
			c.wsCount++
			if c.wsCount > c.limits.MaxWhitespace {
				return parseError(WhitespaceTooLong, "more than %d whitespace bytes", c.limits.MaxWhitespace)
			}
			return nil
		}
		return c.afterSizeByte(b)

	case chExtension:
		switch {
		case b == '\r':
			c.state = chLineLF
		case b == '\n':
			if c.limits.StrictCRLF {
				return parseError(InvalidCRLF, "bare LF terminating chunk header")
			}
			c.state = chValid
		case IsCtl(b) && b != '\t':
			return parseError(InvalidChunkSize, "control byte 0x%02x in chunk extension", b)
		default:
			c.extension = append(c.extension, b)
		}

	case chLineLF:
		if b != '\n' {
			return parseError(InvalidCRLF, "CR not followed by LF in chunk header")
		}
		c.state = chValid
	}
	return nil
}

// afterSizeByte handles the byte following the size digits and any
// whitespace: the start of an extension or the line terminator.
func (c *chunkHeader) afterSizeByte(b byte) *ParseError {
	switch {
	case b == ';':
		c.state = chExtension
	case IsSpaceOrTab(b):
		c.state = chSizeWS
		c.wsCount = 1
	case b == '\r':
		c.state = chLineLF
	case b == '\n':
		if c.limits.StrictCRLF {
			return parseError(InvalidCRLF, "bare LF terminating chunk header")
		}
		c.state = chValid
	default:
		return parseError(InvalidChunkSize, "unexpected byte 0x%02x after chunk size", b)
	}
	return nil
}
