package http1

import (
	"github.com/pkg/errors"
)

// Hard ceilings on the configurable limits.
const (
	maxMaxWhitespace   = 254
	maxMaxLineLength   = 65534
	maxMaxHeaderNumber = 65534
	maxMaxHeaderLength = int64(1)<<32 - 1
)

// Limits bounds every growable structure in the parser. Exceeding any bound
// is a parse error, never an unbounded allocation. A Limits value is fixed
// at construction of a receiver or connection and must not be modified
// afterwards.
type Limits struct {
	// StrictCRLF rejects a bare LF line terminator as malformed.
	StrictCRLF bool

	// MaxWhitespace is the maximum number of consecutive whitespace bytes
	// within a line: min 1, max 254.
	MaxWhitespace int

	// MaxLineLength is the maximum length of a start line or header field
	// line: max 65534.
	MaxLineLength int

	// MaxHeaderNumber is the maximum number of distinct header fields per
	// message: max 65534.
	MaxHeaderNumber int

	// MaxHeaderLength is the maximum cumulative header bytes per message:
	// max 2^32-1.
	MaxHeaderLength int64

	// MaxBodyLength is the maximum body size, whether delimited by
	// Content-Length or the sum of chunk sizes.
	MaxBodyLength int64

	// MaxChunkSize is the maximum size of a single chunk.
	MaxChunkSize int64
}

// DefaultLimits returns limits suitable for a general-purpose server.
func DefaultLimits() Limits {
	return Limits{
		StrictCRLF:      false,
		MaxWhitespace:   8,
		MaxLineLength:   1024,
		MaxHeaderNumber: 100,
		MaxHeaderLength: 8190,
		MaxBodyLength:   1 << 20,
		MaxChunkSize:    1 << 20,
	}
}

func (l Limits) Validate() error {
	if l.MaxWhitespace < 1 || l.MaxWhitespace > maxMaxWhitespace {
		return errors.Errorf("MaxWhitespace %d outside [1, %d]", l.MaxWhitespace, maxMaxWhitespace)
	}
	if l.MaxLineLength < 1 || l.MaxLineLength > maxMaxLineLength {
		return errors.Errorf("MaxLineLength %d outside [1, %d]", l.MaxLineLength, maxMaxLineLength)
	}
	if l.MaxHeaderNumber < 1 || l.MaxHeaderNumber > maxMaxHeaderNumber {
		return errors.Errorf("MaxHeaderNumber %d outside [1, %d]", l.MaxHeaderNumber, maxMaxHeaderNumber)
	}
	if l.MaxHeaderLength < 1 || l.MaxHeaderLength > maxMaxHeaderLength {
		return errors.Errorf("MaxHeaderLength %d outside [1, %d]", l.MaxHeaderLength, maxMaxHeaderLength)
	}
	if l.MaxBodyLength < 0 {
		return errors.Errorf("negative MaxBodyLength %d", l.MaxBodyLength)
	}
	if l.MaxChunkSize < 1 {
		return errors.Errorf("MaxChunkSize %d must be positive", l.MaxChunkSize)
	}
	return nil
}
