package http1

import (
	"bytes"

	"github.com/mel2oo/go-http1/memview"
)

// fieldLine parses one "name: value" header line byte by byte. It is
// restartable at any byte: parse may be called repeatedly as input becomes
// available and picks up exactly where it stopped.
type fieldLine struct {
	strictCRLF    bool
	maxWhitespace int
	maxLineLength int

	name    []byte // lower-cased as received
	value   []byte
	length  int // bytes consumed for this line
	wsCount int // consecutive whitespace seen
	state   fieldLineState
}

type fieldLineState int

const (
	lineName fieldLineState = iota
	lineValueLS
	lineValue
	lineLF
	lineValid
)

func newFieldLine(limits *Limits) fieldLine {
	return fieldLine{
		strictCRLF:    limits.StrictCRLF,
		maxWhitespace: limits.MaxWhitespace,
		maxLineLength: limits.MaxLineLength,
	}
}

func (f *fieldLine) clear() {
	f.name = f.name[:0]
	f.value = f.value[:0]
	f.length = 0
	f.wsCount = 0
	f.state = lineName
}

// parse consumes bytes from r until the field is complete, input runs out,
// or the line is malformed. Returns true when a complete field is
// available. A complete field is only reported once the byte after its
// terminator has been seen, so that a folded continuation line (obs-fold)
// is never mistaken for the start of the next field, no matter how the
// input is cut.
func (f *fieldLine) parse(r *memview.MemViewReader) (bool, *ParseError) {
	for {
		if f.state == lineValid {
			b, err := r.PeekByte()
			if err != nil {
				return false, nil
			}
			if !IsSpaceOrTab(b) {
				return true, nil
			}
			// obs-fold: the value continues on the next line. Normalize the
			// fold to a single space.
			f.value = append(f.value, ' ')
			f.state = lineValueLS
		}

		b, err := r.ReadByte()
		if err != nil {
			return false, nil
		}
		if perr := f.parseByte(b); perr != nil {
			return false, perr
		}
	}
}

func (f *fieldLine) parseByte(b byte) *ParseError {
	f.length++
	if f.length > f.maxLineLength {
		return parseError(LineTooLong, "header line exceeds %d bytes", f.maxLineLength)
	}

	switch f.state {
	case lineName:
		switch {
		case isAlpha(b) || b == '-':
			f.name = append(f.name, toLower(b))
		case b == ':':
			if len(f.name) == 0 {
				return parseError(MalformedHeader, "empty header name")
			}
			f.state = lineValueLS
		default:
			return parseError(MalformedHeader, "invalid byte 0x%02x in header name", b)
		}

	case lineValueLS:
		if IsSpaceOrTab(b) {
			f.wsCount++
			if f.wsCount > f.maxWhitespace {
				return parseError(WhitespaceTooLong, "more than %d whitespace bytes", f.maxWhitespace)
			}
			return nil
		}
		f.state = lineValue
		return f.valueByte(b)

	case lineValue:
		return f.valueByte(b)

	case lineLF:
		if b != '\n' {
			return parseError(InvalidCRLF, "CR not followed by LF")
		}
		f.state = lineValid
	}
	return nil
}

func (f *fieldLine) valueByte(b byte) *ParseError {
	if !IsEndOfLine(b) {
		f.value = append(f.value, b)
		return nil
	}
	if b == '\r' {
		f.state = lineLF
		return nil
	}
	// bare LF
	if f.strictCRLF {
		return parseError(InvalidCRLF, "bare LF in header line")
	}
	f.state = lineValid
	return nil
}

// fieldName returns the lower-cased name.
func (f *fieldLine) fieldName() string {
	return string(f.name)
}

// fieldValue returns the value, trimmed of trailing whitespace. Leading
// whitespace was never stored.
func (f *fieldLine) fieldValue() string {
	return string(bytes.TrimRight(f.value, " \t"))
}

// fieldLength returns the stored name+value size, used for the cumulative
// header length bound.
func (f *fieldLine) fieldLength() int {
	return len(f.name) + len(f.value)
}
