package http1

import (
	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/memview"
)

// headersParser assembles a header block (or chunk trailers) by repeatedly
// driving a field-line parser until the terminating blank line, enforcing
// the per-message header count and cumulative length bounds.
type headersParser struct {
	limits *Limits
	field  fieldLine

	length  int64 // cumulative name+value bytes committed
	inField bool  // mid-way through a field line
	blankCR bool  // saw the CR of the terminating blank line
	done    bool
}

func newHeadersParser(limits *Limits) headersParser {
	return headersParser{
		limits: limits,
		field:  newFieldLine(limits),
	}
}

func (p *headersParser) clear() {
	p.field.clear()
	p.length = 0
	p.inField = false
	p.blankCR = false
	p.done = false
}

// parse consumes bytes from r, committing completed fields into out.
// Returns true when the blank line terminating the block has been consumed.
func (p *headersParser) parse(r *memview.MemViewReader, out *hnet.Headers) (bool, *ParseError) {
	for !p.done {
		if p.blankCR {
			b, err := r.ReadByte()
			if err != nil {
				return false, nil
			}
			if b != '\n' {
				return false, parseError(InvalidCRLF, "CR not followed by LF at end of headers")
			}
			p.done = true
			break
		}

		if !p.inField {
			b, err := r.PeekByte()
			if err != nil {
				return false, nil
			}
			if IsEndOfLine(b) {
				r.ReadByte()
				if b == '\r' {
					p.blankCR = true
					continue
				}
				// bare LF blank line
				if p.limits.StrictCRLF {
					return false, parseError(InvalidCRLF, "bare LF at end of headers")
				}
				p.done = true
				break
			}
			p.inField = true
		}

		ok, perr := p.field.parse(r)
		if perr != nil {
			return false, perr
		}
		if !ok {
			return false, nil
		}

		p.length += int64(p.field.fieldLength())
		out.Add(p.field.fieldName(), p.field.fieldValue())
		p.field.clear()
		p.inField = false

		if out.Count() > p.limits.MaxHeaderNumber {
			return false, parseError(TooManyHeaders, "more than %d header fields", p.limits.MaxHeaderNumber)
		}
		if p.length > p.limits.MaxHeaderLength {
			return false, parseError(HeadersTooLarge, "headers exceed %d bytes", p.limits.MaxHeaderLength)
		}
	}
	return true, nil
}
