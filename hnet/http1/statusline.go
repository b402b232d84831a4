package http1

import (
	"github.com/mel2oo/go-http1/memview"
)

// statusLine parses "HTTP/major.minor SP status-code [SP reason-phrase]
// CRLF" byte by byte. The reason phrase may be empty or absent.
type statusLine struct {
	limits *Limits

	major  int
	minor  int
	status int
	reason []byte

	httpMatch  int // progress through the literal "HTTP/"
	codeDigits int
	length     int
	wsCount    int
	state      statusLineState
}

type statusLineState int

const (
	stVersionHTTP statusLineState = iota
	stVersionMajor
	stVersionDot
	stVersionMinor
	stCodeWS
	stCode
	stAfterCode
	stReason
	stLineLF
	stLineValid
)

func newStatusLine(limits *Limits) statusLine {
	return statusLine{limits: limits}
}

func (l *statusLine) clear() {
	l.major = 0
	l.minor = 0
	l.status = 0
	l.reason = l.reason[:0]
	l.httpMatch = 0
	l.codeDigits = 0
	l.length = 0
	l.wsCount = 0
	l.state = stVersionHTTP
}

func (l *statusLine) parse(r *memview.MemViewReader) (bool, *ParseError) {
	for l.state != stLineValid {
		b, err := r.ReadByte()
		if err != nil {
			return false, nil
		}
		if perr := l.parseByte(b); perr != nil {
			return false, perr
		}
	}
	return true, nil
}

func (l *statusLine) parseByte(b byte) *ParseError {
	l.length++
	if l.length > l.limits.MaxLineLength {
		return parseError(LineTooLong, "status line exceeds %d bytes", l.limits.MaxLineLength)
	}

	switch l.state {
	case stVersionHTTP:
		const literal = "HTTP/"
		if b != literal[l.httpMatch] {
			return parseError(MalformedStartLine, "status line does not begin with %q", literal)
		}
		l.httpMatch++
		if l.httpMatch == len(literal) {
			l.state = stVersionMajor
		}

	case stVersionMajor:
		if !IsDigit(b) {
			return parseError(MalformedStartLine, "invalid major version byte 0x%02x", b)
		}
		l.major = int(b - '0')
		if l.major > 2 {
			return parseError(UnsupportedVersion, "HTTP major version %d", l.major)
		}
		l.state = stVersionDot

	case stVersionDot:
		if b != '.' {
			return parseError(MalformedStartLine, "expected '.' in version")
		}
		l.state = stVersionMinor

	case stVersionMinor:
		if !IsDigit(b) {
			return parseError(MalformedStartLine, "invalid minor version byte 0x%02x", b)
		}
		l.minor = int(b - '0')
		l.state = stCodeWS
		l.wsCount = 0

	case stCodeWS:
		if b == ' ' {
			l.wsCount++
			if l.wsCount > l.limits.MaxWhitespace {
				return parseError(WhitespaceTooLong, "more than %d whitespace bytes", l.limits.MaxWhitespace)
			}
			return nil
		}
		if l.wsCount == 0 {
			return parseError(MalformedStartLine, "missing space before status code")
		}
		l.state = stCode
		return l.codeByte(b)

	case stCode:
		return l.codeByte(b)

	case stAfterCode:
		switch {
		case b == ' ':
			l.state = stReason
		case b == '\r':
			l.state = stLineLF
		case b == '\n':
			if l.limits.StrictCRLF {
				return parseError(InvalidCRLF, "bare LF terminating status line")
			}
			l.state = stLineValid
		default:
			return parseError(MalformedStartLine, "byte 0x%02x after status code", b)
		}

	case stReason:
		switch {
		case b == '\r':
			l.state = stLineLF
		case b == '\n':
			if l.limits.StrictCRLF {
				return parseError(InvalidCRLF, "bare LF terminating status line")
			}
			l.state = stLineValid
		case IsCtl(b) && b != '\t':
			return parseError(MalformedStartLine, "control byte 0x%02x in reason phrase", b)
		default:
			l.reason = append(l.reason, b)
		}

	case stLineLF:
		if b != '\n' {
			return parseError(InvalidCRLF, "CR not followed by LF in status line")
		}
		l.state = stLineValid
	}
	return nil
}

func (l *statusLine) codeByte(b byte) *ParseError {
	if !IsDigit(b) {
		return parseError(MalformedStartLine, "invalid status code byte 0x%02x", b)
	}
	l.status = l.status*10 + int(b-'0')
	l.codeDigits++
	if l.codeDigits == 3 {
		l.state = stAfterCode
	}
	return nil
}
