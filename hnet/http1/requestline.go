package http1

import (
	"github.com/mel2oo/go-http1/memview"
)

// requestLine parses "METHOD SP request-target SP HTTP/major.minor CRLF"
// byte by byte.
type requestLine struct {
	limits *Limits

	method []byte
	target []byte
	major  int
	minor  int

	httpMatch int // progress through the literal "HTTP/"
	length    int
	wsCount   int
	state     requestLineState
}

type requestLineState int

const (
	reqMethod requestLineState = iota
	reqTargetWS
	reqTarget
	reqVersionWS
	reqVersionHTTP
	reqVersionMajor
	reqVersionDot
	reqVersionMinor
	reqLineEnd
	reqLineLF
	reqLineValid
)

func newRequestLine(limits *Limits) requestLine {
	return requestLine{limits: limits}
}

func (l *requestLine) clear() {
	l.method = l.method[:0]
	l.target = l.target[:0]
	l.major = 0
	l.minor = 0
	l.httpMatch = 0
	l.length = 0
	l.wsCount = 0
	l.state = reqMethod
}

func (l *requestLine) parse(r *memview.MemViewReader) (bool, *ParseError) {
	for l.state != reqLineValid {
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

func (l *requestLine) parseByte(b byte) *ParseError {
	l.length++
	if l.length > l.limits.MaxLineLength {
		perr := parseError(LineTooLong, "request line exceeds %d bytes", l.limits.MaxLineLength)
		if l.state == reqTarget {
			perr.Status = StatusURITooLong
		}
		return perr
	}

	switch l.state {
	case reqMethod:
		switch {
		case IsTokenChar(b):
			l.method = append(l.method, b)
		case b == ' ':
			if len(l.method) == 0 {
				return parseError(MalformedStartLine, "empty method")
			}
			l.state = reqTargetWS
			l.wsCount = 1
		default:
			return parseError(MalformedStartLine, "invalid byte 0x%02x in method", b)
		}

	case reqTargetWS:
		if b == ' ' {
			return l.countWS()
		}
		l.state = reqTarget
		return l.targetByte(b)

	case reqTarget:
		return l.targetByte(b)

	case reqVersionWS:
		if b == ' ' {
			return l.countWS()
		}
		l.state = reqVersionHTTP
		return l.versionByte(b)

	case reqVersionHTTP:
		return l.versionByte(b)

	case reqVersionMajor:
		if !IsDigit(b) {
			return parseError(MalformedStartLine, "invalid major version byte 0x%02x", b)
		}
		l.major = int(b - '0')
		if l.major > 2 {
			return parseError(UnsupportedVersion, "HTTP major version %d", l.major)
		}
		l.state = reqVersionDot

	case reqVersionDot:
		if b != '.' {
			return parseError(MalformedStartLine, "expected '.' in version")
		}
		l.state = reqVersionMinor

	case reqVersionMinor:
		if !IsDigit(b) {
			return parseError(MalformedStartLine, "invalid minor version byte 0x%02x", b)
		}
		l.minor = int(b - '0')
		l.state = reqLineEnd

	case reqLineEnd:
		switch b {
		case '\r':
			l.state = reqLineLF
		case '\n':
			if l.limits.StrictCRLF {
				return parseError(InvalidCRLF, "bare LF terminating request line")
			}
			l.state = reqLineValid
		default:
			return parseError(MalformedStartLine, "trailing byte 0x%02x after version", b)
		}

	case reqLineLF:
		if b != '\n' {
			return parseError(InvalidCRLF, "CR not followed by LF in request line")
		}
		l.state = reqLineValid
	}
	return nil
}

func (l *requestLine) countWS() *ParseError {
	l.wsCount++
	if l.wsCount > l.limits.MaxWhitespace {
		return parseError(WhitespaceTooLong, "more than %d whitespace bytes", l.limits.MaxWhitespace)
	}
	return nil
}

func (l *requestLine) targetByte(b byte) *ParseError {
	switch {
	case b == ' ':
		l.state = reqVersionWS
		l.wsCount = 1
	case IsCtl(b):
		return parseError(MalformedStartLine, "control byte 0x%02x in request-target", b)
	default:
		l.target = append(l.target, b)
	}
	return nil
}

func (l *requestLine) versionByte(b byte) *ParseError {
	const literal = "HTTP/"
	if b != literal[l.httpMatch] {
		return parseError(MalformedStartLine, "expected %q in request line", literal)
	}
	l.httpMatch++
	if l.httpMatch == len(literal) {
		l.state = reqVersionMajor
	}
	return nil
}
