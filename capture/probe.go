package capture

import (
	"github.com/mel2oo/go-http1/memview"
)

// AcceptDecision is a probe's verdict on the start of a byte stream.
type AcceptDecision int

const (
	NeedMoreData AcceptDecision = iota
	Accept
	Reject
)

func (d AcceptDecision) String() string {
	switch d {
	case NeedMoreData:
		return "NeedMoreData"
	case Accept:
		return "Accept"
	case Reject:
		return "Reject"
	default:
		return "unknown"
	}
}

// SniffRequest decides whether input begins an HTTP/1.x request stream.
// discardFront is the number of leading bytes to drop before parsing: stray
// bytes before the request line, or everything, on rejection.
func SniffRequest(input memview.MemView, isEnd bool) (decision AcceptDecision, discardFront int64) {
	defer func() {
		if decision == NeedMoreData && isEnd {
			decision = Reject
			discardFront = input.Len()
		}
	}()

	if input.Len() < minSupportedMethodLength {
		return NeedMoreData, 0
	}

	for _, m := range supportedMethods {
		if start := input.Index(0, []byte(m)); start >= 0 {
			d := hasRequestLine(input.SubView(start+int64(len(m)), input.Len()))
			switch d {
			case Accept:
				return Accept, start
			case NeedMoreData:
				return NeedMoreData, start
			}
		}
	}

	// The suffix of input may be a prefix of a method: input=`<garbage>GE`
	// where the next input is `T / HTTP/1.1`.
	if input.Len() < maxSupportedMethodLength {
		return NeedMoreData, 0
	}
	return Reject, input.Len()
}

// SniffResponse decides whether input begins an HTTP/1.x response stream.
func SniffResponse(input memview.MemView, isEnd bool) (decision AcceptDecision, discardFront int64) {
	defer func() {
		if decision == NeedMoreData && isEnd {
			decision = Reject
			discardFront = input.Len()
		}
	}()

	if input.Len() < minStatusLineLength {
		return NeedMoreData, 0
	}

	for _, v := range []string{"HTTP/1.1", "HTTP/1.0"} {
		if start := input.Index(0, []byte(v)); start >= 0 {
			switch hasStatusLine(input.SubView(start+int64(len(v)), input.Len())) {
			case Accept:
				return Accept, start
			case NeedMoreData:
				return NeedMoreData, start
			}
		}
	}
	return Reject, input.Len()
}

// hasRequestLine checks for a valid request line. The input starts right
// after the HTTP method.
func hasRequestLine(input memview.MemView) AcceptDecision {
	if input.Len() == 0 {
		return NeedMoreData
	}

	// A single space separates the method from the request-target.
	if input.GetByte(0) != ' ' {
		return Reject
	}

	nextSP := input.Index(1, []byte(" "))
	if nextSP < 0 {
		// Could be a very long request-target.
		if input.Len()-1 > maxProbeTargetLength {
			return Reject
		}
		return NeedMoreData
	} else if nextSP == 1 {
		return Reject
	}

	// Need the full version tail of the request line: `HTTP/1.x\r\n`.
	tail := input.SubView(nextSP+1, input.Len())
	if tail.Len() < 10 {
		return NeedMoreData
	}
	if tail.Index(0, []byte("HTTP/1.1\r\n")) == 0 || tail.Index(0, []byte("HTTP/1.0\r\n")) == 0 {
		return Accept
	}
	return Reject
}

// hasStatusLine checks for a valid status line. The input starts right
// after the HTTP version.
func hasStatusLine(input memview.MemView) AcceptDecision {
	if input.Len() < 5 {
		// Need 2 spaces plus 3 bytes of status code.
		return NeedMoreData
	}

	// The format is SP status-code SP reason-phrase CRLF; the space and
	// reason phrase may be absent.
	if input.GetByte(0) != ' ' {
		return Reject
	}

	// We don't insist the first digit is in [1-5], to allow custom status
	// codes.
	for i := int64(1); i <= 3; i++ {
		if !isASCIIDigit(input.GetByte(i)) {
			return Reject
		}
	}

	if b := input.GetByte(4); b != ' ' && !isLineEnd(b) {
		return Reject
	}

	if input.Index(0, []byte("\r\n")) < 0 {
		// Could be a very long reason phrase.
		if input.Len()-4 > maxProbeReasonLength {
			return Reject
		}
		return NeedMoreData
	}

	return Accept
}

func isASCIIDigit(b byte) bool {
	return '0' <= b && b <= '9'
}

func isLineEnd(b byte) bool {
	return b == '\r' || b == '\n'
}
