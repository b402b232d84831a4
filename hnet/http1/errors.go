package http1

import (
	"fmt"
)

// ParseErrorKind identifies what a peer's input violated.
type ParseErrorKind int

const (
	LineTooLong ParseErrorKind = iota + 1
	InvalidCRLF
	WhitespaceTooLong
	MalformedStartLine
	MalformedHeader
	TooManyHeaders
	HeadersTooLarge
	InvalidChunkSize
	BodyTooLarge
	SplitHeadersRejected
	UnsupportedVersion
)

func (k ParseErrorKind) String() string {
	switch k {
	case LineTooLong:
		return "line too long"
	case InvalidCRLF:
		return "invalid CRLF"
	case WhitespaceTooLong:
		return "whitespace too long"
	case MalformedStartLine:
		return "malformed start line"
	case MalformedHeader:
		return "malformed header"
	case TooManyHeaders:
		return "too many headers"
	case HeadersTooLarge:
		return "headers too large"
	case InvalidChunkSize:
		return "invalid chunk size"
	case BodyTooLarge:
		return "body too large"
	case SplitHeadersRejected:
		return "split headers rejected"
	case UnsupportedVersion:
		return "unsupported version"
	default:
		return fmt.Sprintf("parse error %d", int(k))
	}
}

// ParseError is a fatal framing violation. The connection that produced one
// refuses further input.
type ParseError struct {
	Kind   ParseErrorKind
	Reason string

	// Overrides the status code derived from Kind; set when a generic kind
	// occurred in a context with a more specific status, such as an overlong
	// request-target.
	Status StatusCode
}

var _ error = (*ParseError)(nil)

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Reason
}

func parseError(kind ParseErrorKind, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:   kind,
		Reason: fmt.Sprintf(format, args...),
	}
}

// ProtocolErrorKind identifies a violation of HTTP semantics rather than
// framing.
type ProtocolErrorKind int

const (
	// An HTTP/1.1 request arrived without a Host header while the connection
	// requires one.
	MissingHost ProtocolErrorKind = iota + 1

	// Body bytes arrived before the application granted a 100-continue.
	ExpectContinueConflict
)

func (k ProtocolErrorKind) String() string {
	switch k {
	case MissingHost:
		return "missing Host header"
	case ExpectContinueConflict:
		return "body received before 100-continue was granted"
	default:
		return fmt.Sprintf("protocol error %d", int(k))
	}
}

type ProtocolError struct {
	Kind ProtocolErrorKind
}

var _ error = (*ProtocolError)(nil)

func (e *ProtocolError) Error() string {
	return e.Kind.String()
}

// StatusFor maps an engine error to the status code a server should answer
// with before closing the connection.
func StatusFor(err error) StatusCode {
	switch e := err.(type) {
	case *ParseError:
		if e.Status != 0 {
			return e.Status
		}
		switch e.Kind {
		case BodyTooLarge:
			return StatusPayloadTooLarge
		case TooManyHeaders, HeadersTooLarge, LineTooLong:
			return StatusRequestHeaderFieldsTooLarge
		case UnsupportedVersion:
			return StatusHTTPVersionNotSupported
		default:
			return StatusBadRequest
		}
	case *ProtocolError:
		return StatusBadRequest
	default:
		return StatusBadRequest
	}
}
