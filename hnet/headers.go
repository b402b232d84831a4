package hnet

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mel2oo/go-http1/optionals"
)

// Well-known tokens searched for inside header values.
const (
	tokenCookie    = "cookie"
	tokenIdentity  = "identity"
	tokenClose     = "close"
	tokenKeepAlive = "keep-alive"
	tokenContinue  = "100-continue"
)

// A HeaderField is a single (name, value) pair. On the receive side the name
// is lower case; encoders preserve whatever case the caller supplied.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is the collection of header fields received with a request,
// response or chunk trailer. Names are stored lower case; a repeated name
// merges its values into one entry. Insertion order is not preserved.
type Headers struct {
	fields map[string]string

	// Cumulative name+value bytes across all Add calls, used to bound the
	// total header size of a message.
	length int64
}

func NewHeaders() *Headers {
	return &Headers{
		fields: make(map[string]string),
	}
}

// Clear resets the collection for reuse on a kept-alive connection.
func (h *Headers) Clear() {
	for k := range h.fields {
		delete(h.fields, k)
	}
	h.length = 0
}

// Add records a field. A repeated name merges the new value onto the stored
// one: values join with "," except names containing "cookie", which join
// with "; " (RFC 6265).
func (h *Headers) Add(name, value string) {
	name = strings.ToLower(name)
	h.length += int64(len(name) + len(value))

	if existing, found := h.fields[name]; found {
		separator := ","
		if strings.Contains(name, tokenCookie) {
			separator = "; "
		}
		h.fields[name] = existing + separator + value
		return
	}
	h.fields[name] = value
}

// Find returns the merged value for a header name, case-insensitively.
func (h *Headers) Find(name string) (string, bool) {
	value, found := h.fields[strings.ToLower(name)]
	return value, found
}

// Count returns the number of distinct header names stored.
func (h *Headers) Count() int {
	return len(h.fields)
}

// Length returns the cumulative name+value bytes received.
func (h *Headers) Length() int64 {
	return h.length
}

// Fields returns the internal name-to-value map, for iteration.
func (h *Headers) Fields() map[string]string {
	return h.fields
}

// ContentLength returns None if there is no Content-Length field, Some(n)
// for a well-formed field, and an error for a malformed one.
func (h *Headers) ContentLength() (optionals.Optional[int64], error) {
	value, found := h.Find("content-length")
	if !found {
		return optionals.None[int64](), nil
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return optionals.None[int64](), errors.New("empty Content-Length")
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return optionals.None[int64](), errors.Errorf("malformed Content-Length %q", value)
		}
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return optionals.None[int64](), errors.Wrapf(err, "malformed Content-Length %q", value)
	}
	return optionals.Some(n), nil
}

// IsChunked reports whether chunked transfer coding applies: a
// Transfer-Encoding field is present and does not contain "identity".
// See RFC 2616 section 4.4.
func (h *Headers) IsChunked() bool {
	value, found := h.Find("transfer-encoding")
	if !found {
		return false
	}
	return !strings.Contains(strings.ToLower(value), tokenIdentity)
}

// CloseConnection reports whether the Connection field asks for the
// connection to be closed after this message.
func (h *Headers) CloseConnection() bool {
	value, found := h.Find("connection")
	if !found {
		return false
	}
	return strings.Contains(strings.ToLower(value), tokenClose)
}

// KeepAlive reports whether the Connection field asks for the connection to
// be kept open. Only meaningful for HTTP/1.0, where close is the default.
func (h *Headers) KeepAlive() bool {
	value, found := h.Find("connection")
	if !found {
		return false
	}
	return strings.Contains(strings.ToLower(value), tokenKeepAlive)
}

// ExpectContinue reports whether the client expects a "100 Continue"
// interim response before sending the request body.
func (h *Headers) ExpectContinue() bool {
	value, found := h.Find("expect")
	if !found {
		return false
	}
	return strings.Contains(strings.ToLower(value), tokenContinue)
}

// WantsUpgrade surfaces the Upgrade field, if any. Acting on it is the
// caller's concern.
func (h *Headers) WantsUpgrade() (string, bool) {
	return h.Find("upgrade")
}

// ToWire serializes the headers as "name: value\r\n" lines, in sorted name
// order for determinism. The result is NOT terminated with the extra blank
// CRLF, so AreHeadersSplit reports false for it.
func (h *Headers) ToWire() []byte {
	names := make([]string, 0, len(h.fields))
	for name := range h.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []byte
	for _, name := range names {
		out = append(out, name...)
		out = append(out, ':', ' ')
		out = append(out, h.fields[name]...)
		out = append(out, '\r', '\n')
	}
	return out
}

// AreHeadersSplit reports whether the string contains an embedded blank line
// ("\n\n" or "\n\r\n"), which would split a header block into two HTTP
// messages. Used to reject forged headers built from untrusted input.
func AreHeadersSplit(headers string) bool {
	prev := byte('0')
	pprev := byte('0')
	for i := 0; i < len(headers); i++ {
		c := headers[i]
		if c == '\n' {
			if prev == '\n' {
				return true
			}
			if prev == '\r' && pprev == '\n' {
				return true
			}
		}
		pprev = prev
		prev = c
	}
	return false
}
