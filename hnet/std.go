package hnet

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/mel2oo/go-http1/mempool"
	"github.com/mel2oo/go-http1/sets"
	"github.com/mel2oo/go-http1/slices"
)

// FromStdRequest converts a net/http request into the engine's
// representation. The body must already have been drained into the given
// pooled buffer.
func FromStdRequest(streamID uuid.UUID, seq int, src *http.Request, body mempool.Buffer) *Request {
	result := NewRequest(streamID, seq)
	result.Method = src.Method
	result.ProtoMajor = src.ProtoMajor
	result.ProtoMinor = src.ProtoMinor
	result.Cookies = src.Cookies()

	if src.URL != nil {
		result.Target = src.URL.RequestURI()
	} else {
		result.Target = src.RequestURI
	}

	for name, values := range src.Header {
		for _, value := range values {
			result.Header.Add(name, value)
		}
	}
	if src.Host != "" {
		if _, found := result.Header.Find("host"); !found {
			result.Header.Add("Host", src.Host)
		}
	}

	if body != nil {
		result.Body = body.Bytes()
		result.SetBodyBuffer(body)
	}
	return result
}

// ToStdRequest converts the request back into a net/http request.
func (r *Request) ToStdRequest() *http.Request {
	u, err := url.ParseRequestURI(r.Target)
	if err != nil {
		u = &url.URL{Path: r.Target}
	}

	host, _ := r.Header.Find("host")
	result := &http.Request{
		Method:        r.Method,
		URL:           u,
		Proto:         fmt.Sprintf("HTTP/%d.%d", r.ProtoMajor, r.ProtoMinor),
		ProtoMajor:    r.ProtoMajor,
		ProtoMinor:    r.ProtoMinor,
		Host:          host,
		Header:        toStdHeader(r.Header),
		ContentLength: r.Body.Len(),
		Body:          io.NopCloser(r.Body.CreateReader()),
	}

	// Add any cookies in r.Cookies not already present in the headers.
	existing := sets.NewSet(slices.Map(result.Cookies(), func(c *http.Cookie) string {
		return c.String()
	})...)
	for _, c := range r.Cookies {
		if v := c.String(); !existing.Contains(v) {
			result.AddCookie(c)
			existing.Insert(v)
		}
	}

	return result
}

// FromStdResponse converts a net/http response into the engine's
// representation. The body must already have been drained into the given
// pooled buffer.
func FromStdResponse(streamID uuid.UUID, seq int, src *http.Response, body mempool.Buffer) *Response {
	result := NewResponse(streamID, seq)
	result.StatusCode = src.StatusCode
	result.ReasonPhrase = http.StatusText(src.StatusCode)
	result.ProtoMajor = src.ProtoMajor
	result.ProtoMinor = src.ProtoMinor
	result.Cookies = src.Cookies()

	for name, values := range src.Header {
		for _, value := range values {
			result.Header.Add(name, value)
		}
	}

	if body != nil {
		result.Body = body.Bytes()
		result.SetBodyBuffer(body)
	}
	return result
}

// ToStdResponse converts the response back into a net/http response.
func (r *Response) ToStdResponse() *http.Response {
	result := &http.Response{
		Status:        fmt.Sprintf("%d %s", r.StatusCode, r.ReasonPhrase),
		StatusCode:    r.StatusCode,
		Proto:         fmt.Sprintf("HTTP/%d.%d", r.ProtoMajor, r.ProtoMinor),
		ProtoMajor:    r.ProtoMajor,
		ProtoMinor:    r.ProtoMinor,
		Header:        toStdHeader(r.Header),
		ContentLength: r.Body.Len(),
		Body:          io.NopCloser(r.Body.CreateReader()),
	}

	// Add any cookies in r.Cookies not already present in the headers.
	existing := sets.NewSet(slices.Map(result.Cookies(), func(c *http.Cookie) string {
		return c.String()
	})...)
	for _, c := range r.Cookies {
		if v := c.String(); v != "" && !existing.Contains(v) {
			result.Header.Add("Set-Cookie", v)
			existing.Insert(v)
		}
	}

	return result
}

func toStdHeader(h *Headers) http.Header {
	result := make(http.Header, h.Count())
	for name, value := range h.Fields() {
		if name == "host" {
			continue
		}
		result.Set(name, value)
	}
	return result
}
