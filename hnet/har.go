package hnet

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/martian/v3/har"
	"github.com/pkg/errors"

	"github.com/mel2oo/go-http1/memview"
)

// FromHAR populates the request from a HAR entry, so captured or exported
// exchanges can be replayed through the engine.
func (r *Request) FromHAR(h *har.Request) error {
	r.Method = h.Method
	r.ProtoMajor, r.ProtoMinor = parseHARVersion(h.HTTPVersion)

	// URL
	{
		u, err := url.Parse(h.URL)
		if err != nil {
			return errors.Wrap(err, "failed to parse URL")
		}

		vals := make(url.Values)
		for _, q := range h.QueryString {
			vals.Add(q.Name, q.Value)
		}
		if len(vals) > 0 {
			u.RawQuery = vals.Encode()
		}
		r.Target = u.RequestURI()

		if u.Host != "" {
			r.Header.Add("Host", u.Host)
		}
	}

	var host string
	for _, header := range h.Headers {
		if strings.ToLower(header.Name) == "host" {
			host = header.Value
			continue
		}
		r.Header.Add(header.Name, header.Value)
	}
	if _, found := r.Header.Find("host"); !found && host != "" {
		// Some HAR generators record only the path in the URL field, so fall
		// back to the host header.
		r.Header.Add("Host", host)
	}

	r.Cookies = convertHARCookies(h.Cookies)

	if pd := h.PostData; pd != nil {
		r.Header.Add("Content-Type", pd.MimeType)

		if len(pd.Params) > 0 {
			vals := make(url.Values)
			for _, p := range pd.Params {
				vals.Add(p.Name, p.Value)
			}
			r.Body = memview.New([]byte(vals.Encode()))
		} else {
			r.Body = memview.New([]byte(pd.Text))
		}
	}

	return nil
}

// ToHAR converts the request into a HAR entry.
func (r *Request) ToHAR() (*har.Request, error) {
	result, err := har.NewRequest(r.ToStdRequest(), false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert request to HAR")
	}
	result.PostData = &har.PostData{
		MimeType: contentType(r.Header),
		Text:     r.Body.String(),
	}
	result.BodySize = r.Body.Len()
	return result, nil
}

// FromHAR populates the response from a HAR entry.
func (r *Response) FromHAR(h *har.Response) error {
	if h.Status < 100 || h.Status > 599 {
		return errors.Errorf("status code %v out of range", h.Status)
	}
	r.StatusCode = h.Status
	r.ReasonPhrase = h.StatusText
	r.ProtoMajor, r.ProtoMinor = parseHARVersion(h.HTTPVersion)

	for _, header := range h.Headers {
		r.Header.Add(header.Name, header.Value)
	}

	if c := h.Content; c != nil {
		if _, found := r.Header.Find("content-type"); !found {
			r.Header.Add("Content-Type", c.MimeType)
		}

		switch c.Encoding {
		case "base64":
			// The martian har library performs the decoding for us.
			fallthrough
		case "":
			r.Body = memview.New(c.Text)
		default:
			return errors.Errorf("unsupported encoding %s", c.Encoding)
		}
	}

	return nil
}

// ToHAR converts the response into a HAR entry.
func (r *Response) ToHAR() (*har.Response, error) {
	result, err := har.NewResponse(r.ToStdResponse(), false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert response to HAR")
	}
	result.Content = &har.Content{
		Size:     r.Body.Len(),
		MimeType: contentType(r.Header),
		Text:     []byte(r.Body.String()),
	}
	result.BodySize = r.Body.Len()
	return result, nil
}

// parseHARVersion tolerates the version strings seen in HAR files in the
// wild: empty strings and Firefox's "HTTP/2".
func parseHARVersion(version string) (major, minor int) {
	version = strings.ToUpper(version)
	if version == "HTTP/2" {
		return 2, 0
	}
	if ma, mi, ok := http.ParseHTTPVersion(version); ok {
		return ma, mi
	}
	return 1, 1
}

func convertHARCookies(cs []har.Cookie) []*http.Cookie {
	results := make([]*http.Cookie, 0, len(cs))
	for _, c := range cs {
		results = append(results, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return results
}

func contentType(h *Headers) string {
	value, _ := h.Find("content-type")
	return value
}
