package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mel2oo/go-http1/memview"
)

type sniffTestCase struct {
	name             string
	input            string
	expectedDecision AcceptDecision
	expectedDF       int64 // expected discard front

	// Don't signal end of the stream for this test case.
	dontMarkEnd bool
}

func runSniffTest(t *testing.T, isRequest bool, c sniffTestCase) {
	t.Helper()

	// Feed the input one byte at a time, discarding as instructed, to
	// exercise incremental probing.
	var input memview.MemView
	var decision AcceptDecision
	var totalLen int64
	for i := 0; i < len(c.input); i++ {
		input.Append(memview.New([]byte{c.input[i]}))
		totalLen++

		atEnd := i == len(c.input)-1 && !c.dontMarkEnd
		var df int64
		if isRequest {
			decision, df = SniffRequest(input, atEnd)
		} else {
			decision, df = SniffResponse(input, atEnd)
		}
		input = input.SubView(df, input.Len())
	}

	discardFront := totalLen - input.Len()
	assert.Equal(t, c.expectedDecision, decision, c.name)
	assert.Equal(t, c.expectedDF, discardFront, c.name)
}

func TestSniffRequest(t *testing.T) {
	testCases := []sniffTestCase{
		{
			name:             "accept without body",
			input:            "GET / HTTP/1.1\r\n",
			expectedDecision: Accept,
		},
		{
			name:             "accept with body",
			input:            "POST / HTTP/1.1\r\nHost: example.com\r\n\r\nfoobar",
			expectedDecision: Accept,
		},
		{
			name:             "unrecognized method",
			input:            "FOO / HTTP/1.1\r\n",
			expectedDecision: Reject,
			expectedDF:       16,
		},
		{
			name:             "unsupported version",
			input:            "GET / HTTP/0.3\r\n",
			expectedDecision: Reject,
			expectedDF:       16,
		},
		{
			name:             "method string in request target",
			input:            "GET /POST/PUT HTTP/1.1\r\n",
			expectedDecision: Accept,
		},
		{
			name:             "two spaces after method",
			input:            "GET  / HTTP/1.1\r\n",
			expectedDecision: Reject,
			expectedDF:       17,
		},
		{
			name:             "garbage",
			input:            "hello I'm garbage\r\n",
			expectedDecision: Reject,
			expectedDF:       int64(len("hello I'm garbage\r\n")),
		},
		{
			name:             "accept after stray leading bytes",
			input:            "POSTGET / HTTP/1.1\r\n",
			expectedDecision: Accept,
			expectedDF:       int64(len("POST")),
		},
		{
			name:             "incomplete without end marker",
			input:            "GE",
			expectedDecision: NeedMoreData,
			dontMarkEnd:      true,
		},
	}

	for _, c := range testCases {
		runSniffTest(t, true, c)
	}
}

func TestSniffResponse(t *testing.T) {
	testCases := []sniffTestCase{
		{
			name:             "accept without body",
			input:            "HTTP/1.1 200 OK\r\n",
			expectedDecision: Accept,
		},
		{
			name:             "accept with body",
			input:            "HTTP/1.1 200 OK\r\nhello",
			expectedDecision: Accept,
		},
		{
			name:             "invalid status code",
			input:            "HTTP/1.1 X99 OK\r\n",
			expectedDecision: Reject,
			expectedDF:       17,
		},
		{
			name:             "no space before status code",
			input:            "HTTP/1.1200 OK\r\n",
			expectedDecision: Reject,
			expectedDF:       int64(len("HTTP/1.1200 OK\r\n")),
		},
		{
			name:             "no space before reason phrase",
			input:            "HTTP/1.1 200OK\r\n",
			expectedDecision: Reject,
			expectedDF:       int64(len("HTTP/1.1 200OK\r\n")),
		},
		{
			name:             "unsupported version",
			input:            "HTTP/0.3 200 OK\r\n",
			expectedDecision: Reject,
			expectedDF:       int64(len("HTTP/0.3 200 OK\r\n")),
		},
		{
			name:             "garbage",
			input:            "hello I'm garbage\r\n",
			expectedDecision: Reject,
			expectedDF:       int64(len("hello I'm garbage\r\n")),
		},
		{
			name:             "accept after stray leading bytes",
			input:            "OKHTTP/1.1 200 OK\r\n",
			expectedDecision: Accept,
			expectedDF:       int64(len("OK")),
		},
	}

	for _, c := range testCases {
		runSniffTest(t, false, c)
	}
}
