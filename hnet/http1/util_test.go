package http1

import (
	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/memview"
)

// eventLog records every event a receiver or connection emits, in order.
type eventLog struct {
	events []hnet.Event
}

func (l *eventLog) OnEvent(e hnet.Event) {
	l.events = append(l.events, e)
}

func (l *eventLog) emit(e hnet.Event) {
	l.events = append(l.events, e)
}

// bodyString concatenates the data of all BodyBytes events.
func (l *eventLog) bodyString() string {
	var out string
	for _, e := range l.events {
		if b, ok := e.(hnet.BodyBytes); ok {
			out += b.Data.String()
		}
	}
	return out
}

// chunkDataString concatenates the data of all ChunkReceived events.
func (l *eventLog) chunkDataString() string {
	var out string
	for _, e := range l.events {
		if c, ok := e.(hnet.ChunkReceived); ok {
			out += c.Chunk.Data.String()
		}
	}
	return out
}

func (l *eventLog) requestHeaders() *hnet.Request {
	for _, e := range l.events {
		if rh, ok := e.(hnet.RequestHeaders); ok {
			return rh.Request
		}
	}
	return nil
}

func (l *eventLog) responseHeaders() *hnet.Response {
	for _, e := range l.events {
		if rh, ok := e.(hnet.ResponseHeaders); ok {
			return rh.Response
		}
	}
	return nil
}

func (l *eventLog) completed() bool {
	for _, e := range l.events {
		if _, ok := e.(hnet.MessageComplete); ok {
			return true
		}
	}
	return false
}

// segment3 cuts the input into 3 parts in all possible ways.
func segment3(input string) <-chan []memview.MemView {
	out := make(chan []memview.MemView)

	go func() {
		for i := 0; i <= len(input); i++ {
			for j := i; j <= len(input); j++ {
				mvs := []memview.MemView{
					memview.New([]byte(input[:i])),
					memview.New([]byte(input[i:j])),
					memview.New([]byte(input[j:])),
				}
				out <- mvs
			}
		}
		close(out)
	}()

	return out
}
