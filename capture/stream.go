package capture

import (
	"encoding/binary"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/reassembly"

	"github.com/mel2oo/go-http1/hnet"
	"github.com/mel2oo/go-http1/hnet/http1"
	"github.com/mel2oo/go-http1/memview"
)

// Observed is one engine event attributed to a captured TCP flow.
type Observed struct {
	SrcIP   net.IP
	SrcPort int
	DstIP   net.IP
	DstPort int

	// The capture timestamp of the segment that produced the event.
	ObservationTime time.Time

	Event hnet.Event
}

// StreamFactory builds reassembly streams that replay captured HTTP/1.x
// traffic through the wire engine. Each direction of a TCP stream is probed
// for a request or response stream; once recognized, its reassembled
// segments feed a dedicated connection whose events are delivered on the
// output channel.
type StreamFactory struct {
	limits http1.Limits
	out    chan<- Observed
}

var _ reassembly.StreamFactory = (*StreamFactory)(nil)

func NewStreamFactory(limits http1.Limits, out chan<- Observed) *StreamFactory {
	return &StreamFactory{
		limits: limits,
		out:    out,
	}
}

func (f *StreamFactory) New(netFlow, tcpFlow gopacket.Flow, _ *layers.TCP, _ reassembly.AssemblerContext) reassembly.Stream {
	s := &stream{}
	for dir := 0; dir < 2; dir++ {
		s.halves[dir] = &halfStream{
			limits: f.limits,
			out:    f.out,
		}
	}

	// The flow arguments describe the first-seen direction; the reverse
	// half swaps them.
	s.halves[0].srcIP = net.IP(netFlow.Src().Raw())
	s.halves[0].dstIP = net.IP(netFlow.Dst().Raw())
	s.halves[0].srcPort = flowPort(tcpFlow.Src().Raw())
	s.halves[0].dstPort = flowPort(tcpFlow.Dst().Raw())
	s.halves[1].srcIP = s.halves[0].dstIP
	s.halves[1].dstIP = s.halves[0].srcIP
	s.halves[1].srcPort = s.halves[0].dstPort
	s.halves[1].dstPort = s.halves[0].srcPort

	return s
}

func flowPort(raw []byte) int {
	if len(raw) != 2 {
		return 0
	}
	return int(binary.BigEndian.Uint16(raw))
}

// stream reassembles one TCP stream, one halfStream per direction.
type stream struct {
	halves [2]*halfStream
}

var _ reassembly.Stream = (*stream)(nil)

func (s *stream) Accept(*layers.TCP, gopacket.CaptureInfo, reassembly.TCPFlowDirection, reassembly.Sequence, *bool, reassembly.AssemblerContext) bool {
	return true
}

func (s *stream) ReassembledSG(sg reassembly.ScatterGather, ac reassembly.AssemblerContext) {
	dir, _, end, skip := sg.Info()
	half := s.halves[0]
	if dir == reassembly.TCPDirServerToClient {
		half = s.halves[1]
	}

	if skip != 0 {
		// Lost segments: there is no reliable way to resynchronize an
		// HTTP/1.x stream mid-message.
		half.abandon()
		return
	}

	var when time.Time
	if ac != nil {
		when = ac.GetCaptureInfo().Timestamp
	}

	length, _ := sg.Lengths()
	if length > 0 {
		// The reassembler reuses its pages; the engine keeps views, so copy.
		data := make([]byte, length)
		copy(data, sg.Fetch(length))
		half.deliver(memview.New(data), end, when)
	} else if end {
		half.eof()
	}
}

func (s *stream) ReassemblyComplete(reassembly.AssemblerContext) bool {
	for _, half := range s.halves {
		half.eof()
	}
	return true
}

// halfStream probes one direction of a TCP stream and, once it looks like
// HTTP, replays it through a connection.
type halfStream struct {
	limits http1.Limits
	out    chan<- Observed

	srcIP   net.IP
	dstIP   net.IP
	srcPort int
	dstPort int

	conn     *http1.Conn
	buffered memview.MemView // bytes awaiting a probe decision
	when     time.Time       // capture time of the segment being processed

	reqRejected  bool
	respRejected bool
	abandoned    bool
	eofSent      bool
}

func (h *halfStream) deliver(input memview.MemView, isEnd bool, when time.Time) {
	if h.abandoned {
		return
	}
	h.when = when

	if h.conn == nil {
		h.buffered.Append(input)
		h.tryDecide(isEnd)
	} else {
		h.conn.Feed(input)
	}

	if isEnd {
		h.eof()
	}
}

// tryDecide probes the buffered prefix for a request stream first, then a
// response stream. Once either probe accepts, the half commits to that
// role.
func (h *halfStream) tryDecide(isEnd bool) {
	if !h.reqRejected {
		switch d, df := SniffRequest(h.buffered, isEnd); d {
		case Accept:
			h.start(http1.RoleServer, df)
			return
		case Reject:
			h.reqRejected = true
		}
	}
	if !h.respRejected {
		switch d, df := SniffResponse(h.buffered, isEnd); d {
		case Accept:
			h.start(http1.RoleClient, df)
			return
		case Reject:
			h.respRejected = true
		}
	}
	if h.reqRejected && h.respRejected {
		h.abandon()
	}
}

func (h *halfStream) start(role http1.Role, discardFront int64) {
	conn, err := http1.NewConn(http1.Config{
		Role:   role,
		Limits: h.limits,
		Sink:   hnet.EventSinkFunc(h.emit),
	})
	if err != nil {
		h.abandon()
		return
	}
	h.conn = conn

	if discardFront < h.buffered.Len() {
		h.conn.Feed(h.buffered.SubView(discardFront, h.buffered.Len()))
	}
	h.buffered.Clear()
}

func (h *halfStream) emit(e hnet.Event) {
	h.out <- Observed{
		SrcIP:           h.srcIP,
		SrcPort:         h.srcPort,
		DstIP:           h.dstIP,
		DstPort:         h.dstPort,
		ObservationTime: h.when,
		Event:           e,
	}
}

func (h *halfStream) eof() {
	if h.abandoned || h.eofSent {
		return
	}
	h.eofSent = true
	if h.conn != nil {
		h.conn.EOF()
	}
}

func (h *halfStream) abandon() {
	h.abandoned = true
	h.conn = nil
	h.buffered.Clear()
}
