package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jakewins/streamcore/pkg/reactive"
	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/streams"
	"github.com/jakewins/streamcore/pkg/wire"
)

// Directory resolves a published stream name for an incoming subscriber.
// Lookups happen once per Subscribe frame; returning false rejects the
// subscription with an error frame.
type Directory func(name string) (streams.Observable[[]byte], bool)

// StreamConn multiplexes subscriptions over a single connection. Both
// ends run one: the side holding a Directory answers Subscribe frames by
// publishing, and either side can open subscriptions of its own through
// Subscribe. Stream ids keep the usual odd/even split - initialize
// clients with 1 and servers with 2 - so the two ends never collide.
type StreamConn struct {
	Id        int
	Rwc       io.ReadWriteCloser
	Directory Directory
	Sched     scheduler.Scheduler
	Logger    zerolog.Logger

	dec   *wire.FrameDecoder
	frame wire.Frame

	sendMu    sync.Mutex
	enc       *wire.FrameEncoder
	sendFrame wire.Frame

	mu           sync.Mutex
	nextStreamId uint32
	outbound     map[uint32]reactive.Subscription
	inbound      map[uint32]reactive.Subscriber
}

// firstStreamId starts the stream id generator - use 1 when implementing
// a client and 2 when implementing a server, maintaining the odd/even
// invariant that separates the two ends.
func (c *StreamConn) Initialize(firstStreamId uint32) {
	c.dec = wire.NewFrameDecoder(c.Rwc)
	c.enc = wire.NewFrameEncoder(c.Rwc)
	c.nextStreamId = firstStreamId
	c.outbound = make(map[uint32]reactive.Subscription)
	c.inbound = make(map[uint32]reactive.Subscriber)
	c.Logger = c.Logger.With().Str("component", "stream-conn").Int("conn", c.Id).Logger()
}

// Serve runs the read loop until the connection dies. Any subscriptions
// still open at that point fail with the connection error.
func (c *StreamConn) Serve() {
	f := &c.frame
	for {
		if err := c.dec.Read(f); err != nil {
			if errors.Is(err, io.EOF) {
				c.Logger.Debug().Msg("connection closed by remote")
			} else {
				c.Logger.Warn().Err(err).Msg("connection read failed")
			}
			c.terminate(fmt.Errorf("conn %d: connection lost: %w", c.Id, err))
			return
		}

		c.Logger.Debug().Str("frame", f.Describe()).Msg("<-")
		c.handleFrame(f)
	}
}

func (c *StreamConn) handleFrame(f *wire.Frame) {
	switch f.Type() {
	case wire.FTSubscribe:
		c.handleSubscribe(f)
	case wire.FTRequestN:
		if sub := c.lookupOutbound(f.StreamID()); sub != nil {
			sub.Request(int(wire.RequestN(f.Buf)))
		}
	case wire.FTCancel:
		if sub := c.removeOutbound(f.StreamID()); sub != nil {
			sub.Cancel()
		}
	case wire.FTNext:
		if sub := c.lookupInbound(f.StreamID()); sub != nil {
			// The frame buffer is re-used by the read loop; the element
			// must not alias it.
			data := make([]byte, len(wire.NextData(f.Buf)))
			copy(data, wire.NextData(f.Buf))
			sub.OnNext(data)
		}
	case wire.FTError:
		if sub := c.removeInbound(f.StreamID()); sub != nil {
			sub.OnError(errors.New(wire.ErrorMessage(f.Buf)))
		}
	case wire.FTComplete:
		if sub := c.removeInbound(f.StreamID()); sub != nil {
			sub.OnComplete()
		}
	default:
		c.Logger.Warn().Uint32("type", uint32(f.Type())).Msg("dropping unknown frame")
	}
}

func (c *StreamConn) handleSubscribe(f *wire.Frame) {
	streamId := f.StreamID()
	name := wire.SubscribeName(f.Buf)
	initialN := int(wire.SubscribeInitialN(f.Buf))

	if c.Directory == nil {
		c.sendError(streamId, fmt.Sprintf("this end publishes no streams (wanted %q)", name))
		return
	}
	source, ok := c.Directory(name)
	if !ok {
		c.sendError(streamId, fmt.Sprintf("no stream published as %q", name))
		return
	}

	pub := reactive.ToPublisher(source, c.Sched)
	pub.Subscribe(&localPublication{conn: c, streamId: streamId, initialN: initialN})
}

// localPublication feeds one outbound stream: the reactive subscriber
// the bridge delivers into, writing each event to the wire.
type localPublication struct {
	conn     *StreamConn
	streamId uint32
	initialN int
}

func (p *localPublication) OnSubscribe(s reactive.Subscription) {
	p.conn.registerOutbound(p.streamId, s)
	if p.initialN > 0 {
		s.Request(p.initialN)
	}
}

func (p *localPublication) OnNext(v any) {
	data, ok := v.([]byte)
	if !ok {
		p.conn.Sched.ReportFailure(fmt.Errorf("conn %d stream %d: cannot send %T over the wire",
			p.conn.Id, p.streamId, v))
		return
	}
	p.conn.sendNext(p.streamId, data)
}

func (p *localPublication) OnError(e error) {
	p.conn.removeOutbound(p.streamId)
	p.conn.sendError(p.streamId, e.Error())
}

func (p *localPublication) OnComplete() {
	p.conn.removeOutbound(p.streamId)
	p.conn.sendComplete(p.streamId)
}

// Subscribe returns a Publisher for a stream the remote end publishes
// under name. Each reactive subscription opens its own wire stream.
func (c *StreamConn) Subscribe(name string) reactive.Publisher {
	return &remotePublisher{conn: c, name: name}
}

type remotePublisher struct {
	conn *StreamConn
	name string
}

func (p *remotePublisher) Subscribe(s reactive.Subscriber) {
	streamId := p.conn.allocateStreamId()
	p.conn.registerInbound(streamId, s)
	s.OnSubscribe(&remoteSubscription{conn: p.conn, name: p.name, streamId: streamId})
}

// remoteSubscription is the demand side of one inbound stream. The
// first Request rides on the Subscribe frame itself; later ones become
// RequestN frames.
type remoteSubscription struct {
	conn     *StreamConn
	name     string
	streamId uint32

	mu     sync.Mutex
	opened bool
}

func (s *remoteSubscription) Request(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	opened := s.opened
	s.opened = true
	s.mu.Unlock()

	if !opened {
		s.conn.sendSubscribe(s.streamId, uint32(n), s.name)
		return
	}
	s.conn.sendRequestN(s.streamId, uint32(n))
}

func (s *remoteSubscription) Cancel() {
	if s.conn.removeInbound(s.streamId) != nil {
		s.conn.sendCancel(s.streamId)
	}
}

// Stream registry plumbing

func (c *StreamConn) allocateStreamId() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextStreamId
	c.nextStreamId += 2
	return id
}

func (c *StreamConn) registerOutbound(id uint32, s reactive.Subscription) {
	c.mu.Lock()
	c.outbound[id] = s
	c.mu.Unlock()
}

func (c *StreamConn) lookupOutbound(id uint32) reactive.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbound[id]
}

func (c *StreamConn) removeOutbound(id uint32) reactive.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.outbound[id]
	delete(c.outbound, id)
	return s
}

func (c *StreamConn) registerInbound(id uint32, s reactive.Subscriber) {
	c.mu.Lock()
	c.inbound[id] = s
	c.mu.Unlock()
}

func (c *StreamConn) lookupInbound(id uint32) reactive.Subscriber {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inbound[id]
}

func (c *StreamConn) removeInbound(id uint32) reactive.Subscriber {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.inbound[id]
	delete(c.inbound, id)
	return s
}

// terminate fails every open subscription; the connection is gone.
func (c *StreamConn) terminate(err error) {
	c.mu.Lock()
	inbound := c.inbound
	outbound := c.outbound
	c.inbound = make(map[uint32]reactive.Subscriber)
	c.outbound = make(map[uint32]reactive.Subscription)
	c.mu.Unlock()

	for _, sub := range inbound {
		sub.OnError(err)
	}
	for _, sub := range outbound {
		sub.Cancel()
	}
	c.Rwc.Close()
}

// Senders. All writes share the connection's scratch frame and encoder,
// serialised by sendMu; a write failure tears the connection down,
// which the read loop notices and reports.

func (c *StreamConn) send(encode func(f *wire.Frame)) {
	c.sendMu.Lock()
	encode(&c.sendFrame)
	c.Logger.Debug().Str("frame", c.sendFrame.Describe()).Msg("->")
	err := c.enc.Write(&c.sendFrame)
	c.sendMu.Unlock()

	if err != nil {
		c.Logger.Warn().Err(err).Msg("connection write failed")
		c.Rwc.Close()
	}
}

func (c *StreamConn) sendSubscribe(streamId, initialN uint32, name string) {
	c.send(func(f *wire.Frame) { wire.EncodeSubscribe(f, streamId, initialN, name) })
}

func (c *StreamConn) sendRequestN(streamId, n uint32) {
	c.send(func(f *wire.Frame) { wire.EncodeRequestN(f, streamId, n) })
}

func (c *StreamConn) sendCancel(streamId uint32) {
	c.send(func(f *wire.Frame) { wire.EncodeCancel(f, streamId) })
}

func (c *StreamConn) sendNext(streamId uint32, data []byte) {
	c.send(func(f *wire.Frame) { wire.EncodeNext(f, streamId, data) })
}

func (c *StreamConn) sendError(streamId uint32, message string) {
	c.send(func(f *wire.Frame) { wire.EncodeError(f, streamId, message) })
}

func (c *StreamConn) sendComplete(streamId uint32) {
	c.send(func(f *wire.Frame) { wire.EncodeComplete(f, streamId) })
}
