package reactive

import (
	"fmt"
	"sync"

	"github.com/jakewins/streamcore/pkg/ack"
	"github.com/jakewins/streamcore/pkg/scheduler"
	"github.com/jakewins/streamcore/pkg/streams"
)

// ToPublisher exposes an ack-paced Observable as a request-n Publisher.
// Demand arriving via Request is banked in a counter; the upstream is
// handed Continue while credit remains and a deferred ack once it runs
// out, resolved when the subscriber asks for more. Cancel resolves any
// outstanding ack to Stop and severs the upstream.
//
// The source is not subscribed until the first Request, so a subscriber
// that never asks for anything costs nothing.
func ToPublisher[A any](source streams.Observable[A], sched scheduler.Scheduler) Publisher {
	return &observablePublisher[A]{source: source, sched: sched}
}

type observablePublisher[A any] struct {
	source streams.Observable[A]
	sched  scheduler.Scheduler
}

func (p *observablePublisher[A]) Subscribe(s Subscriber) {
	sub := &demandGate[A]{
		publisher: p,
		rs:        s,
		upstream:  streams.NewSerialCancelable(),
	}
	s.OnSubscribe(sub)
}

// demandGate is both the Subscription handed to the reactive subscriber
// and the streams.Subscriber attached upstream. Demand flows in through
// Request; elements flow out through OnNext, each one spending a credit.
type demandGate[A any] struct {
	publisher *observablePublisher[A]
	rs        Subscriber
	upstream  *streams.SerialCancelable

	mu       sync.Mutex
	demand   int64
	started  bool
	canceled bool
	pending  *ack.Resolver
}

func (g *demandGate[A]) Request(n int) {
	if n <= 0 {
		g.Cancel()
		g.rs.OnError(fmt.Errorf("%w: Request(%d), demand must be positive", streams.ErrAPIContractViolation, n))
		return
	}

	g.mu.Lock()
	if g.canceled {
		g.mu.Unlock()
		return
	}
	g.demand += int64(n)
	if !g.started {
		g.started = true
		g.mu.Unlock()
		g.upstream.Set(g.publisher.source.Subscribe(g))
		return
	}
	resolver := g.pending
	g.pending = nil
	g.mu.Unlock()

	if resolver != nil {
		resolver.Resolve(ack.Continue)
	}
}

func (g *demandGate[A]) Cancel() {
	g.mu.Lock()
	if g.canceled {
		g.mu.Unlock()
		return
	}
	g.canceled = true
	resolver := g.pending
	g.pending = nil
	g.mu.Unlock()

	if resolver != nil {
		resolver.Resolve(ack.Stop)
	}
	g.upstream.Cancel()
}

func (g *demandGate[A]) Scheduler() scheduler.Scheduler {
	return g.publisher.sched
}

func (g *demandGate[A]) OnNext(elem A) ack.Ack {
	g.mu.Lock()
	if g.canceled {
		g.mu.Unlock()
		return ack.Stop
	}
	g.mu.Unlock()

	// The upstream only emits against banked demand - the previous ack
	// was only Continue while credit remained - so delivery is always
	// within what the subscriber requested.
	g.rs.OnNext(elem)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.canceled {
		return ack.Stop
	}
	g.demand--
	if g.demand > 0 {
		return ack.Continue
	}
	deferred, resolver := ack.NewDeferred()
	g.pending = &resolver
	return deferred
}

func (g *demandGate[A]) OnError(err error) {
	g.mu.Lock()
	canceled := g.canceled
	g.canceled = true
	g.mu.Unlock()
	if canceled {
		g.publisher.sched.ReportFailure(err)
		return
	}
	g.rs.OnError(err)
}

func (g *demandGate[A]) OnComplete() {
	g.mu.Lock()
	canceled := g.canceled
	g.canceled = true
	g.mu.Unlock()
	if canceled {
		return
	}
	g.rs.OnComplete()
}
