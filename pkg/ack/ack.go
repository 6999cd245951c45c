// Package ack defines the three-valued reply a downstream consumer gives a
// producer after an element: Continue, Stop, or a value that is still
// pending and will resolve to one of those two later.
package ack

import "sync"

// Ack is the consumer's reply to a single element: it is either resolved
// immediately (Continue/Stop) or carries a pending value that some later
// call to Resolver.Resolve/Fail will settle.
//
// The zero value is Continue, so a function that forgets to build an Ack
// explicitly degrades to the most permissive case rather than panicking on
// a nil dereference.
type Ack struct {
	stop    bool
	pending *pending
}

// Continue signals the consumer is ready for the next element immediately.
var Continue = Ack{}

// Stop signals the consumer refuses further elements. It is terminal: the
// producer that receives it must cease emitting and must not call
// OnComplete or OnError.
var Stop = Ack{stop: true}

type pending struct {
	mu       sync.Mutex
	done     bool
	resolved Ack
	err      error
	waiters  []func(Ack, error)
}

// Resolver settles the Ack returned by NewDeferred. Resolving or failing an
// already-settled Resolver is a no-op: the first call wins, matching the
// "at most one terminal" discipline the rest of the protocol relies on.
type Resolver struct {
	p *pending
}

// NewDeferred returns an Ack that is not yet settled, plus the Resolver
// that settles it. Use this when resolving the ack requires asynchronous
// work (e.g. a downstream write that completes on a Scheduler).
func NewDeferred() (Ack, Resolver) {
	p := &pending{}
	return Ack{pending: p}, Resolver{p}
}

// Resolve settles the ack to Continue or Stop. a must not itself be deferred.
func (r Resolver) Resolve(a Ack) {
	r.settle(a, nil)
}

// Fail settles the ack with an asynchronous failure: the consumer threw
// while deciding on demand. The upstream treats this as a failed
// subscription and routes err into the pipeline's OnError if the pipeline
// has not already terminated.
func (r Resolver) Fail(err error) {
	r.settle(Ack{}, err)
}

func (r Resolver) settle(a Ack, err error) {
	p := r.p
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.resolved = a
	p.err = err
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, w := range waiters {
		w(a, err)
	}
}

// IsDeferred reports whether a is still pending resolution.
func (a Ack) IsDeferred() bool {
	return a.pending != nil
}

// IsStop reports whether a is the immediate Stop value. A deferred ack
// answers false here regardless of what it will eventually resolve to;
// callers that care about the eventual outcome must use Notify.
func (a Ack) IsStop() bool {
	return a.pending == nil && a.stop
}

// Notify registers fn to run once a resolves to a terminal Continue/Stop
// value, or fails. For an immediate ack, fn runs synchronously before
// Notify returns, so every call site can treat Continue, Stop, and
// Deferred uniformly by always going through Notify.
func (a Ack) Notify(fn func(resolved Ack, err error)) {
	if a.pending == nil {
		fn(a, nil)
		return
	}

	p := a.pending
	p.mu.Lock()
	if p.done {
		resolved, err := p.resolved, p.err
		p.mu.Unlock()
		fn(resolved, err)
		return
	}
	p.waiters = append(p.waiters, fn)
	p.mu.Unlock()
}
