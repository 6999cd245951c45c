package streams

import "github.com/jakewins/streamcore/pkg/ack"

// DistinctUntilChangedBy suppresses an element when its key is
// equivalent to the key of the most recently emitted element. The first
// element always passes. Suppressed elements are acked Continue without
// a downstream call.
//
// equivalent is caller-supplied rather than ==, because keys may
// legitimately compare via approximate or domain-specific equivalence.
func DistinctUntilChangedBy[A any, K any](source Observable[A], key func(A) K, equivalent func(K, K) bool) Observable[A] {
	return Lift(source, func(down Subscriber[A]) Subscriber[A] {
		return &distinctSubscriber[A, K]{
			opState:    opState[A]{down: down},
			key:        key,
			equivalent: equivalent,
			isFirst:    true,
		}
	})
}

type distinctSubscriber[A any, K any] struct {
	opState[A]
	key        func(A) K
	equivalent func(K, K) bool
	isFirst    bool
	lastKey    K
}

func (d *distinctSubscriber[A, K]) OnNext(elem A) (result ack.Ack) {
	if d.terminated {
		return ack.Stop
	}
	streamingUserCode := true
	defer func() {
		if r := recover(); r != nil {
			result = d.handlePanic(streamingUserCode, asError(r))
		}
	}()

	k := d.key(elem)
	unchanged := !d.isFirst && d.equivalent(d.lastKey, k)
	streamingUserCode = false

	if unchanged {
		return ack.Continue
	}
	d.isFirst = false
	d.lastKey = k
	return d.down.OnNext(elem)
}
