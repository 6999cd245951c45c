package streams

import "github.com/jakewins/streamcore/pkg/ack"

// FromSlice is a cold source over a fixed slice: every subscriber gets
// the full sequence from the start. Emission respects acks and yields
// back to the scheduler at batch boundaries, the same discipline any
// well-behaved producer follows.
func FromSlice[A any](items []A) Observable[A] {
	return sliceObservable[A](items)
}

type sliceObservable[A any] []A

func (o sliceObservable[A]) Subscribe(sub Subscriber[A]) Cancelable {
	cancel := NewBoolCancelable()
	run := &sliceRun[A]{items: o, sub: sub, cancel: cancel}
	sub.Scheduler().Execute(run.loop)
	return cancel
}

type sliceRun[A any] struct {
	items  []A
	index  int
	sub    Subscriber[A]
	cancel *BoolCancelable
}

func (r *sliceRun[A]) loop() {
	batch := r.sub.Scheduler().ExecutionModel().RecommendedBatchSize
	for {
		if r.cancel.IsCanceled() {
			return
		}
		if r.index >= len(r.items) {
			r.sub.OnComplete()
			return
		}

		elem := r.items[r.index]
		r.index++

		a := r.sub.OnNext(elem)
		if a.IsDeferred() {
			a.Notify(r.resume)
			return
		}
		if a.IsStop() {
			return
		}

		batch--
		if batch <= 0 {
			r.sub.Scheduler().Execute(r.loop)
			return
		}
	}
}

// resume picks the loop back up once a deferred ack settles. It always
// goes through the scheduler so the continuation runs where subscription
// work is supposed to run, not on whatever goroutine resolved the ack.
func (r *sliceRun[A]) resume(resolved ack.Ack, err error) {
	r.sub.Scheduler().Execute(func() {
		switch {
		case err != nil:
			r.sub.OnError(err)
		case resolved.IsStop():
		default:
			r.loop()
		}
	})
}
