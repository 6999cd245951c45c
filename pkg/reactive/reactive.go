// Package reactive carries the standard reactive-streams shapes -
// Publisher, Subscriber, Subscription - and the adapters that translate
// between that request-n model and the ack-paced streams core.
//
// There is no official Go rendition of the reactive-streams interfaces;
// these follow the Java ones, untyped because the wire protocols that
// speak this model are untyped too.
package reactive

// A Publisher is a provider of a potentially unbounded number of
// sequenced elements, publishing them according to the demand its
// Subscribers signal.
//
// Subscribe is a factory method: each call starts an independent
// Subscription, and a Publisher can serve many at various points in
// time.
type Publisher interface {
	Subscribe(s Subscriber)
}

// Subscriber receives OnSubscribe once after being handed to
// Publisher.Subscribe; the Subscription it is given is how it requests
// elements. No element arrives without demand: the Publisher may
// deliver at most as many OnNext calls as were requested.
type Subscriber interface {
	OnSubscribe(s Subscription)
	OnNext(v any)
	OnError(e error)
	OnComplete()
}

// Subscription is the one-to-one lifecycle between a Subscriber and the
// Publisher it subscribed to. Request adds demand; Cancel ends the
// subscription and is idempotent.
type Subscription interface {
	Request(n int)
	Cancel()
}
