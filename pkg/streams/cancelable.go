package streams

import "sync"

// Cancelable severs a subscription. Cancel is idempotent and safe to
// call from any goroutine; cancellation is advisory, so an in-flight
// OnNext may still complete after Cancel returns.
type Cancelable interface {
	Cancel()
}

// CancelFunc adapts a plain function to Cancelable. The function is
// invoked at most once no matter how many times Cancel is called.
func CancelFunc(fn func()) Cancelable {
	return &funcCancelable{fn: fn}
}

type funcCancelable struct {
	once sync.Once
	fn   func()
}

func (c *funcCancelable) Cancel() {
	c.once.Do(c.fn)
}

// Done is the already-cancelled, do-nothing Cancelable handed back from
// subscription attempts that failed before producing anything.
var Done Cancelable = noopCancelable{}

type noopCancelable struct{}

func (noopCancelable) Cancel() {}

// BoolCancelable is a cancellation flag producers poll at their
// scheduling boundaries.
type BoolCancelable struct {
	mu       sync.Mutex
	canceled bool
}

func NewBoolCancelable() *BoolCancelable {
	return &BoolCancelable{}
}

func (c *BoolCancelable) Cancel() {
	c.mu.Lock()
	c.canceled = true
	c.mu.Unlock()
}

func (c *BoolCancelable) IsCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// SerialCancelable holds at most one inner Cancelable at a time,
// cancelling the displaced one on swap and anything assigned after the
// serial itself was cancelled. Retry uses this to chain the handle for
// whichever subscription attempt is currently live.
type SerialCancelable struct {
	mu       sync.Mutex
	canceled bool
	inner    Cancelable
}

func NewSerialCancelable() *SerialCancelable {
	return &SerialCancelable{}
}

// Set installs inner as the live handle. If the serial was already
// cancelled, inner is cancelled immediately instead.
func (c *SerialCancelable) Set(inner Cancelable) {
	c.mu.Lock()
	if c.canceled {
		c.mu.Unlock()
		if inner != nil {
			inner.Cancel()
		}
		return
	}
	previous := c.inner
	c.inner = inner
	c.mu.Unlock()

	if previous != nil {
		previous.Cancel()
	}
}

func (c *SerialCancelable) Cancel() {
	c.mu.Lock()
	if c.canceled {
		c.mu.Unlock()
		return
	}
	c.canceled = true
	inner := c.inner
	c.inner = nil
	c.mu.Unlock()

	if inner != nil {
		inner.Cancel()
	}
}

func (c *SerialCancelable) IsCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

// CompositeCancelable cancels a fixed group of handles together.
func CompositeCancelable(members ...Cancelable) Cancelable {
	return CancelFunc(func() {
		for _, m := range members {
			if m != nil {
				m.Cancel()
			}
		}
	})
}
