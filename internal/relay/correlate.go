package relay

import (
	"sync"

	"go.uber.org/zap"

	"github.com/balihome/balirelay/internal/logging"
)

// correlator matches inbound responses to outstanding requests by
// correlation id. Every id holds at most one waiter; the waiter channel is
// buffered so the receive path never blocks on delivery. Waiters are removed
// on resolution and on abandonment, never leaked.
type correlator struct {
	mu      sync.Mutex
	pending map[string]chan *Message
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[string]chan *Message)}
}

// register creates a waiter for id. The caller must guarantee removal via
// remove (typically deferred) so the map cannot grow without bound.
func (c *correlator) register(id string) <-chan *Message {
	ch := make(chan *Message, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch
}

// remove drops the waiter for id if it is still registered
func (c *correlator) remove(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// resolve delivers msg to the waiter registered for its id and removes it.
// Returns false when no waiter matches; the caller logs and drops the
// message (a duplicate or stale response is not an error).
func (c *correlator) resolve(msg *Message) bool {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	if ok {
		delete(c.pending, msg.ID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	return true
}

// abandonAll closes every waiter so in-flight requests fail instead of
// hanging forever. Called when the connection that owns them is torn down.
func (c *correlator) abandonAll() {
	c.mu.Lock()
	abandoned := c.pending
	c.pending = make(map[string]chan *Message)
	c.mu.Unlock()

	for id, ch := range abandoned {
		close(ch)
		logging.Debug("Abandoned pending request", zap.String("id", id))
	}
}

// size reports the number of outstanding waiters
func (c *correlator) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
