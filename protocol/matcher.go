package protocol

import (
	"sync"

	"github.com/bnowak008/squoosh-kit-sub000/errors"
)

// Matcher correlates responses to pending requests by ID. One Matcher serves
// one channel; it is safe for concurrent use from both sides.
type Matcher struct {
	mu      sync.Mutex
	pending map[uint64]chan *Response
	closed  bool
	err     error
}

func NewMatcher() *Matcher {
	return &Matcher{pending: make(map[uint64]chan *Response)}
}

// Register creates a pending slot for id and returns the channel its response
// will be delivered on. The channel is buffered so delivery never blocks the
// responder. Registering on a closed matcher returns an already-failed
// channel carrying the close error.
func (m *Matcher) Register(id uint64) <-chan *Response {
	ch := make(chan *Response, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		ch <- &Response{ID: id, OK: false, Error: m.err.Error()}
		return ch
	}
	m.pending[id] = ch
	return ch
}

// Cancel removes the pending slot for id. Idempotent; a response arriving
// after Cancel is dropped like any other unmatched response.
func (m *Matcher) Cancel(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

// Resolve delivers resp to its pending request. A response with an
// unrecognized ID is ignored: it belongs to a request that already settled
// or was cancelled, and cannot be attributed to anyone.
func (m *Matcher) Resolve(resp *Response) {
	if resp == nil {
		return
	}

	m.mu.Lock()
	ch, ok := m.pending[resp.ID]
	if ok {
		delete(m.pending, resp.ID)
	}
	m.mu.Unlock()

	if ok {
		ch <- resp
	}
}

// Close fails every pending request with err and rejects all future
// registrations. Used when the worker terminates with calls still in flight.
func (m *Matcher) Close(err error) {
	if err == nil {
		err = errors.Terminated("channel")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.err = err

	for id, ch := range m.pending {
		ch <- &Response{ID: id, OK: false, Error: err.Error()}
		delete(m.pending, id)
	}
}

// PendingCount reports the number of unsettled requests.
func (m *Matcher) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
