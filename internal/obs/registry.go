package obs

import (
	"sync"
	"time"
)

// responseRegistry hands response payloads from the receive loop to the
// callers blocked in SendRequest. Callers register their request id before
// writing the request frame so the receiver can never outrun them; a
// response whose waiter already gave up is dropped at insert instead of
// accumulating in the table.
type responseRegistry struct {
	mu      sync.Mutex
	cond    *sync.Cond
	waiting map[string]struct{}
	arrived map[string]responsePayload
}

func newResponseRegistry() *responseRegistry {
	r := &responseRegistry{
		waiting: make(map[string]struct{}),
		arrived: make(map[string]responsePayload),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// register marks id as having a live waiter.
func (r *responseRegistry) register(id string) {
	r.mu.Lock()
	r.waiting[id] = struct{}{}
	r.mu.Unlock()
}

// forget discards any state for id without waiting. Used when the request
// frame could not be written after registration.
func (r *responseRegistry) forget(id string) {
	r.mu.Lock()
	delete(r.waiting, id)
	delete(r.arrived, id)
	r.mu.Unlock()
}

// put stores a response and wakes all waiters. It reports whether a
// waiter was still registered for id.
func (r *responseRegistry) put(id string, resp responsePayload) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.waiting[id]; !ok {
		return false
	}
	r.arrived[id] = resp
	r.cond.Broadcast()
	return true
}

// waitFor blocks until the response for id arrives or the deadline
// passes, returning ErrTimeout in the latter case. The wait loop
// re-checks the deadline on every wakeup to tolerate spurious broadcasts.
func (r *responseRegistry) waitFor(id string, deadline time.Time) (responsePayload, error) {
	// sync.Cond has no timed wait; a timer broadcast wakes the loop so it
	// can observe the expired deadline.
	timer := time.AfterFunc(time.Until(deadline), func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()

	r.mu.Lock()
	defer func() {
		delete(r.waiting, id)
		delete(r.arrived, id)
		r.mu.Unlock()
	}()

	for {
		if resp, ok := r.arrived[id]; ok {
			return resp, nil
		}
		if !time.Now().Before(deadline) {
			return responsePayload{}, ErrTimeout
		}
		r.cond.Wait()
	}
}
