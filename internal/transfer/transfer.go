package transfer

import (
	"context"
	"sync"
)

// Transfer is the handle for one in-flight upload or download. Its state is
// only changed by the goroutine running the transfer; callers observe it.
type Transfer struct {
	id        string
	key       string
	bucket    string
	direction Direction
	observers []Observer
	cancel    context.CancelFunc
	done      chan struct{}

	// notify serializes event delivery; mu guards the fields below.
	notify  sync.Mutex
	mu      sync.Mutex
	state   State
	current int64
	total   int64
	path    string
	err     error
}

func newTransfer(id, bucket, key string, dir Direction, cancel context.CancelFunc, observers []Observer) *Transfer {
	return &Transfer{
		id:        id,
		key:       key,
		bucket:    bucket,
		direction: dir,
		observers: observers,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     Pending,
	}
}

func (t *Transfer) ID() string           { return t.id }
func (t *Transfer) Key() string          { return t.key }
func (t *Transfer) Bucket() string       { return t.bucket }
func (t *Transfer) Direction() Direction { return t.direction }

// State returns the current state.
func (t *Transfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress returns bytes transferred so far and the total (0 if unknown).
func (t *Transfer) Progress() (current, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.total
}

// Err returns the failure once the transfer is Failed.
func (t *Transfer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Path returns the destination of a completed download.
func (t *Transfer) Path() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

// Done is closed after the terminal event has been delivered.
func (t *Transfer) Done() <-chan struct{} { return t.done }

// Wait blocks until the transfer finishes or ctx is done. It returns the
// transfer's error, or ctx.Err() if ctx ended first.
func (t *Transfer) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops a pending or running transfer, which then fails with
// ErrCanceled. It has no effect once the transfer is terminal.
func (t *Transfer) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Transfer) snapshot(changed bool) Event {
	return Event{
		TransferID:   t.id,
		Key:          t.key,
		Bucket:       t.bucket,
		Direction:    t.direction,
		State:        t.state,
		Changed:      changed,
		BytesCurrent: t.current,
		BytesTotal:   t.total,
		Path:         t.path,
		Err:          t.err,
	}
}

// update applies fn under mu and delivers the resulting event unless the
// transfer was already terminal or fn reports nothing to send.
func (t *Transfer) update(fn func() (send, changed bool)) {
	t.notify.Lock()
	defer t.notify.Unlock()

	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	send, changed := fn()
	ev := t.snapshot(changed)
	t.mu.Unlock()

	if !send {
		return
	}
	for _, o := range t.observers {
		o.OnEvent(ev)
	}
	if ev.State.Terminal() {
		close(t.done)
	}
}

func (t *Transfer) pending() {
	t.update(func() (bool, bool) { return true, true })
}

// progress records bytes moved. current is clamped to total when total is
// known and never moves backwards.
func (t *Transfer) progress(current, total int64) {
	t.update(func() (bool, bool) {
		if total > 0 {
			t.total = total
		}
		if t.total > 0 && current > t.total {
			current = t.total
		}
		changed := t.state != InProgress
		if current < t.current {
			current = t.current
		}
		if !changed && current == t.current {
			return false, false
		}
		t.state = InProgress
		t.current = current
		return true, changed
	})
}

func (t *Transfer) complete(path string, size int64) {
	t.update(func() (bool, bool) {
		if t.total == 0 {
			t.total = size
		}
		if size > t.current {
			t.current = size
		}
		if t.total > 0 && t.current > t.total {
			t.current = t.total
		}
		t.path = path
		t.state = Completed
		return true, true
	})
}

func (t *Transfer) fail(err error) {
	t.update(func() (bool, bool) {
		t.err = err
		t.state = Failed
		return true, true
	})
}
