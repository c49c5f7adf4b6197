// Package sink holds the outbound queue of formatted notification messages.
package sink

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue is closed and drained
var ErrClosed = errors.New("sink closed")

// Queue is an unbounded FIFO of messages. Push never blocks; Pop blocks until a message is
// available, the context ends, or the queue is closed and empty.
type Queue struct {
	mu     sync.Mutex
	items  []string
	ready  chan struct{} // buffered(1): signalled when items becomes non-empty
	closed bool
}

func New() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends a message. Pushes after Close are dropped.
func (q *Queue) Push(msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, msg)
	q.signal()
}

// Pop removes and returns the oldest message
func (q *Queue) Pop(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return msg, nil
		}
		if q.closed {
			q.mu.Unlock()
			return "", ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of queued messages
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting messages and wakes blocked readers once the backlog is drained
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
