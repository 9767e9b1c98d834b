package stream

import "sync"

// sendQueue is the bounded FIFO buffer for outbound wire messages attempted
// while disconnected. When full, new sends are rejected; queued contents are
// never overwritten.
type sendQueue struct {
	mu       sync.Mutex
	capacity int
	items    [][]byte
}

func newSendQueue(capacity int) *sendQueue {
	return &sendQueue{capacity: capacity}
}

// push appends a message; reports false when the queue is at capacity.
func (q *sendQueue) push(payload []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, payload)
	return true
}

// pop removes and returns the oldest message.
func (q *sendQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	payload := q.items[0]
	q.items = q.items[1:]
	return payload, true
}

// pushFront restores a message popped for a flush that failed mid-write, so
// the next flush cycle retries it first.
func (q *sendQueue) pushFront(payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([][]byte{payload}, q.items...)
}

func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *sendQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}
