package mqtt

import "sync"

// defaultCommandQueueSize bounds the offline command queue when config
// does not specify a size.
const defaultCommandQueueSize = 64

// queuedCommand is a publish request buffered while the broker is unreachable.
type queuedCommand struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// commandQueue is a bounded FIFO of commands to replay on reconnect.
//
// When full, the oldest entry is evicted to make room: bounded memory under
// a prolonged outage takes priority over preserving every stale command.
type commandQueue struct {
	mu       sync.Mutex
	entries  []queuedCommand
	capacity int
	evicted  int
}

// newCommandQueue creates a queue holding at most capacity commands.
func newCommandQueue(capacity int) *commandQueue {
	return &commandQueue{capacity: capacity}
}

// push appends a command, evicting the oldest entry if the queue is full.
// Returns true if an entry was evicted.
func (q *commandQueue) push(cmd queuedCommand) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := false
	if len(q.entries) >= q.capacity {
		q.entries = q.entries[1:]
		q.evicted++
		evicted = true
	}
	q.entries = append(q.entries, cmd)
	return evicted
}

// peek returns the oldest command without removing it.
func (q *commandQueue) peek() (queuedCommand, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return queuedCommand{}, false
	}
	return q.entries[0], true
}

// pop removes the oldest command.
func (q *commandQueue) pop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) > 0 {
		q.entries = q.entries[1:]
	}
}

// len returns the number of queued commands.
func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// evictedCount returns the total number of commands dropped due to overflow.
func (q *commandQueue) evictedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
