package events

import "sync"

type message struct {
	Kind string
	Key  string
	Data []byte
}

// buffer is a FIFO of pending messages. With a positive capacity the oldest
// message is dropped to make room once the buffer is full.
type buffer struct {
	lock     sync.Mutex
	items    []*message
	capacity int
	dropped  int
}

func newBuffer(capacity int) *buffer {
	return &buffer{capacity: capacity}
}

// PushBack appends msg and returns the size before the push.
func (b *buffer) PushBack(msg *message) int {
	b.lock.Lock()
	defer b.lock.Unlock()

	prev := len(b.items)
	if b.capacity > 0 && prev >= b.capacity {
		b.items[0] = nil
		b.items = b.items[1:]
		b.dropped++
	}
	b.items = append(b.items, msg)

	return prev
}

func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.items) == 0 {
		return nil
	}
	msg := b.items[0]
	b.items[0] = nil
	b.items = b.items[1:]
	if len(b.items) == 0 {
		b.items = nil
	}
	return msg
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.items)
}

// Dropped is the number of messages discarded because the buffer was full.
func (b *buffer) Dropped() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.dropped
}
