package station

import (
	"container/list"
	"context"
	"sync"
)

// Queue is the unbounded FIFO between the arrival generator and the dispatcher.
type Queue struct {
	mu    sync.Mutex
	items *list.List
	ready chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{items: list.New(), ready: make(chan struct{}, 1)}
}

// Push appends v. It never blocks.
func (q *Queue) Push(v *Vehicle) {
	q.mu.Lock()
	q.items.PushBack(v)
	q.mu.Unlock()
	q.notify()
}

// Pop removes the oldest vehicle, waiting until one is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (*Vehicle, error) {
	for {
		q.mu.Lock()
		if front := q.items.Front(); front != nil {
			q.items.Remove(front)
			more := q.items.Len() > 0
			q.mu.Unlock()
			if more {
				q.notify()
			}
			return front.Value.(*Vehicle), nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of waiting vehicles.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *Queue) notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
