package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryQueue is a process-local Queue. Items with equal scores are
// dequeued in insertion order.
type MemoryQueue struct {
	mu    sync.Mutex
	items []*Item
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Kind() string {
	return KindMemory
}

func (q *MemoryQueue) Enqueue(ctx context.Context, runID string) error {
	return q.Requeue(ctx, &Item{RunID: runID, Score: score(time.Now())})
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, ErrNoPendingItem
	}

	item := q.items[0]
	q.items = q.items[1:]

	return item, nil
}

func (q *MemoryQueue) Requeue(ctx context.Context, item *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, existing := range q.items {
		if existing.RunID == item.RunID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}

	i := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].Score > item.Score
	})

	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = &Item{RunID: item.RunID, Score: item.Score}

	return nil
}

func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.items)), nil
}
