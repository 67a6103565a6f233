// Package queue holds the runs waiting to be executed, ordered by the time
// they were enqueued.
package queue

import (
	"context"
	"errors"
	"time"
)

const (
	KindMemory = "memory"
	KindRedis  = "redis"
)

var ErrNoPendingItem = errors.New("no pending item in queue")

// Item is a queued run. Score orders items; lower scores are dequeued first.
type Item struct {
	RunID string
	Score float64
}

type Queue interface {
	Kind() string
	Enqueue(ctx context.Context, runID string) error

	// Dequeue removes the item with the lowest score, or returns
	// ErrNoPendingItem if the queue is empty
	Dequeue(ctx context.Context) (*Item, error)

	// Requeue puts back an item with its original score
	Requeue(ctx context.Context, item *Item) error
	Len(ctx context.Context) (int64, error)
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
