package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueues(t *testing.T) map[string]Queue {
	s := miniredis.RunT(t)

	return map[string]Queue{
		KindMemory: NewMemoryQueue(),
		KindRedis:  NewRedisQueueFromClient(goredis.NewClient(&goredis.Options{Addr: s.Addr()})),
	}
}

func TestDequeueEmpty(t *testing.T) {
	for kind, q := range newTestQueues(t) {
		t.Run(kind, func(t *testing.T) {
			_, err := q.Dequeue(context.Background())
			assert.ErrorIs(t, err, ErrNoPendingItem)
		})
	}
}

func TestRequeueKeepsOrder(t *testing.T) {
	ctx := context.Background()

	for kind, q := range newTestQueues(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, q.Requeue(ctx, &Item{RunID: "second", Score: 20}))
			require.NoError(t, q.Requeue(ctx, &Item{RunID: "third", Score: 30}))
			require.NoError(t, q.Requeue(ctx, &Item{RunID: "first", Score: 10}))

			n, err := q.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			item, err := q.Dequeue(ctx)
			require.NoError(t, err)
			assert.Equal(t, &Item{RunID: "first", Score: 10}, item)

			// a requeued item goes back to its original position
			require.NoError(t, q.Requeue(ctx, item))

			for _, want := range []string{"first", "second", "third"} {
				item, err := q.Dequeue(ctx)
				require.NoError(t, err)
				assert.Equal(t, want, item.RunID)
			}

			n, err = q.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), n)
		})
	}
}

func TestEnqueueIsUnique(t *testing.T) {
	ctx := context.Background()

	for kind, q := range newTestQueues(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, q.Enqueue(ctx, "run"))
			require.NoError(t, q.Enqueue(ctx, "run"))

			n, err := q.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}
