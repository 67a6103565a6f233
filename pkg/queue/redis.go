package queue

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const pendingKey = "pending"

// RedisQueue keeps pending runs in a sorted set scored by enqueue time.
type RedisQueue struct {
	client *goredis.Client
	key    string
}

func NewRedisQueue(host, port, username, password string, db int) *RedisQueue {
	return NewRedisQueueFromClient(goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Username: username,
		Password: password,
		DB:       db,
	}))
}

func NewRedisQueueFromClient(client *goredis.Client) *RedisQueue {
	return &RedisQueue{
		client: client,
		key:    pendingKey,
	}
}

func (q *RedisQueue) Kind() string {
	return KindRedis
}

func (q *RedisQueue) Enqueue(ctx context.Context, runID string) error {
	_, err := q.client.ZAdd(ctx, q.key, &goredis.Z{
		Score:  score(time.Now()),
		Member: runID,
	}).Result()

	return err
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Item, error) {
	value, err := q.client.ZPopMin(ctx, q.key).Result()
	if err != nil {
		return nil, err
	}

	if len(value) == 0 {
		return nil, ErrNoPendingItem
	}

	member, ok := value[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("cannot cast item to string, actual type: %T", value[0].Member)
	}

	return &Item{RunID: member, Score: value[0].Score}, nil
}

func (q *RedisQueue) Requeue(ctx context.Context, item *Item) error {
	_, err := q.client.ZAdd(ctx, q.key, &goredis.Z{
		Score:  item.Score,
		Member: item.RunID,
	}).Result()

	return err
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.key).Result()
}

// Ping reports whether the redis server is reachable.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
