package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Grigoriy457/rocketry/src/retry"
)

// RedisStore logs events to a Redis stream, one stream per task name
// under a shared key prefix. Streams give an append-only, ordered log
// for free (XADD) and range queries via XRANGE, which is the closest
// Redis primitive to the engine's append/get/latest contract.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	breaker *retry.CircuitBreaker
}

func OpenRedis(addr, password string, db int, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rocketry:events:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	breaker := retry.NewCircuitBreaker(retry.DefaultCircuitBreakerConfig("redis-history"))
	return &RedisStore{client: client, prefix: prefix, breaker: breaker}
}

func (s *RedisStore) stream(taskName string) string {
	return s.prefix + taskName
}

// Log appends ev through a circuit breaker: once enough consecutive
// XADD failures accumulate, further Log calls fail fast with
// ErrCircuitOpen instead of blocking the scheduler's cycle on a Redis
// that is down, until the breaker's timeout lets a trial request
// through again.
func (s *RedisStore) Log(ctx context.Context, ev Event) error {
	values := map[string]any{
		"action":    string(ev.Action),
		"run_id":    ev.RunID,
		"detail":    ev.Detail,
		"timestamp": ev.Timestamp.UnixNano(),
	}
	err := s.breaker.Execute(func() error {
		return s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream(ev.TaskName),
			Values: values,
		}).Err()
	})
	if err != nil {
		return fmt.Errorf("history: redis XADD: %w", err)
	}
	return nil
}

func eventFromMessage(taskName string, msg redis.XMessage) (Event, error) {
	ev := Event{TaskName: taskName}
	if v, ok := msg.Values["action"].(string); ok {
		ev.Action = Action(v)
	}
	if v, ok := msg.Values["run_id"].(string); ok {
		ev.RunID = v
	}
	if v, ok := msg.Values["detail"].(string); ok {
		ev.Detail = v
	}
	if v, ok := msg.Values["timestamp"].(string); ok {
		nanos, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("history: parse redis timestamp: %w", err)
		}
		ev.Timestamp = time.Unix(0, nanos)
	}
	return ev, nil
}

// Get scans the named task's stream (or, if TaskName is empty, is not
// supported — Redis streams are per-task, so cross-task queries require
// a known task name).
func (s *RedisStore) Get(ctx context.Context, filter Filter) ([]Event, error) {
	if filter.TaskName == "" {
		return nil, fmt.Errorf("history: redis store requires Filter.TaskName")
	}
	start, end := "-", "+"
	if filter.After != nil {
		start = strconv.FormatInt(filter.After.UnixMilli(), 10)
	}
	if filter.Before != nil {
		end = strconv.FormatInt(filter.Before.UnixMilli()-1, 10)
	}
	msgs, err := s.client.XRange(ctx, s.stream(filter.TaskName), start, end).Result()
	if err != nil {
		return nil, fmt.Errorf("history: redis XRANGE: %w", err)
	}
	var out []Event
	for _, msg := range msgs {
		ev, err := eventFromMessage(filter.TaskName, msg)
		if err != nil {
			return nil, err
		}
		if filter.Action != "" && ev.Action != filter.Action {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *RedisStore) Latest(ctx context.Context, taskName string, action Action) (Event, bool, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream(taskName), "+", "-", 64).Result()
	if err != nil {
		return Event{}, false, fmt.Errorf("history: redis XREVRANGE: %w", err)
	}
	for _, msg := range msgs {
		ev, err := eventFromMessage(taskName, msg)
		if err != nil {
			return Event{}, false, err
		}
		if action == "" || ev.Action == action {
			return ev, true, nil
		}
	}
	return Event{}, false, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

// Ping verifies connectivity to the Redis server, used by the HTTP
// API's health check.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
