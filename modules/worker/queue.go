package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"knolling-factory/modules/common/model"
	redisClient "knolling-factory/modules/common/redis"
)

// ErrResultNotFound - 결과 키가 없거나 만료됨
var ErrResultNotFound = errors.New("job result not found")

// Job 상태
const (
	JobQueued  = "QUEUED"
	JobRunning = "RUNNING"
	JobSuccess = "SUCCESS"
	JobFailed  = "FAILED"
)

// Job - 큐에 들어가는 요청 하나
type Job struct {
	RequestID  string    `json:"request_id"`
	Theme      string    `json:"theme"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ResultRecord - knolling:result:<id>에 저장되는 상태/결과
type ResultRecord struct {
	RequestID string           `json:"request_id"`
	Theme     string           `json:"theme"`
	Status    string           `json:"status"`
	Result    *model.JobResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Queue - 작업 큐 + 결과 저장 + 진행 상황 채널
type Queue interface {
	Push(ctx context.Context, job Job) (int64, error)
	// Pop - timeout 동안 작업이 없으면 nil, nil
	Pop(ctx context.Context, timeout time.Duration) (*Job, error)
	Publish(ctx context.Context, requestID, text string) error
	SaveResult(ctx context.Context, rec ResultRecord) error
	LoadResult(ctx context.Context, requestID string) (*ResultRecord, error)
	Subscribe(ctx context.Context, requestID string) (<-chan string, func() error)
}

// RedisQueue - go-redis 기반 Queue
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

// Push - LPUSH 후 큐 길이를 대기 순번으로 반환
func (q *RedisQueue) Push(ctx context.Context, job Job) (int64, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.rdb.LPush(ctx, redisClient.JobQueueKey, payload).Err(); err != nil {
		return 0, fmt.Errorf("redis LPUSH failed: %w", err)
	}
	queueLen, err := q.rdb.LLen(ctx, redisClient.JobQueueKey).Result()
	if err != nil {
		return 0, nil
	}
	return queueLen, nil
}

// Pop - BRPOP (blocking right pop)
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.rdb.BRPop(ctx, timeout, redisClient.JobQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis BRPOP failed: %w", err)
	}

	// result[0]은 큐 이름, result[1]이 payload
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("invalid job payload %q: %w", result[1], err)
	}
	return &job, nil
}

func (q *RedisQueue) Publish(ctx context.Context, requestID, text string) error {
	return q.rdb.Publish(ctx, redisClient.ProgressChannel(requestID), text).Err()
}

func (q *RedisQueue) SaveResult(ctx context.Context, rec ResultRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return q.rdb.Set(ctx, redisClient.ResultKey(rec.RequestID), payload, redisClient.ResultTTL).Err()
}

func (q *RedisQueue) LoadResult(ctx context.Context, requestID string) (*ResultRecord, error) {
	raw, err := q.rdb.Get(ctx, redisClient.ResultKey(requestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}
	var rec ResultRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &rec, nil
}

// Subscribe - 진행 상황 채널 구독. 반환된 close 함수로 해제
func (q *RedisQueue) Subscribe(ctx context.Context, requestID string) (<-chan string, func() error) {
	pubsub := q.rdb.Subscribe(ctx, redisClient.ProgressChannel(requestID))
	out := make(chan string, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close
}
