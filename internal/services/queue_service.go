package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Queue names
const (
	QueueCompute = "peerlink:queue:compute"
	QueueEmbed   = "peerlink:queue:embed"
)

// Job names
const (
	JobNameCompute = "compute"
	JobNameEmbed   = "embed"
)

// JobOptions controls retry behavior and in-flight deduplication for a job.
type JobOptions struct {
	Attempts  int           // total attempts; 1 means no retry
	Backoff   time.Duration // exponential backoff base between attempts
	UniqueKey string        // collapses duplicate enqueues while a job is pending
}

// ComputeJobOptions returns the compute queue policy: fire-and-dequeue, no
// retry. A failed compute is healed by the next read's staleness check.
func ComputeJobOptions(uniqueKey string) JobOptions {
	return JobOptions{Attempts: 1, UniqueKey: uniqueKey}
}

// EmbedJobOptions returns the embedding queue policy: 3 attempts with
// exponential backoff from a 5s base.
func EmbedJobOptions() JobOptions {
	return JobOptions{Attempts: 3, Backoff: 5 * time.Second}
}

// ComputeJobKey derives the stable dedup key for a compute request so
// concurrent identical requests collapse to one pending job.
func ComputeJobKey(userID string) string {
	if userID == "" {
		return "compute:general"
	}
	return "compute:" + userID
}

// Job is the envelope stored on a queue list.
type Job struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	BackoffMS   int64           `json:"backoff_ms"`
	UniqueKey   string          `json:"unique_key,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// JobHandler processes a single dequeued job.
type JobHandler func(ctx context.Context, job *Job) error

// QueueService is a Redis list-backed job queue with per-job processing
// locks, optional retry with exponential backoff (via a delayed sorted set),
// and unique-key deduplication of pending jobs.
type QueueService struct {
	redis   *RedisService
	lockTTL time.Duration
}

// NewQueueService creates a new queue service
func NewQueueService(redisService *RedisService, lockTTL time.Duration) *QueueService {
	return &QueueService{
		redis:   redisService,
		lockTTL: lockTTL,
	}
}

// Enqueue pushes a job onto the named queue. When the options carry a
// unique key and an identical job is already pending, the enqueue is
// silently dropped.
func (s *QueueService) Enqueue(ctx context.Context, queue, name string, payload interface{}, opts JobOptions) error {
	if opts.UniqueKey != "" {
		acquired, err := s.redis.SetNX(ctx, pendingKey(queue, opts.UniqueKey), "1", s.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to check pending key: %w", err)
		}
		if !acquired {
			log.Printf("⏭️ [QUEUE] Job %s already pending on %s, skipping enqueue", opts.UniqueKey, queue)
			return nil
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:          uuid.NewString(),
		Name:        name,
		Payload:     data,
		Attempt:     0,
		MaxAttempts: opts.Attempts,
		BackoffMS:   opts.Backoff.Milliseconds(),
		UniqueKey:   opts.UniqueKey,
		EnqueuedAt:  time.Now(),
	}

	envelope, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job envelope: %w", err)
	}

	if err := s.redis.LPush(ctx, queue, envelope); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// Consume runs `concurrency` worker goroutines against the named queue and
// blocks until the context is cancelled.
func (s *QueueService) Consume(ctx context.Context, queue string, concurrency int, handler JobHandler) {
	if concurrency < 1 {
		concurrency = 1
	}

	log.Printf("🚀 [QUEUE] Consuming %s with concurrency %d", queue, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.consumeLoop(ctx, queue, handler)
		}()
	}
	wg.Wait()
}

func (s *QueueService) consumeLoop(ctx context.Context, queue string, handler JobHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Promote delayed retries whose backoff has elapsed
		s.promoteDelayed(ctx, queue)

		result, err := s.redis.BRPop(ctx, 5*time.Second, queue)
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("⚠️ [QUEUE] Failed to pop from %s: %v", queue, err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("⚠️ [QUEUE] Dropping malformed job on %s: %v", queue, err)
			continue
		}

		s.processJob(ctx, queue, &job, handler)
	}
}

// processJob runs the handler under a per-job processing lock so a job
// requeued by a crashed worker is not handled twice concurrently.
func (s *QueueService) processJob(ctx context.Context, queue string, job *Job, handler JobHandler) {
	lockValue := uuid.NewString()
	lockKey := fmt.Sprintf("%s:lock:%s", queue, job.ID)

	acquired, err := s.redis.AcquireLock(ctx, lockKey, lockValue, s.lockTTL)
	if err != nil {
		log.Printf("⚠️ [QUEUE] Failed to acquire lock for job %s: %v", job.ID, err)
		return
	}
	if !acquired {
		log.Printf("⏭️ [QUEUE] Job %s locked by another worker, skipping", job.ID)
		return
	}
	defer func() {
		if _, err := s.redis.ReleaseLock(lockKey, lockValue); err != nil {
			log.Printf("⚠️ [QUEUE] Failed to release lock for job %s: %v", job.ID, err)
		}
	}()

	// The job is active now; allow a fresh identical request to queue behind it
	if job.UniqueKey != "" {
		if err := s.redis.Delete(ctx, pendingKey(queue, job.UniqueKey)); err != nil {
			log.Printf("⚠️ [QUEUE] Failed to clear pending key %s: %v", job.UniqueKey, err)
		}
	}

	start := time.Now()
	if err := handler(ctx, job); err != nil {
		s.handleFailure(ctx, queue, job, err)
		return
	}

	log.Printf("✅ [QUEUE] Job %s (%s) completed in %v", job.ID, job.Name, time.Since(start))
}

// handleFailure retries a job with exponential backoff when its options
// allow, otherwise drops it. Dropped compute jobs are fine: the next stale
// read re-enqueues on its own.
func (s *QueueService) handleFailure(ctx context.Context, queue string, job *Job, jobErr error) {
	job.Attempt++
	if job.Attempt >= job.MaxAttempts {
		log.Printf("❌ [QUEUE] Job %s (%s) failed permanently after %d attempt(s): %v",
			job.ID, job.Name, job.Attempt, jobErr)
		return
	}

	delay := RetryDelay(job.Attempt, time.Duration(job.BackoffMS)*time.Millisecond)
	log.Printf("🔁 [QUEUE] Job %s (%s) failed (attempt %d/%d), retrying in %v: %v",
		job.ID, job.Name, job.Attempt, job.MaxAttempts, delay, jobErr)

	envelope, err := json.Marshal(job)
	if err != nil {
		log.Printf("❌ [QUEUE] Failed to marshal retry for job %s: %v", job.ID, err)
		return
	}

	if err := s.redis.ZAddDelayed(ctx, delayedKey(queue), time.Now().Add(delay), string(envelope)); err != nil {
		log.Printf("❌ [QUEUE] Failed to schedule retry for job %s: %v", job.ID, err)
	}
}

// promoteDelayed moves due retries from the delayed set back onto the queue
func (s *QueueService) promoteDelayed(ctx context.Context, queue string) {
	ready, err := s.redis.ZPopReady(ctx, delayedKey(queue), time.Now())
	if err != nil {
		log.Printf("⚠️ [QUEUE] Failed to promote delayed jobs on %s: %v", queue, err)
		return
	}
	for _, envelope := range ready {
		if err := s.redis.LPush(ctx, queue, envelope); err != nil {
			log.Printf("⚠️ [QUEUE] Failed to requeue delayed job on %s: %v", queue, err)
		}
	}
}

// RetryDelay returns the exponential backoff delay before the given attempt
// (attempt 1 = first retry).
func RetryDelay(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

func pendingKey(queue, uniqueKey string) string {
	return fmt.Sprintf("%s:pending:%s", queue, uniqueKey)
}

func delayedKey(queue string) string {
	return fmt.Sprintf("%s:delayed", queue)
}
