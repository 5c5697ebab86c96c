package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"peerlink/internal/config"
	"peerlink/internal/models"
	"peerlink/internal/services"
	"peerlink/internal/vectormath"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecommendationComputeWorker consumes compute and embedding jobs. Each
// compute job resolves the target, lazily backfills missing candidate
// embeddings with bounded concurrency, scores the pool, and replaces the
// target's cached ranking.
type RecommendationComputeWorker struct {
	cfg      *config.Config
	users    *services.UserService
	store    *services.RecommendationStore
	embedder *services.EmbeddingService
	queue    *services.QueueService
	metrics  *services.Metrics
}

// NewRecommendationComputeWorker creates a new compute worker.
// metrics may be nil (e.g. in tests).
func NewRecommendationComputeWorker(cfg *config.Config, users *services.UserService, store *services.RecommendationStore, embedder *services.EmbeddingService, queue *services.QueueService, metrics *services.Metrics) *RecommendationComputeWorker {
	return &RecommendationComputeWorker{
		cfg:      cfg,
		users:    users,
		store:    store,
		embedder: embedder,
		queue:    queue,
		metrics:  metrics,
	}
}

// Start consumes both queues until the context is cancelled. The embedding
// queue gets its own consumer so profile-refresh jobs are not starved by
// long compute runs.
func (w *RecommendationComputeWorker) Start(ctx context.Context) {
	go w.queue.Consume(ctx, services.QueueEmbed, 1, w.HandleEmbedJob)
	w.queue.Consume(ctx, services.QueueCompute, w.cfg.WorkerConcurrency, w.HandleComputeJob)
}

// HandleComputeJob processes one dequeued compute request.
func (w *RecommendationComputeWorker) HandleComputeJob(ctx context.Context, job *services.Job) error {
	start := time.Now()

	var payload models.ComputeJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid compute payload: %w", err)
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = w.cfg.BroadComputeLimit
	}

	logger := logPrefix(payload.UserID)

	// Step 1: resolve the target and make sure it carries an embedding
	target, targetID, done, err := w.resolveTarget(ctx, payload.UserID)
	if err != nil {
		w.countJob("failed")
		return err
	}
	if done {
		// Deleted/invalid target, or target embedding failed and an empty
		// result was committed. The job itself succeeded.
		w.countJob("empty")
		w.observeDuration(start)
		return nil
	}

	// Step 2: fetch the eligible candidate pool
	candidates, err := w.users.ListEligible(ctx, targetID, nil, 0, services.OrderByID)
	if err != nil {
		w.countJob("failed")
		return fmt.Errorf("failed to fetch candidates: %w", err)
	}
	log.Printf("👥 %s %d eligible candidates", logger, len(candidates))

	// Step 3: backfill missing embeddings, bounded concurrency
	w.backfillEmbeddings(ctx, candidates)

	// Step 4 + 5: score, rank, truncate, persist
	now := time.Now()
	window := time.Duration(w.cfg.RecencyWindowDays) * 24 * time.Hour
	items := RankCandidates(target, candidates, now, window, limit)

	upsertID := primitive.NilObjectID
	if targetID != nil {
		upsertID = *targetID
	}
	if err := w.store.Upsert(ctx, upsertID, items); err != nil {
		w.countJob("failed")
		return err
	}

	log.Printf("🏁 %s Persisted %d ranked items", logger, len(items))
	w.countJob("completed")
	w.observeDuration(start)
	return nil
}

// resolveTarget loads the target user and ensures it has an embedding,
// generating and persisting one when missing. done=true means the job
// should complete successfully without scoring: either the target does not
// exist, or its embedding failed and an empty result was committed so the
// cache is marked "computed, nothing found" instead of staying stale.
func (w *RecommendationComputeWorker) resolveTarget(ctx context.Context, userID string) (target *models.User, targetID *primitive.ObjectID, done bool, err error) {
	if userID == "" {
		return nil, nil, false, nil
	}

	id, parseErr := primitive.ObjectIDFromHex(userID)
	if parseErr != nil {
		log.Printf("⏭️ [COMPUTE] Invalid target id %q, completing with no result", userID)
		return nil, nil, true, nil
	}

	target, getErr := w.users.GetUserByID(ctx, id)
	if getErr == services.ErrUserNotFound {
		log.Printf("⏭️ [COMPUTE] Target %s no longer exists, completing with no result", userID)
		return nil, nil, true, nil
	}
	if getErr != nil {
		return nil, nil, false, getErr
	}

	if !target.HasEmbedding() {
		vector, embedErr := w.embedUser(ctx, target)
		if embedErr != nil {
			log.Printf("❌ [COMPUTE] Target %s embedding failed, committing empty result: %v", userID, embedErr)
			if upsertErr := w.store.Upsert(ctx, id, nil); upsertErr != nil {
				return nil, nil, false, upsertErr
			}
			return nil, nil, true, nil
		}
		target.Embedding = vector
	}

	return target, &id, false, nil
}

// backfillEmbeddings generates embeddings for candidates that lack one,
// capped at cfg.EmbedConcurrency in-flight calls. Successes are persisted
// immediately so future jobs skip them; failures only exclude the candidate
// from this cycle.
func (w *RecommendationComputeWorker) backfillEmbeddings(ctx context.Context, candidates []models.User) {
	sem := make(chan struct{}, w.cfg.EmbedConcurrency)
	var wg sync.WaitGroup

	for i := range candidates {
		if candidates[i].HasEmbedding() {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(candidate *models.User) {
			defer wg.Done()
			defer func() { <-sem }()

			vector, err := w.embedUser(ctx, candidate)
			if err != nil {
				log.Printf("⚠️ [COMPUTE] Skipping candidate %s this cycle, embedding failed: %v",
					candidate.ID.Hex(), err)
				return
			}
			candidate.Embedding = vector
		}(&candidates[i])
	}

	wg.Wait()
}

// embedUser generates and persists the embedding for one user.
func (w *RecommendationComputeWorker) embedUser(ctx context.Context, user *models.User) ([]float64, error) {
	vector, err := w.embedder.Embed(ctx, user.EmbeddingText())
	if err != nil {
		w.countEmbedding("failure")
		return nil, err
	}
	w.countEmbedding("success")

	if err := w.users.SaveEmbedding(ctx, user.ID, vector); err != nil {
		// The vector is still usable for this cycle; the next job will
		// regenerate it
		log.Printf("⚠️ [COMPUTE] Failed to persist embedding for %s: %v", user.ID.Hex(), err)
	}

	return vector, nil
}

// HandleEmbedJob (re)generates the embedding for a single user, e.g. after
// a profile edit. Errors propagate so the embedding queue retries.
func (w *RecommendationComputeWorker) HandleEmbedJob(ctx context.Context, job *services.Job) error {
	var payload models.EmbedJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("invalid embed payload: %w", err)
	}

	id, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		log.Printf("⏭️ [EMBED] Invalid user id %q, dropping job", payload.UserID)
		return nil
	}

	user, err := w.users.GetUserByID(ctx, id)
	if err == services.ErrUserNotFound {
		log.Printf("⏭️ [EMBED] User %s no longer exists, dropping job", payload.UserID)
		return nil
	}
	if err != nil {
		return err
	}

	vector, err := w.embedder.Embed(ctx, user.EmbeddingText())
	if err != nil {
		w.countEmbedding("failure")
		return fmt.Errorf("failed to embed user %s: %w", payload.UserID, err)
	}
	w.countEmbedding("success")

	return w.users.SaveEmbedding(ctx, id, vector)
}

// RecencyScore maps last activity to a linear [0,1] decay: 1 at "now",
// 0 at or beyond the window edge. A missing timestamp is maximally stale.
func RecencyScore(lastActiveAt *time.Time, now time.Time, window time.Duration) float64 {
	if lastActiveAt == nil || window <= 0 {
		return 0
	}

	elapsed := now.Sub(*lastActiveAt)
	if elapsed <= 0 {
		return 1
	}
	if elapsed >= window {
		return 0
	}
	return 1 - float64(elapsed)/float64(window)
}

// RankCandidates scores the candidate pool against the target (recency-only
// when target is nil), sorts descending by score, and truncates to limit.
// Candidates without an embedding, or whose vector cannot be compared to
// the target's, are excluded.
func RankCandidates(target *models.User, candidates []models.User, now time.Time, window time.Duration, limit int) []models.RecommendationItem {
	items := make([]models.RecommendationItem, 0, len(candidates))

	for i := range candidates {
		candidate := &candidates[i]
		if !candidate.HasEmbedding() {
			continue
		}

		recency := RecencyScore(candidate.LastActiveAt, now, window)

		var value float64
		if target == nil {
			value = recency
		} else {
			similarity, ok := vectormath.Cosine(target.Embedding, candidate.Embedding)
			if !ok {
				continue
			}
			value = vectormath.Score(similarity, recency, false)
		}

		items = append(items, models.RecommendationItem{
			UserID:              candidate.ID,
			RecommendationValue: vectormath.Sanitize(value),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RecommendationValue > items[j].RecommendationValue
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (w *RecommendationComputeWorker) countJob(result string) {
	if w.metrics != nil {
		w.metrics.ComputeJobs.WithLabelValues(result).Inc()
	}
}

func (w *RecommendationComputeWorker) observeDuration(start time.Time) {
	if w.metrics != nil {
		w.metrics.ComputeJobDuration.Observe(time.Since(start).Seconds())
	}
}

func (w *RecommendationComputeWorker) countEmbedding(status string) {
	if w.metrics != nil {
		w.metrics.EmbeddingCalls.WithLabelValues(status).Inc()
	}
}

func logPrefix(userID string) string {
	if userID == "" {
		return "[COMPUTE:general]"
	}
	return "[COMPUTE:" + userID + "]"
}
