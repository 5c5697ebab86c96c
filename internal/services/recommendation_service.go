package services

import (
	"context"
	"log"
	"time"

	"peerlink/internal/config"
	"peerlink/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EnqueueDebounceWindow is how long identical enqueue attempts from read
// traffic are coalesced locally before hitting Redis again.
const EnqueueDebounceWindow = 30 * time.Second

// RecommendationPage is one page of the recommendation read path.
type RecommendationPage struct {
	Data       []models.CandidateResponse `json:"data"`
	NextCursor *string                    `json:"next_cursor"`
}

// RecommendationService is the read path: serves fresh cached rankings with
// cursor pagination, or a recency-ordered fallback while a background
// compute job repopulates the cache.
type RecommendationService struct {
	cfg      *config.Config
	users    *UserService
	store    *RecommendationStore
	queue    *QueueService
	metrics  *Metrics
	debounce *gocache.Cache
}

// NewRecommendationService creates a new recommendation service.
// metrics may be nil (e.g. in tests).
func NewRecommendationService(cfg *config.Config, users *UserService, store *RecommendationStore, queue *QueueService, metrics *Metrics) *RecommendationService {
	return &RecommendationService{
		cfg:      cfg,
		users:    users,
		store:    store,
		queue:    queue,
		metrics:  metrics,
		debounce: gocache.New(EnqueueDebounceWindow, 2*EnqueueDebounceWindow),
	}
}

// GetRecommendations serves one page of recommendations. userID nil means a
// general non-personalized listing. cursor nil means the first page.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID, cursor *primitive.ObjectID, limit int) (*RecommendationPage, error) {
	limit = s.clampLimit(limit)

	if userID == nil {
		return s.generalListing(ctx, cursor, limit)
	}

	// A genuinely unknown target is a not-found error, unlike a known
	// target with no recommendations yet
	if _, err := s.users.GetUserByID(ctx, *userID); err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, *userID)
	if err != nil {
		return nil, err
	}

	if rec == nil || !rec.IsFresh(time.Now(), s.cfg.CacheTTL) {
		s.countCacheRead(cacheOutcome(rec))
		s.enqueueCompute(ctx, userID.Hex())
		return s.fallbackListing(ctx, userID, cursor, limit)
	}

	s.countCacheRead("fresh")
	return s.cachedPage(ctx, rec, cursor, limit)
}

// generalListing pages the eligible pool by id and kicks off a broad
// background compute so a cache gets populated for next time.
func (s *RecommendationService) generalListing(ctx context.Context, cursor *primitive.ObjectID, limit int) (*RecommendationPage, error) {
	users, err := s.users.ListEligible(ctx, nil, cursor, limit+1, OrderByID)
	if err != nil {
		return nil, err
	}

	s.enqueueCompute(ctx, "")
	return buildUserPage(users, limit), nil
}

// fallbackListing serves recently-active eligible users while the target's
// compute job is pending. Never blocks on the job.
func (s *RecommendationService) fallbackListing(ctx context.Context, userID, cursor *primitive.ObjectID, limit int) (*RecommendationPage, error) {
	users, err := s.users.ListEligible(ctx, userID, cursor, limit+1, OrderByRecency)
	if err != nil {
		return nil, err
	}

	return buildUserPage(users, limit), nil
}

// cachedPage paginates within the cached items array and enriches the page
// with profile data, preserving rank order.
func (s *RecommendationService) cachedPage(ctx context.Context, rec *models.Recommendation, cursor *primitive.ObjectID, limit int) (*RecommendationPage, error) {
	page, nextCursor := PaginateItems(rec.Items, cursor, limit)

	ids := make([]primitive.ObjectID, 0, len(page))
	for _, item := range page {
		ids = append(ids, item.UserID)
	}

	profiles, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Compose rows in cached rank order, not store return order. Profiles
	// deleted since the compute are skipped.
	data := make([]models.CandidateResponse, 0, len(page))
	for _, item := range page {
		profile, ok := profiles[item.UserID]
		if !ok {
			continue
		}
		row := profile.ToCandidateResponse()
		value := item.RecommendationValue
		row.RecommendationValue = &value
		data = append(data, row)
	}

	result := &RecommendationPage{Data: data}
	if nextCursor != nil {
		hex := nextCursor.Hex()
		result.NextCursor = &hex
	}
	return result, nil
}

// enqueueCompute asks for a background recompute, coalescing repeated
// attempts per key within the local debounce window.
func (s *RecommendationService) enqueueCompute(ctx context.Context, userID string) {
	key := ComputeJobKey(userID)
	if err := s.debounce.Add(key, true, gocache.DefaultExpiration); err != nil {
		return // enqueued recently, let the pending job do its work
	}

	job := models.ComputeJob{UserID: userID, Limit: s.cfg.BroadComputeLimit}
	if err := s.queue.Enqueue(ctx, QueueCompute, JobNameCompute, job, ComputeJobOptions(key)); err != nil {
		log.Printf("⚠️ [RECOMMEND] Failed to enqueue compute job for %q: %v", key, err)
		return
	}

	log.Printf("📬 [RECOMMEND] Enqueued compute job %q (limit %d)", key, s.cfg.BroadComputeLimit)
}

func (s *RecommendationService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	return limit
}

func (s *RecommendationService) countCacheRead(outcome string) {
	if s.metrics != nil {
		s.metrics.CacheReads.WithLabelValues(outcome).Inc()
	}
}

func cacheOutcome(rec *models.Recommendation) string {
	if rec == nil {
		return "missing"
	}
	return "stale"
}

// PaginateItems slices one page out of a cached items array. The cursor is
// matched against item user ids; the page starts at the element after the
// match (or at the head when the cursor is nil or unknown). The returned
// next cursor is the last returned item's user id, nil when nothing
// follows the page.
func PaginateItems(items []models.RecommendationItem, cursor *primitive.ObjectID, limit int) ([]models.RecommendationItem, *primitive.ObjectID) {
	start := 0
	if cursor != nil {
		for i, item := range items {
			if item.UserID == *cursor {
				start = i + 1
				break
			}
		}
	}

	if start >= len(items) {
		return []models.RecommendationItem{}, nil
	}

	end := start + limit
	hasMore := end < len(items)
	if !hasMore {
		end = len(items)
	}

	page := items[start:end]
	if !hasMore || len(page) == 0 {
		return page, nil
	}

	next := page[len(page)-1].UserID
	return page, &next
}

// buildUserPage trims a limit+1 row fetch to one page with has-more
// detection, deriving the next cursor from the last returned row's id.
func buildUserPage(users []models.User, limit int) *RecommendationPage {
	hasMore := len(users) > limit
	if hasMore {
		users = users[:limit]
	}

	data := make([]models.CandidateResponse, 0, len(users))
	for i := range users {
		data = append(data, users[i].ToCandidateResponse())
	}

	page := &RecommendationPage{Data: data}
	if hasMore && len(users) > 0 {
		hex := users[len(users)-1].ID.Hex()
		page.NextCursor = &hex
	}
	return page
}
