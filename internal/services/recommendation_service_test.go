package services

import (
	"testing"
	"time"

	"peerlink/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func makeItems(n int) []models.RecommendationItem {
	items := make([]models.RecommendationItem, n)
	for i := 0; i < n; i++ {
		items[i] = models.RecommendationItem{
			UserID:              primitive.NewObjectID(),
			RecommendationValue: 1.0 - float64(i)*0.05,
		}
	}
	return items
}

func TestPaginateItemsFirstPage(t *testing.T) {
	items := makeItems(12)

	page, next := PaginateItems(items, nil, 5)

	if len(page) != 5 {
		t.Fatalf("Expected 5 items, got %d", len(page))
	}
	for i, item := range page {
		if item.UserID != items[i].UserID {
			t.Errorf("Item %d out of rank order", i)
		}
	}
	if next == nil {
		t.Fatal("Expected a next cursor with 12 cached items")
	}
	if *next != items[4].UserID {
		t.Errorf("Next cursor should be the 5th item's user id")
	}
}

func TestPaginateItemsAfterCursor(t *testing.T) {
	items := makeItems(12)
	cursor := items[4].UserID

	page, next := PaginateItems(items, &cursor, 5)

	if len(page) != 5 {
		t.Fatalf("Expected 5 items, got %d", len(page))
	}
	if page[0].UserID != items[5].UserID {
		t.Errorf("Page should begin after the cursor position")
	}
	if next == nil || *next != items[9].UserID {
		t.Errorf("Next cursor should be the last returned item's user id")
	}
}

func TestPaginateItemsLastPage(t *testing.T) {
	items := makeItems(12)
	cursor := items[9].UserID

	page, next := PaginateItems(items, &cursor, 5)

	if len(page) != 2 {
		t.Fatalf("Expected 2 remaining items, got %d", len(page))
	}
	if next != nil {
		t.Error("Next cursor must be nil when nothing follows the page")
	}
}

func TestPaginateItemsExactBoundary(t *testing.T) {
	items := makeItems(10)

	page, next := PaginateItems(items, nil, 10)

	if len(page) != 10 {
		t.Fatalf("Expected all 10 items, got %d", len(page))
	}
	if next != nil {
		t.Error("Next cursor must be nil when the page consumes the whole list")
	}
}

func TestPaginateItemsUnknownCursor(t *testing.T) {
	items := makeItems(6)
	unknown := primitive.NewObjectID()

	// Unknown cursor (e.g. the cache was replaced mid-pagination) restarts
	// from the head rather than erroring
	page, _ := PaginateItems(items, &unknown, 3)

	if len(page) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(page))
	}
	if page[0].UserID != items[0].UserID {
		t.Error("Unknown cursor should restart from the head")
	}
}

func TestPaginateItemsEmpty(t *testing.T) {
	page, next := PaginateItems(nil, nil, 5)
	if len(page) != 0 || next != nil {
		t.Error("Empty items must yield an empty page and nil cursor")
	}
}

func TestBuildUserPageHasMore(t *testing.T) {
	users := make([]models.User, 6)
	for i := range users {
		users[i] = models.User{ID: primitive.NewObjectID()}
	}

	// Caller fetched limit+1 = 6 rows for limit 5
	page := buildUserPage(users, 5)

	if len(page.Data) != 5 {
		t.Fatalf("Expected 5 rows, got %d", len(page.Data))
	}
	if page.NextCursor == nil {
		t.Fatal("Expected next cursor when an extra row was fetched")
	}
	if *page.NextCursor != users[4].ID.Hex() {
		t.Error("Next cursor should be the last returned row's id")
	}
}

func TestBuildUserPageNoMore(t *testing.T) {
	users := make([]models.User, 3)
	for i := range users {
		users[i] = models.User{ID: primitive.NewObjectID()}
	}

	page := buildUserPage(users, 5)

	if len(page.Data) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(page.Data))
	}
	if page.NextCursor != nil {
		t.Error("Next cursor must be nil when the source is exhausted")
	}
}

func TestRecommendationFreshness(t *testing.T) {
	ttl := 60 * time.Minute
	now := time.Now()

	tests := []struct {
		name      string
		createdAt time.Time
		fresh     bool
	}{
		{"Generated now", now, true},
		{"Just inside TTL", now.Add(-59 * time.Minute), true},
		{"One minute past TTL", now.Add(-61 * time.Minute), false},
		{"Days old", now.Add(-72 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &models.Recommendation{CreatedAt: tt.createdAt}
			if got := rec.IsFresh(now, ttl); got != tt.fresh {
				t.Errorf("Expected fresh=%v, got %v", tt.fresh, got)
			}
		})
	}
}
