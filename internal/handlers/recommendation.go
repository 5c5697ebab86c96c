package handlers

import (
	"log"
	"strconv"

	"peerlink/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecommendationHandler serves the recommendation read path
type RecommendationHandler struct {
	recommendations *services.RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendations *services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations}
}

// Get returns one page of recommendations.
// GET /api/recommendations/:userId?  (no userId = general listing)
// Query: limit (1..max, default from config), cursor (opaque id)
func (h *RecommendationHandler) Get(c *fiber.Ctx) error {
	var userID *primitive.ObjectID
	if raw := c.Params("userId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		userID = &id
	}

	var cursor *primitive.ObjectID
	if raw := c.Query("cursor"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid cursor",
			})
		}
		cursor = &id
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid limit",
			})
		}
		limit = parsed
	}

	page, err := h.recommendations.GetRecommendations(c.Context(), userID, cursor, limit)
	if err == services.ErrUserNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		log.Printf("❌ Failed to get recommendations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get recommendations",
		})
	}

	return c.JSON(fiber.Map{
		"data":       page.Data,
		"nextCursor": page.NextCursor,
	})
}
