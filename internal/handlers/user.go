package handlers

import (
	"log"

	"peerlink/internal/models"
	"peerlink/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserHandler handles user-facing maintenance endpoints for this service
type UserHandler struct {
	queue *services.QueueService
}

// NewUserHandler creates a new user handler
func NewUserHandler(queue *services.QueueService) *UserHandler {
	return &UserHandler{queue: queue}
}

// RefreshEmbedding enqueues an embedding refresh after a profile edit.
// POST /api/users/:userId/embedding/refresh
func (h *UserHandler) RefreshEmbedding(c *fiber.Ctx) error {
	raw := c.Params("userId")
	if _, err := primitive.ObjectIDFromHex(raw); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	job := models.EmbedJob{UserID: raw}
	if err := h.queue.Enqueue(c.Context(), services.QueueEmbed, services.JobNameEmbed, job, services.EmbedJobOptions()); err != nil {
		log.Printf("❌ Failed to enqueue embed job for user %s: %v", raw, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to enqueue embedding refresh",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "queued",
	})
}
