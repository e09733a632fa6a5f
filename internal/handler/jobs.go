package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-context-gateway/internal/service"
)

// JobsHandler exposes indexing job status.
type JobsHandler struct {
	queue *service.JobQueue
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(queue *service.JobQueue) *JobsHandler {
	return &JobsHandler{queue: queue}
}

// Register sets up job routes.
func (h *JobsHandler) Register(router fiber.Router) {
	router.Get("/jobs/:id", h.GetStatus)
}

// GetStatus returns the current state of one indexing job. Terminal jobs
// disappear after the retention window, after which this returns 404.
func (h *JobsHandler) GetStatus(c fiber.Ctx) error {
	job, err := h.queue.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(job)
}
