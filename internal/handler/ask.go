package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-context-gateway/internal/service"
)

// AskHandler answers questions about an indexed collection with citations.
type AskHandler struct {
	retrieval *service.RetrievalService
	composer  *service.Composer
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(retrieval *service.RetrievalService, composer *service.Composer) *AskHandler {
	return &AskHandler{retrieval: retrieval, composer: composer}
}

// Register sets up the ask route.
func (h *AskHandler) Register(router fiber.Router) {
	router.Post("/ask", h.Ask)
}

// Ask retrieves the most relevant chunks for the question and composes a
// grounded answer. An empty retrieval still succeeds with a "nothing found"
// answer and no citations.
func (h *AskHandler) Ask(c fiber.Ctx) error {
	var body struct {
		Collection string `json:"collection"`
		Query      string `json:"query"`
		TopK       int    `json:"top_k"`
		PathPrefix string `json:"path_prefix"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Collection == "" || body.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection and query are required"})
	}

	result, err := h.retrieval.Search(c.Context(), body.Query, body.Collection, body.TopK, body.PathPrefix)
	if err != nil {
		return errorJSON(c, err)
	}

	answer, err := h.composer.Compose(c.Context(), body.Query, result.Chunks)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"answer":      answer.Text,
		"citations":   answer.Citations,
		"chunks":      result.Chunks,
		"model":       answer.Model,
		"tokens_used": answer.TokensUsed,
		"latency_ms":  result.LatencyMS,
	})
}
