package handler

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-context-gateway/internal/adapter/memory"
)

// MemoryHandler proxies persistent-memory operations to the external
// agent-memory service.
type MemoryHandler struct {
	client *memory.Client
}

// NewMemoryHandler creates a new memory handler.
func NewMemoryHandler(client *memory.Client) *MemoryHandler {
	return &MemoryHandler{client: client}
}

// Register sets up the memory route.
func (h *MemoryHandler) Register(router fiber.Router) {
	router.Post("/memory", h.Op)
}

// Op dispatches one memory operation. Remote failures are relayed with the
// service's own status code and body rather than collapsed into a 500.
func (h *MemoryHandler) Op(c fiber.Ctx) error {
	var body struct {
		Op    string          `json:"op"`
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
		Query string          `json:"query"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var (
		result json.RawMessage
		err    error
	)
	switch body.Op {
	case "get":
		result, err = h.client.Get(c.Context(), body.Key)
	case "put":
		result, err = h.client.Put(c.Context(), body.Key, body.Value)
	case "delete":
		result, err = h.client.Delete(c.Context(), body.Key)
	case "search":
		result, err = h.client.Search(c.Context(), body.Query)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown op"})
	}
	if err != nil {
		var svcErr *memory.ServiceError
		if errors.As(err, &svcErr) {
			c.Status(svcErr.StatusCode)
			c.Set("Content-Type", "application/json")
			return c.SendString(svcErr.Body)
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "application/json")
	return c.Send(result)
}
