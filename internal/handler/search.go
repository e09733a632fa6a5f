package handler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-context-gateway/internal/port"
	"github.com/arturoeanton/go-context-gateway/internal/service"
)

// SearchHandler exposes raw similarity search and manual index triggers.
type SearchHandler struct {
	retrieval *service.RetrievalService
	queue     *service.JobQueue
	reposBase string
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(retrieval *service.RetrievalService, queue *service.JobQueue, reposBase string) *SearchHandler {
	return &SearchHandler{retrieval: retrieval, queue: queue, reposBase: reposBase}
}

// Register sets up search and indexing routes.
func (h *SearchHandler) Register(router fiber.Router) {
	router.Post("/search", h.Search)
	router.Post("/index", h.TriggerIndex)
}

// Search returns the top scored chunks for a query without composing an
// answer. Useful for clients that do their own prompting.
func (h *SearchHandler) Search(c fiber.Ctx) error {
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
	return c.JSON(result)
}

// TriggerIndex enqueues an indexing run over a repository checkout. Without
// changed_files the whole tree is walked (still diffing against stored
// records); with force set, every file is re-embedded even if its content
// hash is unchanged.
func (h *SearchHandler) TriggerIndex(c fiber.Ctx) error {
	var body struct {
		Collection   string   `json:"collection"`
		Repo         string   `json:"repo"`
		ChangedFiles []string `json:"changed_files"`
		Force        bool     `json:"force"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Collection == "" || body.Repo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection and repo are required"})
	}

	repoPath, err := resolveRepoPath(h.reposBase, body.Repo)
	if err != nil {
		return errorJSON(c, err)
	}

	job, err := h.queue.Enqueue(body.Collection, repoPath, body.ChangedFiles, nil, body.Force)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// resolveRepoPath joins a repo name onto the checkout base, rejecting names
// that would escape it.
func resolveRepoPath(base, repo string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(repo))
	if cleaned == "." || cleaned == ".." || filepath.IsAbs(cleaned) ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("repo %q: %w", repo, port.ErrUnknownRepo)
	}
	return filepath.Join(base, cleaned), nil
}
