package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
	"github.com/arturoeanton/go-context-gateway/internal/service"
)

// headersOfInterest are the provider headers the parsers look at. Fiber does
// not expose the full header map through the adapter interface, so they are
// collected explicitly.
var headersOfInterest = []string{
	"X-Github-Event",
	"X-Hub-Signature-256",
	"X-Gitlab-Event",
	"X-Gitlab-Token",
}

// WebhookHandler turns provider push webhooks into incremental index jobs.
// These routes authenticate with the provider's own signature or token, not
// the gateway bearer token.
type WebhookHandler struct {
	parsers   port.WebhookParserRegistry
	queue     *service.JobQueue
	secretFor func(repo string) string
	reposBase string
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(parsers port.WebhookParserRegistry, queue *service.JobQueue, secretFor func(repo string) string, reposBase string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		parsers:   parsers,
		queue:     queue,
		secretFor: secretFor,
		reposBase: reposBase,
		logger:    logger,
	}
}

// Register sets up the webhook route. The wildcard absorbs repo names that
// contain slashes (owner/repo).
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/webhooks/:provider/*", h.Receive)
}

// Receive verifies, parses and enqueues one push event. Non-push events are
// acknowledged with 200 and no job so providers do not retry them.
func (h *WebhookHandler) Receive(c fiber.Ctx) error {
	provider := c.Params("provider")
	repoName := c.Params("*")

	parser, ok := h.parsers[provider]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown provider"})
	}

	repoPath, err := resolveRepoPath(h.reposBase, repoName)
	if err != nil {
		return errorJSON(c, err)
	}

	secret := h.secretFor(repoName)
	if secret == "" {
		h.logger.Warn("webhook for repo without a secret", "provider", provider, "repo", repoName)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no webhook secret configured"})
	}

	headers := make(map[string]string, len(headersOfInterest))
	for _, name := range headersOfInterest {
		if v := c.Get(name); v != "" {
			headers[name] = v
		}
	}
	body := c.Body()

	if err := parser.Verify(secret, headers, body); err != nil {
		h.logger.Warn("webhook rejected", "provider", provider, "repo", repoName, "error", err)
		return errorJSON(c, err)
	}

	event, err := parser.Parse(headers, body)
	if err != nil {
		if errors.Is(err, port.ErrUnsupportedEvent) {
			return c.JSON(fiber.Map{"status": "ignored"})
		}
		return errorJSON(c, err)
	}
	if event.Empty() {
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	collection := domain.CollectionForRepo(repoName)
	job, err := h.queue.Enqueue(collection, repoPath, event.Changed, event.Deleted, false)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}

	h.logger.Info("webhook accepted",
		"provider", provider,
		"repo", repoName,
		"branch", event.Branch,
		"commit", event.Commit,
		"job_id", job.ID,
	)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": job.ID,
		"status": job.Status,
	})
}
