package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-context-gateway/internal/adapter/webhook"
	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
	"github.com/arturoeanton/go-context-gateway/internal/service"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, *domain.IndexJob) (domain.IndexStats, error) {
	return domain.IndexStats{}, nil
}

func newWebhookApp(t *testing.T) (*fiber.App, *service.JobQueue) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	queue := service.NewJobQueue(noopRunner{}, time.Hour, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	queue.Start(ctx)

	parsers := port.WebhookParserRegistry{
		"github": webhook.NewGitHubParser(),
		"gitlab": webhook.NewGitLabParser(),
	}
	secretFor := func(repo string) string {
		if repo == "acme/widgets" {
			return "s3cret"
		}
		return ""
	}

	app := fiber.New()
	NewWebhookHandler(parsers, queue, secretFor, t.TempDir(), logger).Register(app)
	return app, queue
}

func githubRequest(event, signature string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github/acme/widgets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Github-Event", event)
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	return req
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

var pushBody = []byte(`{
	"ref": "refs/heads/main",
	"repository": {"full_name": "acme/widgets"},
	"head_commit": {"id": "abc123"},
	"commits": [{"added": ["a.go"], "modified": [], "removed": ["b.go"]}]
}`)

func TestWebhookValidPushEnqueuesJob(t *testing.T) {
	app, queue := newWebhookApp(t)

	resp, err := app.Test(githubRequest("push", signBody("s3cret", pushBody), pushBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.JobID)

	job, err := queue.Get(out.JobID)
	require.NoError(t, err)
	assert.Equal(t, "acme-widgets", job.Collection)
	assert.Equal(t, []string{"a.go"}, job.FilesChanged)
	assert.Equal(t, []string{"b.go"}, job.FilesDeleted)
}

func TestWebhookBadSignatureRejected(t *testing.T) {
	app, _ := newWebhookApp(t)

	resp, err := app.Test(githubRequest("push", signBody("wrong", pushBody), pushBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(githubRequest("push", "", pushBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookNonPushAcknowledgedWithoutJob(t *testing.T) {
	app, _ := newWebhookApp(t)

	body := []byte(`{"zen": "Keep it simple."}`)
	resp, err := app.Test(githubRequest("ping", signBody("s3cret", body), body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "ignored")
}

func TestWebhookRepoWithoutSecretRejected(t *testing.T) {
	app, _ := newWebhookApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github/unknown/repo", bytes.NewReader(pushBody))
	req.Header.Set("X-Github-Event", "push")
	req.Header.Set("X-Hub-Signature-256", signBody("s3cret", pushBody))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookUnknownProvider(t *testing.T) {
	app, _ := newWebhookApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/bitbucket/acme/widgets", bytes.NewReader(pushBody))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhookPathTraversalRejected(t *testing.T) {
	app, _ := newWebhookApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github/../../etc", bytes.NewReader(pushBody))
	req.Header.Set("X-Github-Event", "push")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, http.StatusAccepted, resp.StatusCode)
}

func TestResolveRepoPath(t *testing.T) {
	_, err := resolveRepoPath("/base", "../escape")
	assert.Error(t, err)
	_, err = resolveRepoPath("/base", "/abs/path")
	assert.Error(t, err)

	path, err := resolveRepoPath("/base", "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "/base/acme/widgets", path)
}
