package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

// GitHub header names.
const (
	GitHubEventHeader     = "X-Github-Event"
	GitHubSignatureHeader = "X-Hub-Signature-256"
)

// GitHubParser validates and normalizes GitHub webhook deliveries.
type GitHubParser struct{}

// NewGitHubParser creates a GitHub webhook parser.
func NewGitHubParser() *GitHubParser {
	return &GitHubParser{}
}

// Provider returns the provider key used in the webhook URL.
func (p *GitHubParser) Provider() string { return "github" }

// Verify checks the X-Hub-Signature-256 header: "sha256=" followed by the
// hex HMAC-SHA256 of the raw body under the shared secret. The comparison is
// constant-time.
func (p *GitHubParser) Verify(secret string, headers map[string]string, body []byte) error {
	if secret == "" {
		return fmt.Errorf("no webhook secret configured: %w", port.ErrInvalidSignature)
	}

	signature := headers[GitHubSignatureHeader]
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("missing or malformed signature header: %w", port.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return port.ErrInvalidSignature
	}
	return nil
}

// githubPushPayload is the subset of a GitHub push event the gateway needs.
type githubPushPayload struct {
	Ref        string `json:"ref"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	HeadCommit struct {
		ID string `json:"id"`
	} `json:"head_commit"`
	Commits []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"commits"`
}

// Parse normalizes a GitHub push payload. Any other event type returns
// ErrUnsupportedEvent so the handler can acknowledge without enqueueing work.
func (p *GitHubParser) Parse(headers map[string]string, body []byte) (*domain.PushEvent, error) {
	event := headers[GitHubEventHeader]
	if event != "push" {
		return nil, fmt.Errorf("github event %q: %w", event, port.ErrUnsupportedEvent)
	}

	var payload githubPushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode github push: %w", port.ErrMalformedPayload)
	}
	if payload.Repository.FullName == "" {
		return nil, fmt.Errorf("github push without repository: %w", port.ErrMalformedPayload)
	}

	changed := newStringSet()
	deleted := newStringSet()
	for _, commit := range payload.Commits {
		changed.add(commit.Added...)
		changed.add(commit.Modified...)
		deleted.add(commit.Removed...)
	}
	// A path both modified and later removed in the same push is a deletion.
	changed.remove(deleted.values()...)

	return &domain.PushEvent{
		RepoName: payload.Repository.FullName,
		Branch:   strings.TrimPrefix(payload.Ref, "refs/heads/"),
		Commit:   payload.HeadCommit.ID,
		Changed:  changed.values(),
		Deleted:  deleted.values(),
	}, nil
}

var _ port.WebhookParser = (*GitHubParser)(nil)
