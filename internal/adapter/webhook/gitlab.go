package webhook

import (
	"crypto/hmac"
	"encoding/json"
	"fmt"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

// GitLab header names.
const (
	GitLabEventHeader = "X-Gitlab-Event"
	GitLabTokenHeader = "X-Gitlab-Token"
)

// GitLabParser validates and normalizes GitLab webhook deliveries.
// GitLab sends the shared secret verbatim in X-Gitlab-Token rather than an
// HMAC over the body; the comparison is still constant-time.
type GitLabParser struct{}

// NewGitLabParser creates a GitLab webhook parser.
func NewGitLabParser() *GitLabParser {
	return &GitLabParser{}
}

// Provider returns the provider key used in the webhook URL.
func (p *GitLabParser) Provider() string { return "gitlab" }

// Verify compares the X-Gitlab-Token header against the shared secret.
func (p *GitLabParser) Verify(secret string, headers map[string]string, _ []byte) error {
	if secret == "" {
		return fmt.Errorf("no webhook secret configured: %w", port.ErrInvalidSignature)
	}

	token := headers[GitLabTokenHeader]
	if token == "" {
		return fmt.Errorf("missing token header: %w", port.ErrInvalidSignature)
	}
	if !hmac.Equal([]byte(token), []byte(secret)) {
		return port.ErrInvalidSignature
	}
	return nil
}

// gitlabPushPayload is the subset of a GitLab push hook the gateway needs.
type gitlabPushPayload struct {
	Ref     string `json:"ref"`
	After   string `json:"after"`
	Project struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	Commits []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"commits"`
}

// Parse normalizes a GitLab "Push Hook" payload.
func (p *GitLabParser) Parse(headers map[string]string, body []byte) (*domain.PushEvent, error) {
	event := headers[GitLabEventHeader]
	if event != "Push Hook" {
		return nil, fmt.Errorf("gitlab event %q: %w", event, port.ErrUnsupportedEvent)
	}

	var payload gitlabPushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode gitlab push: %w", port.ErrMalformedPayload)
	}
	if payload.Project.PathWithNamespace == "" {
		return nil, fmt.Errorf("gitlab push without project: %w", port.ErrMalformedPayload)
	}

	changed := newStringSet()
	deleted := newStringSet()
	for _, commit := range payload.Commits {
		changed.add(commit.Added...)
		changed.add(commit.Modified...)
		deleted.add(commit.Removed...)
	}
	changed.remove(deleted.values()...)

	return &domain.PushEvent{
		RepoName: payload.Project.PathWithNamespace,
		Branch:   trimRefPrefix(payload.Ref),
		Commit:   payload.After,
		Changed:  changed.values(),
		Deleted:  deleted.values(),
	}, nil
}

var _ port.WebhookParser = (*GitLabParser)(nil)
