package port

import "github.com/arturoeanton/go-context-gateway/internal/domain"

// WebhookParser validates and normalizes one provider's webhook payloads.
// Verify must compare signatures in constant time; Parse must map the
// provider's payload shape to the canonical PushEvent. Non-push events
// return ErrUnsupportedEvent so the handler can acknowledge them without
// enqueueing work.
type WebhookParser interface {
	// Provider returns the provider key used in the webhook URL ("github", "gitlab").
	Provider() string

	// Verify checks the request signature against the shared secret.
	Verify(secret string, headers map[string]string, body []byte) error

	// Parse normalizes the payload into a PushEvent.
	Parse(headers map[string]string, body []byte) (*domain.PushEvent, error)
}

// WebhookParserRegistry maps provider keys to their parsers.
type WebhookParserRegistry map[string]WebhookParser
