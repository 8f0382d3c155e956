package provider

import (
	"context"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

// Provider is the outbound messaging gateway port.
type Provider interface {
	Send(ctx context.Context, msg domain.OutboundMessage) (*ProviderResponse, error)
}

// ProviderResponse stores gateway call metadata for logging.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
