package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

const defaultGatewayTimeout = 10 * time.Second

type gatewayRequest struct {
	To      string `json:"to"`
	Channel string `json:"channel"`
	Content string `json:"content"`
}

type gatewayErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPGatewayProvider posts rendered messages to a JSON messaging gateway.
type HTTPGatewayProvider struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPGatewayProvider(endpoint, token string) (*HTTPGatewayProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)
	if token = strings.TrimSpace(token); token != "" {
		client.SetAuthToken(token)
	}

	return NewHTTPGatewayProviderWithClient(endpoint, client)
}

func NewHTTPGatewayProviderWithClient(endpoint string, client *resty.Client) (*HTTPGatewayProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPGatewayProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *HTTPGatewayProvider) Send(ctx context.Context, msg domain.OutboundMessage) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, &ProviderError{Message: "invalid message", Cause: err}
	}

	reqBody := gatewayRequest{
		To:      msg.Recipient,
		Channel: strings.ToLower(msg.Channel.String()),
		Content: msg.Content,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &ProviderResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  providerMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	var base string
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		base = "gateway rejected credentials"
	case statusCode == http.StatusTooManyRequests:
		base = "gateway rate limit exceeded"
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		base = "gateway rejected destination or content"
	default:
		base = fmt.Sprintf("gateway returned status %d", statusCode)
	}

	if detail := gatewayErrorDetail(body); detail != "" {
		return fmt.Sprintf("%s: %s", base, detail)
	}
	return base
}

func gatewayErrorDetail(body string) string {
	if body == "" {
		return ""
	}

	var parsed gatewayErrorBody
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if msg := strings.TrimSpace(parsed.Error); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(parsed.Message); msg != "" {
			return msg
		}
	}
	return body
}

func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Request-ID", "X-Message-ID", "X-Correlation-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
