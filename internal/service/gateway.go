package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
	"github.com/kursadbilgin/expiry-reminder/internal/observability"
	"github.com/kursadbilgin/expiry-reminder/internal/provider"
	"github.com/kursadbilgin/expiry-reminder/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultLimiterWait = 30 * time.Second
	timeoutDetail      = "timeout"
)

// DispatchGateway sends one rendered reminder and normalizes every provider
// failure into a SendResult. It never retries.
type DispatchGateway struct {
	provider    provider.Provider
	rateLimiter ratelimit.RateLimiter
	timeout     time.Duration
	limiterWait time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// NewDispatchGateway builds a gateway client. rateLimiter may be nil.
func NewDispatchGateway(
	p provider.Provider,
	rateLimiter ratelimit.RateLimiter,
	timeout time.Duration,
	logger *zap.Logger,
) (*DispatchGateway, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchGateway{
		provider:    p,
		rateLimiter: rateLimiter,
		timeout:     timeout,
		limiterWait: defaultLimiterWait,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// SetLimiterWait bounds how long Send queues for a rate limiter slot. The
// send timeout only starts once a slot is granted.
func (g *DispatchGateway) SetLimiterWait(d time.Duration) {
	if d > 0 {
		g.limiterWait = d
	}
}

func (g *DispatchGateway) SetMetrics(metrics *observability.Metrics) {
	g.metrics = metrics
}

func (g *DispatchGateway) Send(ctx context.Context, dest domain.Destination, message string) domain.SendResult {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := observability.WithContextLogger(g.logger, ctx)
	channel := channelLabel(dest.Channel)

	if g.rateLimiter != nil {
		if err := g.waitForSlot(ctx, channel); err != nil {
			detail, reason := describeSendError(ctx, err)
			if reason != observability.ReasonTimeout {
				detail = "rate limiter unavailable: " + detail
			}
			g.metrics.IncReminderFailed(reason)
			logger.Warn("rate limiter wait failed",
				zap.String("channel", channel),
				zap.String("reason", reason),
				zap.Error(err),
			)
			return domain.SendResult{Success: false, Error: detail}
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg := domain.OutboundMessage{
		Channel:   dest.Channel,
		Recipient: dest.Address,
		Content:   message,
	}

	start := g.now()
	resp, err := g.provider.Send(sendCtx, msg)
	g.metrics.ObserveSendDuration(g.now().Sub(start))

	if err != nil {
		detail, reason := describeSendError(sendCtx, err)
		g.metrics.IncReminderFailed(reason)
		logger.Warn("gateway send failed",
			zap.String("channel", channel),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return domain.SendResult{Success: false, Error: detail}
	}

	g.metrics.IncReminderSent()
	if resp != nil {
		logger.Debug("gateway accepted message",
			zap.String("channel", channel),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("providerMessageId", resp.MessageID),
		)
	}

	return domain.SendResult{Success: true}
}

func (g *DispatchGateway) waitForSlot(ctx context.Context, channel string) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.limiterWait)
	defer cancel()

	if err := g.rateLimiter.Wait(waitCtx, channel); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("rate limiter wait exceeded %s: %w", g.limiterWait, context.DeadlineExceeded)
		}
		return err
	}
	return nil
}

// describeSendError returns the caller-facing error text and the metric reason.
func describeSendError(ctx context.Context, err error) (string, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutDetail, observability.ReasonTimeout
	}

	reason := observability.ReasonPermanentError
	if provider.IsTransient(err) {
		reason = observability.ReasonTransientError
	}

	var providerErr *provider.ProviderError
	if errors.As(err, &providerErr) {
		msg := strings.TrimSpace(providerErr.Message)
		switch {
		case providerErr.Cause != nil && msg != "":
			return msg + ": " + providerErr.Cause.Error(), reason
		case providerErr.Cause != nil:
			return providerErr.Cause.Error(), reason
		case msg != "":
			return msg, reason
		}
	}

	return err.Error(), reason
}
