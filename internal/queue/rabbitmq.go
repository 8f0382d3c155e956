package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
	connectTimeout   = 15 * time.Second
	dialTimeout      = 5 * time.Second
	heartbeat        = 10 * time.Second
)

// ErrBrokerUnavailable is returned by publishes while the connection is down.
// A reconnect runs in the background; the caller is never blocked on it.
var ErrBrokerUnavailable = errors.New("rabbitmq connection unavailable")

// RabbitMQ owns one broker connection. A dropped connection is redialed with
// backoff by a single background goroutine.
type RabbitMQ struct {
	url string

	mu           sync.RWMutex
	reconnectMu  sync.Mutex
	conn         *amqp.Connection
	reconnecting atomic.Bool

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

func newRabbitMQ(url string) *RabbitMQ {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &RabbitMQ{url: url, bgCtx: bgCtx, bgCancel: bgCancel}
}

// NewRabbitMQ connects to the broker, retrying with backoff for up to
// connectTimeout.
func NewRabbitMQ(ctx context.Context, url string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	r := newRabbitMQ(url)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := r.reconnectWithBackoff(ctx); err != nil {
		r.bgCancel()
		return nil, err
	}

	return r, nil
}

// Close stops any background reconnect and closes the connection.
func (r *RabbitMQ) Close() error {
	r.bgCancel()
	r.bgWG.Wait()

	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	return conn.Close()
}

// channel opens a channel on the live connection. It fails fast with
// ErrBrokerUnavailable when the connection is down and schedules a reconnect.
func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		r.reconnectInBackground()
		return nil, ErrBrokerUnavailable
	}

	ch, err := conn.Channel()
	if err != nil {
		r.reconnectInBackground()
		return nil, fmt.Errorf("%w: open channel: %v", ErrBrokerUnavailable, err)
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return ch, nil
}

// reconnectInBackground starts at most one reconnect loop at a time.
func (r *RabbitMQ) reconnectInBackground() {
	if r.bgCtx.Err() != nil || !r.reconnecting.CompareAndSwap(false, true) {
		return
	}

	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		defer r.reconnecting.Store(false)
		_ = r.reconnectWithBackoff(r.bgCtx)
	}()
}

func (r *RabbitMQ) reconnectWithBackoff(ctx context.Context) error {
	r.reconnectMu.Lock()
	defer r.reconnectMu.Unlock()

	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()
	if conn != nil && !conn.IsClosed() {
		return nil
	}

	wait := reconnectBackoff
	for {
		newConn, err := r.dial(ctx)
		if err == nil {
			r.mu.Lock()
			oldConn := r.conn
			r.conn = newConn
			r.mu.Unlock()

			if oldConn != nil && !oldConn.IsClosed() {
				_ = oldConn.Close()
			}

			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rabbitmq reconnect canceled: %w (last error: %v)", ctx.Err(), err)
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
}

// dial connects with a TCP dialer bound to ctx so a canceled caller never
// waits on an unreachable broker.
func (r *RabbitMQ) dial(ctx context.Context) (*amqp.Connection, error) {
	return amqp.DialConfig(r.url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, network, addr)
		},
	})
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		dlxExchangeName,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare dlx exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		OutcomesDLQ,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare dlq %q: %w", OutcomesDLQ, err)
	}

	if err := ch.QueueBind(OutcomesDLQ, dlxRoutingKey, dlxExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind dlq %q: %w", OutcomesDLQ, err)
	}

	if _, err := ch.QueueDeclare(
		OutcomesQueue,
		true,
		false,
		false,
		false,
		outcomesQueueArgs(),
	); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", OutcomesQueue, err)
	}

	return nil
}

func outcomesQueueArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    dlxExchangeName,
		"x-dead-letter-routing-key": dlxRoutingKey,
		"x-message-ttl":             outcomeMessageTTL,
	}
}
