package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(rdb, 2, func() time.Time { return now }, sleepWithContext)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	want := []bool{true, true, false}
	for i, w := range want {
		allowed, err := limiter.Allow(context.Background(), "whatsapp")
		if err != nil {
			t.Fatalf("Allow() #%d error = %v", i+1, err)
		}
		if allowed != w {
			t.Fatalf("Allow() #%d = %v, want %v", i+1, allowed, w)
		}
	}

	now = now.Add(time.Second)
	allowed, err := limiter.Allow(context.Background(), "whatsapp")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("new second window should allow call")
	}
}

func TestRedisRateLimiterNormalizesChannel(t *testing.T) {
	t.Parallel()

	rdb, mr := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newRedisRateLimiter(rdb, 1, func() time.Time { return now }, sleepWithContext)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), " WHATSAPP ")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("first request should be allowed")
	}

	allowed, err = limiter.Allow(context.Background(), "whatsapp")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("second request in the same window should share the counter")
	}

	key := windowKey("whatsapp", now)
	if !mr.Exists(key) {
		t.Fatalf("expected key %q in redis", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("TTL(%q) = %v, want > 0", key, ttl)
	}
}

func TestRedisRateLimiterAllowRequiresChannel(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)
	limiter, err := NewRedisRateLimiter(rdb, 5)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty channel")
	}
}

func TestRedisRateLimiterWait(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_200, 0)
	sleepCalls := 0
	limiter, err := newRedisRateLimiter(
		rdb,
		1,
		func() time.Time { return now },
		func(ctx context.Context, d time.Duration) error {
			sleepCalls++
			if sleepCalls == 1 {
				now = now.Add(time.Second)
			}
			return nil
		},
	)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if allowed, err := limiter.Allow(context.Background(), "whatsapp"); err != nil || !allowed {
		t.Fatalf("Allow() = %v, %v; want true, nil", allowed, err)
	}

	if err := limiter.Wait(context.Background(), "whatsapp"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if sleepCalls == 0 {
		t.Fatal("expected Wait() to sleep at least once")
	}
}

func TestRedisRateLimiterWaitContextDeadline(t *testing.T) {
	t.Parallel()

	rdb, _ := newTestRedisClient(t)

	now := time.Unix(1_700_000_300, 0)
	limiter, err := newRedisRateLimiter(rdb, 1, func() time.Time { return now }, sleepWithContext)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	if allowed, err := limiter.Allow(context.Background(), "whatsapp"); err != nil || !allowed {
		t.Fatalf("Allow() = %v, %v; want true, nil", allowed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	err = limiter.Wait(ctx, "whatsapp")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestNewRedisRateLimiterRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisRateLimiter(nil, 10); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestNewRedis(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	_ = client.Close()

	if _, err := NewRedis(context.Background(), "://bad"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func newTestRedisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb, mr
}

func TestUntilNextWindow(t *testing.T) {
	t.Parallel()

	base := time.Unix(1_700_000_400, 0)
	tests := []struct {
		at   time.Time
		want time.Duration
	}{
		{at: base, want: time.Second},
		{at: base.Add(250 * time.Millisecond), want: 750 * time.Millisecond},
		{at: base.Add(999*time.Millisecond + 900*time.Microsecond), want: time.Millisecond},
	}

	for _, tt := range tests {
		if got := untilNextWindow(tt.at); got != tt.want {
			t.Fatalf("untilNextWindow(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}
