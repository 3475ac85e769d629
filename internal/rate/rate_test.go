package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestLimiter_LoginBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.IncrementLogin(ctx, "alice@example.com", ""); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i+1, err)
		}
	}
	if err := l.IncrementLogin(ctx, "alice@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on attempt 4, got %v", err)
	}
	if err := l.CheckLogin(ctx, "alice@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("CheckLogin should report exhausted budget, got %v", err)
	}

	// A different identifier is unaffected.
	if err := l.CheckLogin(ctx, "bob@example.com", ""); err != nil {
		t.Fatalf("unrelated identifier limited: %v", err)
	}
}

func TestLimiter_ResetLoginClearsBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := l.IncrementLogin(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("first attempt limited: %v", err)
	}
	if err := l.IncrementLogin(ctx, "alice@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.ResetLogin(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("ResetLogin failed: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("budget not cleared after reset: %v", err)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := l.IncrementLogin(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("first attempt limited: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if err := l.IncrementLogin(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("attempt after window expiry limited: %v", err)
	}
}

func TestLimiter_IPThrottle(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      2,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	// Different identifiers, same IP: the IP budget still runs out.
	if err := l.IncrementLogin(ctx, "a@example.com", "203.0.113.7"); err != nil {
		t.Fatalf("unexpected limit: %v", err)
	}
	if err := l.IncrementLogin(ctx, "b@example.com", "203.0.113.7"); err != nil {
		t.Fatalf("unexpected limit: %v", err)
	}
	if err := l.IncrementLogin(ctx, "c@example.com", "203.0.113.7"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget exhaustion, got %v", err)
	}
}

func TestLimiter_RefreshThrottle(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      2,
		RefreshCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckRefresh(ctx, "ps_dev_abcd"); err != nil {
			t.Fatalf("refresh %d limited: %v", i+1, err)
		}
	}
	if err := l.CheckRefresh(ctx, "ps_dev_abcd"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLimiter_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := New(client, Config{MaxLoginAttempts: 1, LoginCooldownDuration: time.Minute})
	mr.Close()

	err := l.IncrementLogin(context.Background(), "alice@example.com", "")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
