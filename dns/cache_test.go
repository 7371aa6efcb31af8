package dns

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolverCaches(t *testing.T) {
	calls := 0
	r := NewResolver(func(ctx context.Context, addr string) ([]string, error) {
		calls++
		if addr == "10.0.0.1" {
			return []string{"gw.example.net."}, nil
		}
		return nil, errors.New("no PTR")
	})
	now := time.Unix(0, 0)
	r.now = func() time.Time { return now }

	ctx := context.Background()
	if got := r.Resolve(ctx, "10.0.0.1"); got != "gw.example.net" {
		t.Errorf("Resolve = %q", got)
	}
	r.Resolve(ctx, "10.0.0.1")
	if got := r.Resolve(ctx, "10.0.0.2"); got != "" {
		t.Errorf("failed lookup returned %q", got)
	}
	r.Resolve(ctx, "10.0.0.2")
	if calls != 2 {
		t.Errorf("expected 2 lookups, got %d", calls)
	}

	now = now.Add(defaultTTL + time.Second)
	r.Resolve(ctx, "10.0.0.1")
	if calls != 3 {
		t.Errorf("expired entry was not refreshed, calls = %d", calls)
	}
}
