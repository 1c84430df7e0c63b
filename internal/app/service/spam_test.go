package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)} }

func newBlacklist(t *testing.T, b storage.Backend) *storage.List {
	t.Helper()
	l, err := storage.OpenList(context.Background(), b, storage.StoreBlacklist)
	if err != nil {
		t.Fatalf("open blacklist: %v", err)
	}
	return l
}

func TestSpamGuardWithinBudget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newClock()
	g := NewVoiceGuard(newBlacklist(t, storage.NewMemoryBackend()))
	g.now = c.now

	for i := 0; i < 3; i++ {
		v, err := g.Hit(ctx, "u1")
		if err != nil || !v.Allowed {
			t.Fatalf("hit %d: verdict=%+v err=%v", i, v, err)
		}
	}
	c.advance(time.Second)
	v, _ := g.Hit(ctx, "u1")
	if v.Allowed {
		t.Fatalf("4th hit within 5s should be limited")
	}
	if v.RetryAfter != 4*time.Second {
		t.Fatalf("retry after = %s, want 4s", v.RetryAfter)
	}
	if got := v.Notice(); got != "You are being rate limited. Try again in `4.00` seconds." {
		t.Fatalf("notice = %q", got)
	}

	// otro usuario tiene su propio bucket
	if v, _ := g.Hit(ctx, "u2"); !v.Allowed {
		t.Fatalf("u2 should not share u1's bucket")
	}
}

func TestSpamGuardSuccessClearsCounter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newClock()
	g := NewTextGuard(newBlacklist(t, storage.NewMemoryBackend()))
	g.now = c.now

	for i := 0; i < 10; i++ {
		_, _ = g.Hit(ctx, "u1")
	}
	if n, ok := g.Violations("u1"); !ok || n != 2 {
		t.Fatalf("violations = %d ok=%v, want 2", n, ok)
	}

	c.advance(11 * time.Second)
	v, err := g.Hit(ctx, "u1")
	if err != nil || !v.Allowed {
		t.Fatalf("hit after window: %+v %v", v, err)
	}
	if _, ok := g.Violations("u1"); ok {
		t.Fatalf("counter must be absent after a successful action")
	}
}

func TestSpamGuardBlacklistsOnceAtFifthViolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newClock()
	b := storage.NewMemoryBackend()
	bl := newBlacklist(t, b)
	g := NewVoiceGuard(bl)
	g.now = c.now

	for i := 0; i < 3; i++ {
		_, _ = g.Hit(ctx, "u1")
	}
	escalations := 0
	for i := 1; i <= 5; i++ {
		v, err := g.Hit(ctx, "u1")
		if err != nil {
			t.Fatalf("violation %d: %v", i, err)
		}
		if v.Allowed {
			t.Fatalf("violation %d was allowed", i)
		}
		if v.Blacklisted {
			escalations++
			if i != MaxViolations {
				t.Fatalf("escalated at violation %d", i)
			}
		}
	}
	if escalations != 1 {
		t.Fatalf("escalations = %d, want 1", escalations)
	}
	if _, ok := g.Violations("u1"); ok {
		t.Fatalf("counter must be removed after blacklisting")
	}

	// quedó persistido
	again := newBlacklist(t, b)
	if got := again.Values(); len(got) != 1 || got[0] != "u1" {
		t.Fatalf("persisted blacklist = %v", got)
	}
}

type failingSave struct{ *storage.MemoryBackend }

func (failingSave) Save(context.Context, string, []byte) error { return errors.New("disk full") }

func TestSpamGuardSaveFailureSurfaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newClock()
	g := NewSpamGuard(SpamText, 1, time.Minute, newBlacklist(t, failingSave{storage.NewMemoryBackend()}))
	g.now = c.now

	_, _ = g.Hit(ctx, "u1")
	var err error
	for i := 0; i < MaxViolations; i++ {
		_, err = g.Hit(ctx, "u1")
	}
	if err == nil {
		t.Fatalf("expected blacklist save error to be returned")
	}
}

func TestSpamGuardPrunesIdleBuckets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newClock()
	g := NewVoiceGuard(newBlacklist(t, storage.NewMemoryBackend()))
	g.now = c.now

	_, _ = g.Hit(ctx, "u1")
	c.advance(time.Minute)
	_, _ = g.Hit(ctx, "u2")
	g.mu.Lock()
	_, stale := g.buckets["u1"]
	g.mu.Unlock()
	if stale {
		t.Fatalf("idle bucket for u1 should have been pruned")
	}
}
