package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
	"github.com/jose-valero/dynvoice-bot/internal/telemetry"
)

const (
	SpamVoice = "voice"
	SpamText  = "text"

	// violaciones seguidas antes del blacklist
	MaxViolations = 5
)

// Verdict es el resultado de pasar una acción por el SpamGuard.
type Verdict struct {
	Allowed     bool
	RetryAfter  time.Duration
	Blacklisted bool // true sólo en la acción que escaló
}

// Notice es el mensaje para el usuario limitado.
func (v Verdict) Notice() string {
	return fmt.Sprintf("You are being rate limited. Try again in `%.2f` seconds.", v.RetryAfter.Seconds())
}

type bucket struct {
	tokens int
	window time.Time
	last   time.Time
}

// SpamGuard: rate por usuario en ventana fija + contador de violaciones.
// Al llegar a MaxViolations el usuario va al blacklist (guardado al toque).
type SpamGuard struct {
	mu      sync.Mutex
	domain  string
	rate    int
	per     time.Duration
	buckets map[string]*bucket
	counter map[string]int

	blacklist *storage.List
	now       func() time.Time
}

// NewVoiceGuard: 3 entradas cada 5s.
func NewVoiceGuard(bl *storage.List) *SpamGuard { return NewSpamGuard(SpamVoice, 3, 5*time.Second, bl) }

// NewTextGuard: 8 comandos cada 10s.
func NewTextGuard(bl *storage.List) *SpamGuard { return NewSpamGuard(SpamText, 8, 10*time.Second, bl) }

func NewSpamGuard(domain string, rate int, per time.Duration, bl *storage.List) *SpamGuard {
	return &SpamGuard{
		domain:    domain,
		rate:      rate,
		per:       per,
		buckets:   map[string]*bucket{},
		counter:   map[string]int{},
		blacklist: bl,
		now:       time.Now,
	}
}

// Hit consume un token del usuario. El error sólo viene de guardar el blacklist.
func (g *SpamGuard) Hit(ctx context.Context, userID string) (Verdict, error) {
	g.mu.Lock()
	now := g.now()
	g.pruneLocked(now)

	retry := g.takeLocked(userID, now)
	if retry <= 0 {
		delete(g.counter, userID)
		g.mu.Unlock()
		return Verdict{Allowed: true}, nil
	}

	g.counter[userID]++
	escalate := g.counter[userID] >= MaxViolations
	if escalate {
		delete(g.counter, userID)
	}
	g.mu.Unlock()

	telemetry.RateLimitHit(g.domain)
	v := Verdict{RetryAfter: retry}
	if !escalate {
		return v, nil
	}

	v.Blacklisted = true
	telemetry.Blacklisted(g.domain)
	log.Printf("[spam] %s: usuario %s al blacklist", g.domain, userID)
	if !g.blacklist.Contains(userID) {
		g.blacklist.Append(userID)
	}
	if err := g.blacklist.Save(ctx); err != nil {
		return v, fmt.Errorf("guardar blacklist: %w", err)
	}
	return v, nil
}

// Violations devuelve el contador actual (0 = sin entrada).
func (g *SpamGuard) Violations(userID string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.counter[userID]
	return n, ok
}

// takeLocked devuelve 0 si hay token, o cuánto falta para que se abra la ventana.
func (g *SpamGuard) takeLocked(userID string, now time.Time) time.Duration {
	b, ok := g.buckets[userID]
	if !ok {
		b = &bucket{tokens: g.rate}
		g.buckets[userID] = b
	}
	b.last = now
	if now.After(b.window.Add(g.per)) {
		b.tokens = g.rate
	}
	if b.tokens == g.rate {
		b.window = now
	}
	if b.tokens == 0 {
		return g.per - now.Sub(b.window)
	}
	b.tokens--
	return 0
}

// buckets sin uso por más de per ya están llenos: se pueden tirar
func (g *SpamGuard) pruneLocked(now time.Time) {
	for id, b := range g.buckets {
		if now.After(b.last.Add(g.per)) {
			delete(g.buckets, id)
		}
	}
}
