package botlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestPostStats(t *testing.T) {
	t.Parallel()
	var got Stats
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bots/42/stats" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if h := r.Header.Get("Authorization"); h != "Bot secret" {
			t.Errorf("authorization = %q", h)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New("secret", "42", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if err := c.PostStats(context.Background(), Stats{Guilds: 3, Users: 120}); err != nil {
		t.Fatalf("PostStats: %v", err)
	}
	if got != (Stats{Guilds: 3, Users: 120}) {
		t.Fatalf("body = %+v", got)
	}
}

func TestPostStatsErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
		{http.StatusForbidden, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
		{http.StatusInternalServerError, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.Status == 500 && apiErr.Body == "boom"
		}},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte("boom\n"))
		}))
		c := New("k", "1", WithBaseURL(srv.URL))
		err := c.PostStats(context.Background(), Stats{})
		srv.Close()
		if !tc.check(err) {
			t.Errorf("status %d: err = %v", tc.status, err)
		}
	}
}

func TestPostStatsRetriesAfter429(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("k", "1", WithBaseURL(srv.URL))
	if err := c.PostStats(context.Background(), Stats{Guilds: 1}); err != nil {
		t.Fatalf("PostStats: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestRunStopsOnUnauthorized(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("bad", "1", WithBaseURL(srv.URL))
	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), 10*time.Millisecond, func() Stats { return Stats{} })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on 401")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestRunPostsUntilCancelled(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New("k", "1", WithBaseURL(srv.URL))
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 5*time.Millisecond, func() Stats { return Stats{Guilds: 1} })
		close(done)
	}()
	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d posts", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
