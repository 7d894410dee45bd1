package session

import (
	"errors"
	"testing"
	"time"

	"github.com/clipferry/bot/internal/source"
)

func TestStoreBeginRejectsSecondRequest(t *testing.T) {
	store := NewStore(DefaultWindow)

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.Begin(1, "https://example.com/b"); !errors.Is(err, ErrActiveSession) {
		t.Fatalf("second Begin() error = %v, want ErrActiveSession", err)
	}

	// A different user is unaffected.
	if err := store.Begin(2, "https://example.com/c"); err != nil {
		t.Fatalf("Begin() for other user error = %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
}

func TestStoreBeginReplacesStaleSession(t *testing.T) {
	store := NewStore(30 * time.Minute)
	current := time.Unix(1000, 0)
	store.WithNowFunc(func() time.Time { return current })

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	current = current.Add(31 * time.Minute)
	if err := store.Begin(1, "https://example.com/b"); err != nil {
		t.Fatalf("Begin() over stale session error = %v", err)
	}

	sess, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.URL != "https://example.com/b" {
		t.Fatalf("session URL = %q, want the replacing URL", sess.URL)
	}
}

func TestStoreAttachAndGet(t *testing.T) {
	store := NewStore(DefaultWindow)

	if err := store.Attach(1, source.Metadata{Title: "clip"}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Attach() without session error = %v, want ErrSessionNotFound", err)
	}

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.Attach(1, source.Metadata{Title: "clip", Duration: 60}); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	sess, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sess.Meta.Title != "clip" || sess.Meta.Duration != 60 {
		t.Fatalf("unexpected metadata %+v", sess.Meta)
	}
}

func TestStoreGetExpiresLazily(t *testing.T) {
	store := NewStore(30 * time.Minute)
	current := time.Unix(1000, 0)
	store.WithNowFunc(func() time.Time { return current })

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	current = current.Add(29 * time.Minute)
	if _, err := store.Get(1); err != nil {
		t.Fatalf("Get() inside window error = %v", err)
	}

	// Get refreshed the stamp, so expiry counts from the last touch.
	current = current.Add(31 * time.Minute)
	if _, err := store.Get(1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() past window error = %v, want ErrSessionNotFound", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after lazy expiry", store.Len())
	}
}

func TestStoreClaimIsExclusive(t *testing.T) {
	store := NewStore(DefaultWindow)

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if _, err := store.Claim(1); err != nil {
		t.Fatalf("first Claim() error = %v", err)
	}
	// Double button press.
	if _, err := store.Claim(1); !errors.Is(err, ErrActiveSession) {
		t.Fatalf("second Claim() error = %v, want ErrActiveSession", err)
	}

	store.End(1)
	if _, err := store.Claim(1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Claim() after End() error = %v, want ErrSessionNotFound", err)
	}
}

func TestStoreEndIsIdempotent(t *testing.T) {
	store := NewStore(DefaultWindow)

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	store.End(1)
	store.End(1)
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", store.Len())
	}
}

func TestStoreSweepBoundary(t *testing.T) {
	store := NewStore(30 * time.Minute)
	base := time.Unix(1000, 0)
	store.WithNowFunc(func() time.Time { return base })

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.Begin(2, "https://example.com/b"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	if removed := store.Sweep(base.Add(29 * time.Minute)); removed != 0 {
		t.Fatalf("Sweep() at 29m removed %d, want 0", removed)
	}
	if removed := store.Sweep(base.Add(31 * time.Minute)); removed != 2 {
		t.Fatalf("Sweep() at 31m removed %d, want 2", removed)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after sweep", store.Len())
	}
}

func TestStoreTouchExtendsWindow(t *testing.T) {
	store := NewStore(30 * time.Minute)
	current := time.Unix(1000, 0)
	store.WithNowFunc(func() time.Time { return current })

	if err := store.Begin(1, "https://example.com/a"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	current = current.Add(20 * time.Minute)
	store.Touch(1)

	if removed := store.Sweep(current.Add(25 * time.Minute)); removed != 0 {
		t.Fatalf("Sweep() removed %d, want 0 after touch", removed)
	}
}
