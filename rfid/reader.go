// Package rfid models the card/tag reader as a small capability: the last
// scanned UID, valid for a short window, and a way to clear it.
package rfid

import (
	"context"
	"strings"
	"sync"
	"time"
)

const DefaultScanTTL = 3 * time.Second

type Reader interface {
	// CurrentTag returns the last scanned UID while it is still fresh.
	CurrentTag(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
	// Present records a scan, as the hardware would.
	Present(ctx context.Context, uid string) error
}

// MemoryReader is the single-process mock used until the serial reader is
// wired in.
type MemoryReader struct {
	mu  sync.Mutex
	uid string
	at  time.Time
	ttl time.Duration
	now func() time.Time
}

func NewMemoryReader(ttl time.Duration) *MemoryReader {
	if ttl <= 0 {
		ttl = DefaultScanTTL
	}
	return &MemoryReader{ttl: ttl, now: time.Now}
}

// SetClock replaces time.Now; tests only.
func (r *MemoryReader) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

func (r *MemoryReader) CurrentTag(context.Context) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uid == "" {
		return "", false, nil
	}
	if r.now().Sub(r.at) > r.ttl {
		r.uid = ""
		return "", false, nil
	}
	return r.uid, true, nil
}

func (r *MemoryReader) Clear(context.Context) error {
	r.mu.Lock()
	r.uid = ""
	r.mu.Unlock()
	return nil
}

func (r *MemoryReader) Present(_ context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil
	}
	r.mu.Lock()
	r.uid, r.at = uid, r.now()
	r.mu.Unlock()
	return nil
}
