package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Blacklist tracks tokens revoked before their natural expiry. Entries are
// keyed by a sha256 fingerprint of the raw token and kept for a fixed
// retention window; once that elapses the token's own expiry has also passed
// (the caller guarantees retention >= token TTL), so the entry can be
// dropped. State lives in process memory only: a restart clears the
// blacklist, an accepted limitation of the single-process deployment.
type Blacklist struct {
	retention time.Duration

	mu      sync.Mutex
	entries map[string]time.Time // fingerprint -> revocation time

	stop chan struct{}
	once sync.Once
}

// NewBlacklist starts a blacklist with a single background sweeper instead of
// one timer per entry, so resource usage stays bounded under heavy logout
// volume. Close stops the sweeper.
func NewBlacklist(retention time.Duration) *Blacklist {
	b := &Blacklist{
		retention: retention,
		entries:   make(map[string]time.Time),
		stop:      make(chan struct{}),
	}
	go b.sweep(sweepInterval(retention))
	return b
}

func sweepInterval(retention time.Duration) time.Duration {
	iv := retention / 4
	if iv < time.Second {
		iv = time.Second
	}
	return iv
}

// Revoke inserts the token. Revoking an already-revoked token is a no-op and
// keeps the original revocation time.
func (b *Blacklist) Revoke(token string) {
	fp := fingerprint(token)
	b.mu.Lock()
	if _, ok := b.entries[fp]; !ok {
		b.entries[fp] = time.Now()
	}
	b.mu.Unlock()
}

// IsRevoked reports whether the token is currently blacklisted. An entry past
// its retention is dropped on the spot rather than waiting for the sweeper.
func (b *Blacklist) IsRevoked(token string) bool {
	fp := fingerprint(token)
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	at, ok := b.entries[fp]
	if !ok {
		return false
	}
	if now.Sub(at) >= b.retention {
		delete(b.entries, fp)
		return false
	}
	return true
}

// Len reports the number of live entries.
func (b *Blacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Close stops the background sweeper. Safe to call more than once.
func (b *Blacklist) Close() {
	b.once.Do(func() { close(b.stop) })
}

func (b *Blacklist) sweep(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-b.stop:
			return
		case now := <-t.C:
			b.removeExpired(now)
		}
	}
}

func (b *Blacklist) removeExpired(now time.Time) {
	b.mu.Lock()
	for fp, at := range b.entries {
		if now.Sub(at) >= b.retention {
			delete(b.entries, fp)
		}
	}
	b.mu.Unlock()
}

func fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
