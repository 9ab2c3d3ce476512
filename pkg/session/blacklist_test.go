package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRevokeAndLookup(t *testing.T) {
	b := NewBlacklist(time.Minute)
	defer b.Close()

	assert.False(t, b.IsRevoked("tok"))
	b.Revoke("tok")
	assert.True(t, b.IsRevoked("tok"))
	assert.False(t, b.IsRevoked("other"))
}

func TestRevokeIdempotent(t *testing.T) {
	b := NewBlacklist(time.Minute)
	defer b.Close()

	b.Revoke("tok")
	b.Revoke("tok")
	assert.True(t, b.IsRevoked("tok"))
	assert.Equal(t, 1, b.Len())
}

func TestLookupDropsExpiredEntry(t *testing.T) {
	b := NewBlacklist(10 * time.Millisecond)
	defer b.Close()

	b.Revoke("tok")
	assert.True(t, b.IsRevoked("tok"))

	time.Sleep(30 * time.Millisecond)
	assert.False(t, b.IsRevoked("tok"))
	assert.Equal(t, 0, b.Len())
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	b := NewBlacklist(5 * time.Millisecond)
	defer b.Close()

	for i := 0; i < 3; i++ {
		b.Revoke(fmt.Sprintf("tok-%d", i))
	}
	assert.Equal(t, 3, b.Len())

	time.Sleep(10 * time.Millisecond)
	b.removeExpired(time.Now())
	assert.Equal(t, 0, b.Len())
}

func TestConcurrentRevokeAndLookup(t *testing.T) {
	b := NewBlacklist(time.Minute)
	defer b.Close()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		tok := fmt.Sprintf("tok-%d", i)
		go func() {
			defer wg.Done()
			b.Revoke(tok)
		}()
		go func() {
			defer wg.Done()
			b.IsRevoked(tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, b.Len())
	for i := 0; i < n; i++ {
		assert.True(t, b.IsRevoked(fmt.Sprintf("tok-%d", i)))
	}
}
