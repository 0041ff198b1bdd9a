package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitOncePerWindow(t *testing.T) {
	g := NewDefault()

	require.True(t, g.Admit("msg-1"))
	assert.False(t, g.Admit("msg-1"), "second admit within TTL must be rejected")
	assert.True(t, g.Admit("msg-2"), "distinct id must be admitted")
}

func TestAdmitAgainAfterExpiry(t *testing.T) {
	g := New(20*time.Millisecond, 10)

	require.True(t, g.Admit("msg-1"))
	require.False(t, g.Admit("msg-1"))

	time.Sleep(30 * time.Millisecond)

	assert.True(t, g.Admit("msg-1"), "admit must succeed again after the window elapses")
}

func TestCapacityEvictsOldest(t *testing.T) {
	g := New(time.Minute, 3)

	require.True(t, g.Admit("a"))
	time.Sleep(time.Millisecond)
	require.True(t, g.Admit("b"))
	time.Sleep(time.Millisecond)
	require.True(t, g.Admit("c"))
	time.Sleep(time.Millisecond)

	// Capacity reached: the next admit evicts "a", the entry closest to expiry.
	require.True(t, g.Admit("d"))
	assert.LessOrEqual(t, g.Len(), 3)

	assert.True(t, g.Admit("a"), "evicted id must be admissible again")
	assert.False(t, g.Admit("c"), "recent id must still be tracked")
}

func TestAdmitConcurrent(t *testing.T) {
	g := NewDefault()

	const workers = 16
	var admitted sync.Map
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("msg-%d", i)
				if g.Admit(id) {
					if _, loaded := admitted.LoadOrStore(id, true); loaded {
						t.Errorf("id %s admitted twice", id)
					}
				}
			}
		}()
	}
	wg.Wait()

	count := 0
	admitted.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 100, count, "every id must be admitted exactly once")
}
