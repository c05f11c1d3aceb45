package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_SetGetClear(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get()
	assert.False(t, ok, "new store should be empty")

	store.Set("first")
	store.Set("second")
	token, ok := store.Get()
	assert.True(t, ok)
	assert.Equal(t, "second", token, "last write wins")

	store.Clear()
	store.Clear()
	_, ok = store.Get()
	assert.False(t, ok)
}

func TestMemoryStore_EmptyTokenIsAbsent(t *testing.T) {
	store := NewMemoryStore()
	store.Set("")

	_, ok := store.Get()
	assert.False(t, ok)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	tokens := make(map[string]bool)
	for i := 0; i < 8; i++ {
		tokens[fmt.Sprintf("token-%d", i)] = true
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		token := fmt.Sprintf("token-%d", i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				store.Set(token)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				store.Clear()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got, ok := store.Get(); ok {
					assert.True(t, tokens[got], "observed torn value %q", got)
				}
			}
		}()
	}
	wg.Wait()
}
