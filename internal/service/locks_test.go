package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketLocksSerializePerID(t *testing.T) {
	locks := NewTicketLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("tk-1")
			counter++
			locks.Unlock("tk-1")
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestTicketLocksReleaseEntries(t *testing.T) {
	locks := NewTicketLocks()

	locks.Lock("tk-1")
	locks.Unlock("tk-1")

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.entries, "idle entries must not accumulate")
}

func TestTicketLocksIndependentIDs(t *testing.T) {
	locks := NewTicketLocks()

	locks.Lock("tk-1")
	done := make(chan struct{})
	go func() {
		locks.Lock("tk-2")
		locks.Unlock("tk-2")
		close(done)
	}()
	<-done // a different id must not block
	locks.Unlock("tk-1")
}
