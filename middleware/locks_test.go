package middleware

import (
	"sync"
	"testing"
	"time"
)

func TestGuildLocks_SerialisesSameGuild(t *testing.T) {
	locks := NewGuildLocks()

	unlock := locks.Lock("g1")
	acquired := make(chan struct{})
	go func() {
		u := locks.Lock("g1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock on the same guild should block")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Lock should be acquired after unlock")
	}
}

func TestGuildLocks_IndependentGuilds(t *testing.T) {
	locks := NewGuildLocks()
	unlock := locks.Lock("g1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		locks.Lock("g2")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different guilds should not block each other")
	}
}

func TestGuildLocks_Counter(t *testing.T) {
	locks := NewGuildLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("g1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}
