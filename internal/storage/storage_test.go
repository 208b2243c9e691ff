package storage

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	locks := New()
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("IMG_1")
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("Expected at most one holder at a time, saw %d", maxActive)
	}
	if held := locks.held(); len(held) != 0 {
		t.Errorf("Expected no locks after release, got %v", held)
	}
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	locks := New()
	unlockA := locks.Lock("A")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("B")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lock on a different key blocked")
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	locks := New()
	unlock := locks.Lock("A")
	unlock()
	unlock()

	if held := locks.held(); len(held) != 0 {
		t.Errorf("Expected no locks, got %v", held)
	}
	// The key must be lockable again.
	locks.Lock("A")()
}
