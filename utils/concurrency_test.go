package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestURLSetNoDuplicates(t *testing.T) {
	s := NewURLSet()

	added := s.Add("https://www.booking.com/searchresults.html?checkin=2025-03-05")
	if !added {
		t.Error("first Add should return true")
	}

	added = s.Add("https://www.booking.com/searchresults.html?checkin=2025-03-05")
	if added {
		t.Error("second Add of same URL should return false")
	}

	if !s.Contains("https://www.booking.com/searchresults.html?checkin=2025-03-05") {
		t.Error("Contains should report the added URL")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
}

func TestURLSetConcurrency(t *testing.T) {
	s := NewURLSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		url := "https://www.airbnb.com/s/same"
		pool.Submit(func() {
			if s.Add(url) {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}

func TestWorkerPoolInterval(t *testing.T) {
	interval := 100 * time.Millisecond
	pool := NewWorkerPool(1, interval)

	var mu sync.Mutex
	var timestamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	if len(timestamps) != 3 {
		t.Fatalf("ran %d jobs, want 3", len(timestamps))
	}
	// Allow a little scheduler slack below the nominal interval.
	min := interval - 10*time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestWorkerPoolRunsPairConcurrently(t *testing.T) {
	pool := NewWorkerPool(2, 0)

	var running, peak int32
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		pool.Submit(func() {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			started <- struct{}{}
			<-release
			atomic.AddInt32(&running, -1)
		})
	}

	<-started
	<-started
	close(release)
	pool.Wait()

	if peak != 2 {
		t.Errorf("peak concurrency: got %d, want 2", peak)
	}
}
