package batch

// limiter.go bounds the number of batches the service runs at once.
//
// A semaphore holds one slot per running batch, keyed by batch ID so status
// can say which batches occupy the service. A request that finds every slot
// taken waits up to maxWait and then fails with ErrTooManyBatches;
// WaitForDrain blocks until the running batches finish.

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrTooManyBatches is returned when every batch slot stays occupied for the
// whole wait time. Clients should retry later.
var ErrTooManyBatches = errors.New("too many batches running, please try again later")

// DefaultMaxConcurrent is the default number of simultaneous batches.
const DefaultMaxConcurrent = 2

// DefaultMaxWait is how long Acquire waits for a slot.
const DefaultMaxWait = 5 * time.Second

// Slot describes the batch holding one limiter slot.
type Slot struct {
	BatchID string    `json:"batch_id"`
	Files   int       `json:"files"`
	Since   time.Time `json:"since"`
}

// Limiter is a semaphore over batch runs.
type Limiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu      sync.RWMutex
	holders map[string]Slot
}

// NewLimiter allows at most maxConcurrent batches. Non-positive arguments
// take the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		holders:   make(map[string]Slot, maxConcurrent),
	}
}

// Acquire takes a slot for the batch, waiting up to the configured time.
// The caller must call Release with the same batch ID once the batch is done.
func (l *Limiter) Acquire(ctx context.Context, slot Slot) error {
	if l.holds(slot.BatchID) {
		return fmt.Errorf("batch %s already holds a slot", slot.BatchID)
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.hold(slot)
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyBatches
	}
}

// TryAcquire takes a slot for the batch only if one is free right now.
func (l *Limiter) TryAcquire(slot Slot) bool {
	if l.holds(slot.BatchID) {
		return false
	}
	select {
	case l.semaphore <- struct{}{}:
		l.hold(slot)
		return true
	default:
		return false
	}
}

// Release frees the slot held by batchID. Unknown IDs are ignored, so a
// double release cannot free another batch's slot.
func (l *Limiter) Release(batchID string) {
	l.mu.Lock()
	_, ok := l.holders[batchID]
	delete(l.holders, batchID)
	l.mu.Unlock()
	if ok {
		<-l.semaphore
	}
}

func (l *Limiter) hold(slot Slot) {
	if slot.Since.IsZero() {
		slot.Since = time.Now().UTC()
	}
	l.mu.Lock()
	l.holders[slot.BatchID] = slot
	l.mu.Unlock()
}

func (l *Limiter) holds(batchID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.holders[batchID]
	return ok
}

// ActiveCount returns the number of running batches.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.holders)
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no batch is running or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter. Batches lists slot holders,
// oldest first.
type LimiterStatus struct {
	Active        int    `json:"active"`
	Available     int    `json:"available"`
	MaxConcurrent int    `json:"max_concurrent"`
	Batches       []Slot `json:"batches"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() LimiterStatus {
	l.mu.RLock()
	batches := make([]Slot, 0, len(l.holders))
	for _, s := range l.holders {
		batches = append(batches, s)
	}
	l.mu.RUnlock()

	sort.Slice(batches, func(i, k int) bool {
		if !batches[i].Since.Equal(batches[k].Since) {
			return batches[i].Since.Before(batches[k].Since)
		}
		return batches[i].BatchID < batches[k].BatchID
	})
	return LimiterStatus{
		Active:        len(batches),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
		Batches:       batches,
	}
}
