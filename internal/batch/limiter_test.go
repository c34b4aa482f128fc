package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLimiter_AcquireRelease(t *testing.T) {
	l := NewLimiter(2, time.Second)
	ctx := context.Background()

	steps := []struct {
		op            func()
		wantActive    int
		wantAvailable int
	}{
		{op: func() {}, wantActive: 0, wantAvailable: 2},
		{op: func() { mustAcquire(t, l, ctx, "a") }, wantActive: 1, wantAvailable: 1},
		{op: func() { mustAcquire(t, l, ctx, "b") }, wantActive: 2, wantAvailable: 0},
		{op: func() { l.Release("a") }, wantActive: 1, wantAvailable: 1},
		{op: func() { l.Release("a") }, wantActive: 1, wantAvailable: 1},
		{op: func() { l.Release("b") }, wantActive: 0, wantAvailable: 2},
	}
	for i, s := range steps {
		s.op()
		st := l.Status()
		if st.Active != s.wantActive || st.Available != s.wantAvailable {
			t.Errorf("step %d: active=%d available=%d, want %d/%d", i, st.Active, st.Available, s.wantActive, s.wantAvailable)
		}
	}
}

func mustAcquire(t *testing.T, l *Limiter, ctx context.Context, id string) {
	t.Helper()
	if err := l.Acquire(ctx, Slot{BatchID: id}); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
}

func TestLimiter_TimesOutWhenFull(t *testing.T) {
	l := NewLimiter(1, 50*time.Millisecond)
	mustAcquire(t, l, context.Background(), "first")
	defer l.Release("first")

	start := time.Now()
	err := l.Acquire(context.Background(), Slot{BatchID: "second"})

	if !errors.Is(err, ErrTooManyBatches) {
		t.Errorf("err = %v, want ErrTooManyBatches", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("returned after %v, before the wait time", elapsed)
	}
}

func TestLimiter_CancelWhileWaiting(t *testing.T) {
	l := NewLimiter(1, 5*time.Second)
	mustAcquire(t, l, context.Background(), "first")
	defer l.Release("first")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Acquire(ctx, Slot{BatchID: "second"}) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestLimiter_TryAcquire(t *testing.T) {
	l := NewLimiter(1, time.Second)
	if !l.TryAcquire(Slot{BatchID: "a"}) {
		t.Fatal("first TryAcquire failed")
	}
	if l.TryAcquire(Slot{BatchID: "b"}) {
		t.Error("second TryAcquire succeeded on a full limiter")
	}
	l.Release("a")
	if !l.TryAcquire(Slot{BatchID: "b"}) {
		t.Error("TryAcquire after Release failed")
	}
	l.Release("b")
}

func TestLimiter_NeverExceedsMax(t *testing.T) {
	const maxConcurrent = 3
	l := NewLimiter(maxConcurrent, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	peak := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("batch-%d", i)
			if err := l.Acquire(context.Background(), Slot{BatchID: id}); err != nil {
				t.Errorf("Acquire() error: %v", err)
				return
			}
			defer l.Release(id)
			mu.Lock()
			if n := l.ActiveCount(); n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	if peak > maxConcurrent {
		t.Errorf("peak active = %d, max %d", peak, maxConcurrent)
	}
	if n := l.ActiveCount(); n != 0 {
		t.Errorf("ActiveCount = %d after all released", n)
	}
}

func TestLimiter_WaitForDrain(t *testing.T) {
	l := NewLimiter(2, time.Second)
	mustAcquire(t, l, context.Background(), "a")

	done := make(chan error, 1)
	go func() { done <- l.WaitForDrain(context.Background()) }()

	select {
	case <-done:
		t.Fatal("WaitForDrain returned while a batch was active")
	case <-time.After(60 * time.Millisecond):
	}

	l.Release("a")
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitForDrain() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForDrain did not return after release")
	}
}

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(0, 0)
	if l.MaxConcurrent() != DefaultMaxConcurrent || l.maxWait != DefaultMaxWait {
		t.Errorf("defaults = %d/%s", l.MaxConcurrent(), l.maxWait)
	}
}

func TestLimiter_StatusListsHolders(t *testing.T) {
	l := NewLimiter(3, time.Second)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mustAcquireSlot(t, l, Slot{BatchID: "late", Files: 2, Since: base.Add(time.Minute)})
	mustAcquireSlot(t, l, Slot{BatchID: "early", Files: 5, Since: base})

	st := l.Status()
	if st.Active != 2 || st.Available != 1 || st.MaxConcurrent != 3 {
		t.Errorf("counts = %+v", st)
	}
	if len(st.Batches) != 2 || st.Batches[0].BatchID != "early" || st.Batches[1].BatchID != "late" {
		t.Fatalf("batches = %+v, want early then late", st.Batches)
	}
	if st.Batches[0].Files != 5 {
		t.Errorf("early files = %d, want 5", st.Batches[0].Files)
	}

	if err := l.Acquire(context.Background(), Slot{BatchID: "early"}); err == nil {
		t.Error("Acquire() with a held batch ID succeeded")
	}
	if l.TryAcquire(Slot{BatchID: "late"}) {
		t.Error("TryAcquire() with a held batch ID succeeded")
	}

	l.Release("early")
	if st := l.Status(); len(st.Batches) != 1 || st.Batches[0].BatchID != "late" {
		t.Errorf("after release batches = %+v", st.Batches)
	}
}

func mustAcquireSlot(t *testing.T, l *Limiter, s Slot) {
	t.Helper()
	if err := l.Acquire(context.Background(), s); err != nil {
		t.Fatalf("Acquire(%s) error: %v", s.BatchID, err)
	}
}
