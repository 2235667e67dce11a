package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOOrder(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		res := q.Pop(time.Second)
		require.Equal(t, PopOK, res.Status)
		require.Equal(t, i, res.Item)
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	start := time.Now()

	var res PopResult[int]
	done := make(chan struct{})
	go func() {
		res = q.Pop(time.Second)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(42)
	<-done

	require.Equal(t, PopOK, res.Status)
	require.Equal(t, 42, res.Item)
	require.Less(t, time.Since(start), time.Second)
}

func TestPopTimesOut(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	res := q.Pop(20 * time.Millisecond)
	require.Equal(t, PopTimedOut, res.Status)
}

// TestAbortWakesAllWaiters verifies the liveness property: every goroutine
// blocked in Pop must return within roughly one timeout period of Abort,
// regardless of how many are waiting (spec §8 testable property 2).
func TestAbortWakesAllWaiters(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	const waiters = 8

	var wg sync.WaitGroup
	var woke atomic.Int32
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			res := q.Pop(5 * time.Second)
			if res.Status == PopAborted {
				woke.Add(1)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Abort()

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("not every waiter woke up within one second of Abort")
	}
	require.EqualValues(t, waiters, woke.Load())
}

func TestAbortReleasesHeldItems(t *testing.T) {
	t.Parallel()

	var released []int
	q := New[int](func(item int) { released = append(released, item) })
	q.Push(1)
	q.Push(2)
	q.Push(3)

	q.Abort()
	require.Equal(t, []int{1, 2, 3}, released)
	require.Equal(t, 0, q.Size())
}

func TestPushAfterAbortReleasesImmediately(t *testing.T) {
	t.Parallel()

	var released int
	var mu sync.Mutex
	q := New[int](func(int) {
		mu.Lock()
		released++
		mu.Unlock()
	})
	q.Abort()
	q.Push(99)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, released)
}

func TestPopAfterAbortReturnsImmediately(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	q.Abort()

	start := time.Now()
	res := q.Pop(5 * time.Second)
	require.Equal(t, PopAborted, res.Status)
	require.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestFrontDoesNotRemove(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	q.Push(7)

	front := q.Front()
	require.Equal(t, FrontOK, front.Status)
	require.Equal(t, 7, front.Item)
	require.Equal(t, 1, q.Size())

	res := q.Pop(0)
	require.Equal(t, PopOK, res.Status)
	require.Equal(t, 7, res.Item)
}

func TestFrontOnEmptyQueue(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	front := q.Front()
	require.Equal(t, FrontEmpty, front.Status)
}

func TestFrontOnAbortedQueue(t *testing.T) {
	t.Parallel()

	q := New[int](nil)
	q.Abort()
	front := q.Front()
	require.Equal(t, FrontAborted, front.Status)
}

func TestAbortIsIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	q := New[int](func(int) { calls++ })
	q.Push(1)
	q.Abort()
	q.Abort()
	require.Equal(t, 1, calls)
}
