package queue_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/checker/fingerprint"
	"github.com/luxfi/checker/queue"
)

func TestPushPopOrder(t *testing.T) {
	q := queue.New[int, string](false)
	q.Push(queue.Entry[int, string]{State: 1, Depth: 0})
	q.Push(queue.Entry[int, string]{State: 2, Depth: 1})

	e, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 0, e.Depth)
	q.TaskDone(e.Depth)

	e, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, e.Depth)
	q.TaskDone(e.Depth)
}

func TestPopReturnsFalseWhenDrained(t *testing.T) {
	q := queue.New[int, string](false)
	q.Push(queue.Entry[int, string]{State: 1, Depth: 0})

	e, ok := q.Pop()
	require.True(t, ok)
	q.TaskDone(e.Depth)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestStrictBFSWithholdsDeeperWork(t *testing.T) {
	q := queue.New[int, string](true)
	q.Push(queue.Entry[int, string]{State: 0, Depth: 0})
	q.Push(queue.Entry[int, string]{State: 1, Depth: 1})

	e0, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 0, e0.Depth)

	popped := make(chan queue.Entry[int, string], 1)
	go func() {
		e, ok := q.Pop()
		if ok {
			popped <- e
		}
	}()

	select {
	case <-popped:
		t.Fatal("depth-1 entry popped while depth-0 entry still in flight")
	default:
	}

	q.TaskDone(e0.Depth)
	e1 := <-popped
	require.Equal(t, 1, e1.Depth)
	q.TaskDone(e1.Depth)
}

func TestConcurrentProducersConsumersDrainFully(t *testing.T) {
	q := queue.New[int, string](false)
	const n = 500
	for i := 0; i < n; i++ {
		q.Push(queue.Entry[int, string]{State: i, Depth: i % 5, ParentFP: fingerprint.Zero})
	}

	var mu sync.Mutex
	seen := map[int]bool{}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				e, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				seen[e.State] = true
				mu.Unlock()
				q.TaskDone(e.Depth)
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, n)
}
