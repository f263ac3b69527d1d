// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batchdigest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func drain(q *workQueue) []string {
	var out []string
	for {
		b, ok := q.tryTake()
		if !ok {
			return out
		}
		out = append(out, b...)
	}
}

func TestWorkQueue_Order(t *testing.T) {
	t.Run("FIFO", func(t *testing.T) {
		q := newWorkQueue(10, FIFO, nil)
		for _, s := range []string{"a", "b", "c"} {
			require.True(t, q.put(bundle{s}))
		}
		assert.Equal(t, []string{"a", "b", "c"}, drain(q))
	})

	t.Run("LIFO", func(t *testing.T) {
		q := newWorkQueue(10, LIFO, nil)
		for _, s := range []string{"a", "b", "c"} {
			require.True(t, q.put(bundle{s}))
		}
		assert.Equal(t, []string{"c", "b", "a"}, drain(q))
	})
}

func TestWorkQueue_TryTakeEmpty(t *testing.T) {
	q := newWorkQueue(1, FIFO, nil)
	b, ok := q.tryTake()
	assert.False(t, ok)
	assert.Nil(t, b)
}

// The producer is held once the queue is over its soft bound and released
// as soon as a taker brings it back to the bound.
func TestWorkQueue_Backpressure(t *testing.T) {
	q := newWorkQueue(2, FIFO, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			q.put(bundle{"x"})
		}
	}()

	require.Eventually(t, func() bool { return q.len() == 3 }, time.Second, time.Millisecond)
	select {
	case <-done:
		t.Fatal("put returned while the queue was over capacity")
	case <-time.After(20 * time.Millisecond):
	}
	_, waits := q.snapshot()
	assert.Equal(t, int64(1), waits)

	_, ok := q.take()
	require.True(t, ok)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer was not released after a take")
	}

	peak, waits := q.snapshot()
	assert.Equal(t, 3, peak)
	assert.Equal(t, int64(1), waits)
}

func TestWorkQueue_PeakBounded(t *testing.T) {
	const max = 4
	q := newWorkQueue(max, FIFO, nil)

	var wg sync.WaitGroup
	var taken int
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if _, ok := q.take(); !ok {
				return
			}
			taken++
		}
	}()

	for i := 0; i < 1000; i++ {
		require.True(t, q.put(bundle{"x"}))
	}
	q.close()
	wg.Wait()

	peak, _ := q.snapshot()
	assert.LessOrEqual(t, peak, max+1)
	assert.Equal(t, 1000, taken)
}

func TestWorkQueue_CloseDrains(t *testing.T) {
	q := newWorkQueue(10, FIFO, nil)
	q.put(bundle{"a"})
	q.put(bundle{"b"})
	q.close()

	b, ok := q.take()
	require.True(t, ok)
	assert.Equal(t, bundle{"a"}, b)
	b, ok = q.take()
	require.True(t, ok)
	assert.Equal(t, bundle{"b"}, b)
	_, ok = q.take()
	assert.False(t, ok)
}

func TestWorkQueue_CloseWakesIdleTakers(t *testing.T) {
	q := newWorkQueue(1, FIFO, nil)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.take()
			assert.False(t, ok)
		}()
	}
	q.close()
	wg.Wait()
}

func TestWorkQueue_Abort(t *testing.T) {
	q := newWorkQueue(1, FIFO, nil)
	require.True(t, q.put(bundle{"a"}))

	result := make(chan bool, 1)
	go func() { result <- q.put(bundle{"b"}) }()
	require.Eventually(t, func() bool { return q.len() == 2 }, time.Second, time.Millisecond)

	q.abort()
	select {
	case ok := <-result:
		assert.False(t, ok, "put must report an aborted queue")
	case <-time.After(time.Second):
		t.Fatal("abort did not release the producer")
	}

	assert.Equal(t, 0, q.len())
	_, ok := q.take()
	assert.False(t, ok)
	assert.False(t, q.put(bundle{"c"}))
}
