// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"sync"
	"testing"
	"time"
)

func TestSendReceiveOrder(t *testing.T) {
	q := New[int]()
	defer q.Close()

	for i := 0; i < 100; i++ {
		if !q.Send(i) {
			t.Fatalf("Send(%d) returned false on open queue", i)
		}
	}

	for i := 0; i < 100; i++ {
		select {
		case got := <-q.Out():
			if got != i {
				t.Fatalf("received %d, want %d (FIFO order)", got, i)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for value %d", i)
		}
	}
}

func TestSendNeverBlocks(t *testing.T) {
	q := New[int]()
	defer q.Close()

	// No consumer at all: a large burst of sends must complete.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			q.Send(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sends blocked with no consumer; queue is not unbounded")
	}
}

func TestCloseDrainsBacklog(t *testing.T) {
	q := New[string]()
	q.Send("a")
	q.Send("b")
	q.Close()

	var got []string
	for v := range q.Out() {
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("drained %v, want [a b]", got)
	}
}

func TestSendAfterCloseDropped(t *testing.T) {
	q := New[int]()
	q.Close()

	if q.Send(1) {
		t.Error("Send after Close returned true, want false")
	}
	if _, ok := <-q.Out(); ok {
		t.Error("received a value sent after Close")
	}
}

func TestCloseIdempotent(t *testing.T) {
	q := New[int]()
	q.Close()
	q.Close()

	if _, ok := <-q.Out(); ok {
		t.Error("empty closed queue delivered a value")
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New[int]()

	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Send(base*perProducer + i)
			}
		}(p)
	}

	go func() {
		wg.Wait()
		q.Close()
	}()

	seen := make(map[int]bool)
	lastPerProducer := make(map[int]int)
	for v := range q.Out() {
		if seen[v] {
			t.Fatalf("value %d delivered twice", v)
		}
		seen[v] = true

		// Per-producer FIFO: values from one producer arrive in its
		// send order even when interleaved with other producers.
		producer := v / perProducer
		sequence := v % perProducer
		if last, ok := lastPerProducer[producer]; ok && sequence < last {
			t.Fatalf("producer %d: value %d arrived after %d", producer, sequence, last)
		}
		lastPerProducer[producer] = sequence
	}

	if len(seen) != producers*perProducer {
		t.Fatalf("delivered %d values, want %d", len(seen), producers*perProducer)
	}
}
