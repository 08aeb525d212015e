// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// RequireReceive reads one value from ch within timeout, or fails the
// test. The channel being closed also fails the test: callers that
// expect stream end use [RequireStreamEnd] instead.
//
//	result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for page %d", page)
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, format string, args ...any) T {
	t.Helper()
	select {
	case v, open := <-ch:
		if !open {
			t.Fatalf("channel closed while %s", message(format, args))
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v while %s", timeout, message(format, args))
	}
	panic("unreachable")
}

// RequireStreamEnd waits for ch to be closed within timeout. Receiving
// a value fails the test: stream end means no further values, not
// eventually-closed.
func RequireStreamEnd[T any](t testing.TB, ch <-chan T, timeout time.Duration, format string, args ...any) {
	t.Helper()
	select {
	case v, open := <-ch:
		if open {
			t.Fatalf("received %v while %s (expected stream end)", v, message(format, args))
		}
	case <-time.After(timeout):
		t.Fatalf("timed out after %v while %s", timeout, message(format, args))
	}
}

// RequireNoReceive asserts that ch delivers nothing for the full wait
// duration. Use short waits: this is the one helper whose happy path
// costs its whole timeout.
func RequireNoReceive[T any](t testing.TB, ch <-chan T, wait time.Duration, format string, args ...any) {
	t.Helper()
	select {
	case v, open := <-ch:
		if open {
			t.Fatalf("received unexpected value %v while %s", v, message(format, args))
		}
		t.Fatalf("channel closed while %s", message(format, args))
	case <-time.After(wait):
	}
}

// RequireClosed waits for a signal channel to close (or deliver) within
// timeout. Use for readiness channels that signal by closing.
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, format string, args ...any) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v while %s", timeout, message(format, args))
	}
}

func message(format string, args []any) string {
	if format == "" {
		return "(no message)"
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
