// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared channel assertion helpers for Folio
// package tests.
//
// The pipeline is built out of channels, so nearly every test waits on
// one. [RequireReceive], [RequireStreamEnd], and [RequireNoReceive]
// encapsulate the timeout safety valve pattern (select with time.After
// fallback) so that a deadlocked pipeline fails a test with a message
// instead of hanging the suite. These helpers are the only place the
// test suite uses wall-clock timeouts.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since a missed message is never recoverable within a test.
package testutil
