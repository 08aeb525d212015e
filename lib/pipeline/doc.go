// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline is the orchestration core of Folio. It owns the four
// one-directional queues connecting the orchestrator to the render and
// convert workers, owns the page buffer that accumulates encoded pages,
// and runs the reconciliation loop that merges both result streams and
// issues corrective retarget commands.
//
// The shape of a session:
//
//	render worker ──(rasters)──▶ orchestrator ──(conversion requests)──▶ convert worker
//	convert worker ──(artifacts)──▶ orchestrator ──▶ page buffer ──▶ consumer
//
// The render worker announces the page count once, first; the
// orchestrator sizes the page buffer, forwards the announcement, and
// from then on relays rasters to the convert worker. Each artifact
// fills exactly one buffer slot. Because the convert worker only
// encodes pages inside a prerender window around its current target,
// the orchestrator closes the loop after every fill: if any slot is
// still empty, it retargets the convert worker at the first empty
// index, guaranteeing every slot is eventually filled rather than only
// those near the first target.
//
// A session terminates exactly when the buffer is non-empty and every
// slot is filled. Both invariants matter: before the page count
// arrives the buffer is empty and would trivially contain no empty
// slot. Until that point the render command queue must stay open —
// closing it reads as "consumer gone" to the render worker, which
// would silently truncate the session.
//
// All failures are fatal. Protocol violations (duplicate page count,
// out-of-range or double-filled slot) indicate a worker bug; worker-
// reported errors indicate the document is unusable; a result stream
// ending early is a premature worker exit. Nothing is retried and no
// partially filled buffer is ever handed to the consumer.
//
// All session state is locally owned — no globals — so concurrent
// sessions in one process are fully independent.
package pipeline
