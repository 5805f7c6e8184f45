// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package nabd implements a single-node, lock-free, zero-copy
// inter-process message queue backed by a POSIX shared-memory region.
//
// A producer writes fixed-maximum-size messages into a ring of slots
// living in a named region under /dev/shm; one or more consumers read
// them independently, either directly off the control-block tail (plain
// SPSC) or through an opt-in table of per-group read cursors (SPMC
// fan-out). The region is the only shared state — no kernel locks, no
// sockets, no external broker.
//
// # Quick Start
//
//	r, err := nabd.Open("/orders", nabd.WithFlags(nabd.FlagCreate|nabd.FlagProducer),
//		nabd.WithCapacity(4096), nabd.WithSlotSize(256))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//
//	if err := r.Push([]byte("order-123")); err != nil {
//		// nabd.ErrFull: ring has no free slot for the current tail
//	}
//
// A consumer in another process attaches to the same name:
//
//	r, err := nabd.Open("/orders", nabd.WithFlags(nabd.FlagConsumer))
//	buf := make([]byte, 256)
//	n, err := r.Pop(buf)
//	if nabd.IsWouldBlock(err) {
//		// ErrEmpty: nothing pending yet
//	}
//
// # Zero-Copy Handles
//
// Reserve/Commit lets a producer write the payload directly into the
// mapped slot instead of handing Push a fully-built []byte:
//
//	buf, err := r.Reserve(64)
//	if err == nil {
//		n := copy(buf, encode(event))
//		r.Commit(n)
//	}
//
// Peek/Release is the consumer-side equivalent — the returned bytes are
// read-only by contract and are invalidated the instant Release runs:
//
//	p, err := r.Peek()
//	if err == nil {
//		process(p.Bytes())
//		p.Release()
//	}
//
// # Fan-Out (SPMC)
//
// A region created with WithSPMC() carries a fixed 16-slot consumer group
// table. Each group gets its own read cursor; multiple handles may join
// the same group to share its work, or separate groups to each see every
// message independently:
//
//	r, _ := nabd.Open("/events", nabd.WithFlags(nabd.FlagCreate|nabd.FlagProducer),
//		nabd.WithSPMC())
//	g1, _ := r.ConsumerCreate(0) // group_id derived from slot index
//	g2, _ := r.ConsumerCreate(0)
//	// g1 and g2 each observe every message pushed from this point on
//
// # Error Handling
//
// Operations return a [*Error] carrying one of the stable [Code] values
// from the region's wire-level error taxonomy (EMPTY, FULL, NOMEM,
// INVALID, EXISTS, NOTFOUND, TOOBIG, CORRUPTED, VERSION, PERMISSION,
// SYSERR). [IsWouldBlock] classifies the two control-flow signals
// (EMPTY/FULL) callers are expected to retry on; [IsSemantic] also
// includes NOTFOUND. Both fall back to [code.hybscloud.com/iox]'s
// classification for non-nabd errors, so callers composing nabd with
// other iox-based packages get one consistent retry check:
//
//	for {
//		err := r.Push(msg)
//		if err == nil {
//			break
//		}
//		if !nabd.IsWouldBlock(err) {
//			return err
//		}
//		time.Sleep(time.Millisecond)
//	}
//
// PushWait and PushBackoff in metrics.go wrap this loop with the spin/sleep
// and exponential-backoff policies described by the region's backpressure
// design; most callers should reach for those instead of hand-rolling a
// retry loop.
//
// # Diagnostics & Recovery
//
// [Diagnose] attaches read-only to an existing region's control block and
// classifies its state without disturbing it; [Recover] performs the one
// supported repair (forcing tail up to head, discarding pending messages).
// [CheckpointSave]/[CheckpointLoad]/[ConsumerResume] give a consumer a way
// to persist and restore its read cursor across restarts.
//
// # Memory Ordering
//
// Every cross-process synchronization point in this package is an
// explicit-ordering atomic from [code.hybscloud.com/atomix] — relaxed for
// self-loads, acquire for observing the peer's progress, release for
// publishing. This package never relies on the Go race detector to prove
// correctness of the ring protocol: cross-process shared memory isn't
// something -race can see in the first place, and even the in-process
// ordering-only synchronization this code depends on is a known source of
// false positives under -race. RaceEnabled (race.go/race_off.go) gates
// the tests known to trip over this.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for ordering-explicit
// atomics, [code.hybscloud.com/iox] for semantic error classification of
// non-nabd errors, [code.hybscloud.com/spin] for CPU-pause spin-waiting, and
// golang.org/x/sys/unix for the raw mmap/ftruncate/unlink calls in
// internal/shmio.
package nabd
