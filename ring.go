// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

import "time"

// Push publishes payload as the next message (spec.md §4.2). It returns
// ErrTooBig if payload doesn't fit in a slot, ErrFull if the ring has no
// free slot for the single consumer (or, for a fan-out region, for the
// slowest active group — see minTail).
//
// Push is producer-only: calling it concurrently from more than one
// goroutine/process races on head and is not a supported access pattern
// (spec.md §5's "who writes what").
func (r *Region) Push(payload []byte) error {
	if len(payload) > int(r.slotSize)-slotHeaderSize {
		return ErrTooBig
	}

	head := r.cb.head.LoadRelaxed()
	tail := r.fullCheckTail()
	if head-tail >= r.capacity {
		return ErrFull
	}

	slot := r.slotAt(head)
	copy(slot[slotHeaderSize:], payload)
	encodeSlotHeader(slot, uint16(len(payload)), 0, uint32(head))

	r.cb.lastActivityNs.StoreRelaxed(uint64(time.Now().UnixNano()))
	r.cb.head.StoreRelease(head + 1)
	return nil
}

// Pop removes and copies the next message into dst (spec.md §4.2, SPSC
// path — a region opened without WithSPMC uses the control-block tail
// directly). Returns the number of bytes copied. If dst is too small for
// the pending message, returns (required length, ErrTooBig) and does not
// advance tail. Returns ErrEmpty if no message is pending.
//
// Pop is single-consumer-only for a region without consumer groups; use
// ConsumerCreate/ConsumerJoin plus ConsumerHandle.Pop for fan-out.
func (r *Region) Pop(dst []byte) (int, error) {
	tail := r.cb.tail.LoadRelaxed()
	head := r.cb.head.LoadAcquire()
	if tail == head {
		return 0, ErrEmpty
	}

	slot := r.slotAt(tail)
	length, _, _ := decodeSlotHeader(slot)
	if int(length) > len(dst) {
		return int(length), ErrTooBig
	}
	n := copy(dst, slot[slotHeaderSize:slotHeaderSize+int(length)])

	r.cb.tail.StoreRelease(tail + 1)
	return n, nil
}

// Empty reports whether the single-consumer view of the ring has no
// pending message: head == tail.
func (r *Region) Empty() bool {
	return r.cb.head.LoadAcquire() == r.cb.tail.LoadAcquire()
}

// Full reports whether the ring has no free slot for a new Push, using
// the same tail the next Push would check (minTail in fan-out regions).
func (r *Region) Full() bool {
	return r.cb.head.LoadAcquire()-r.fullCheckTail() >= r.capacity
}

// Head returns the producer's current write index.
func (r *Region) Head() uint64 { return r.cb.head.LoadAcquire() }

// Tail returns the single-consumer's current read index.
func (r *Region) Tail() uint64 { return r.cb.tail.LoadAcquire() }

// Pending returns head-tail, guarding against a transient head<tail
// observation (possible only under concurrent load without synchronizing
// with this read) by clamping to zero.
func (r *Region) Pending() uint64 {
	head, tail := r.cb.head.LoadAcquire(), r.cb.tail.LoadAcquire()
	if head < tail {
		return 0
	}
	return head - tail
}

// fullCheckTail returns the tail value a Push should check against: the
// region's own tail for plain SPSC use, or minTail() across active groups
// once at least one consumer group exists. This is the Open Question
// spec.md §9 leaves to the implementation, resolved here as option (a).
func (r *Region) fullCheckTail() uint64 {
	if r.table == nil {
		return r.cb.tail.LoadAcquire()
	}
	if mt, ok := r.minTail(); ok {
		return mt
	}
	return r.cb.tail.LoadAcquire()
}
