// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

import "time"

// Reserve claims the next slot for a zero-copy write without publishing it
// (spec.md §4.3). The caller writes directly into the returned bytes,
// then calls Commit with however many bytes were actually written.
//
// Only one reservation may be outstanding per Region value at a time; a
// second Reserve before Commit returns ErrInvalid. Reserve shares the
// same preconditions as Push: ErrTooBig if len exceeds the slot payload
// size, ErrFull if the ring has no free slot.
func (r *Region) Reserve(length int) ([]byte, error) {
	if r.reserved {
		return nil, ErrInvalid
	}
	if length > int(r.slotSize)-slotHeaderSize {
		return nil, ErrTooBig
	}

	head := r.cb.head.LoadRelaxed()
	tail := r.fullCheckTail()
	if head-tail >= r.capacity {
		return nil, ErrFull
	}

	r.reserved = true
	r.reservePos = head
	r.reserveSize = length

	slot := r.slotAt(head)
	return slot[slotHeaderSize : slotHeaderSize+length], nil
}

// Commit publishes a previously reserved slot. n must not exceed the
// length passed to Reserve; it may be smaller if the caller wrote less
// than requested. Returns ErrInvalid if no reservation is outstanding.
func (r *Region) Commit(n int) error {
	if !r.reserved {
		return ErrInvalid
	}
	if n > r.reserveSize {
		return ErrInvalid
	}

	slot := r.slotAt(r.reservePos)
	encodeSlotHeader(slot, uint16(n), 0, uint32(r.reservePos))

	r.cb.lastActivityNs.StoreRelaxed(uint64(time.Now().UnixNano()))
	r.cb.head.StoreRelease(r.reservePos + 1)

	r.reserved = false
	r.reservePos = 0
	r.reserveSize = 0
	return nil
}

// Abandon discards an outstanding reservation without publishing it. The
// slot remains unpublished and its bytes will be overwritten by the next
// Reserve/Push at the same index; no consumer ever observes it. This is
// not a spec.md-named operation but a convenience for callers that decide
// mid-write not to send a message, matching spec.md §4.3's abort
// semantics for a handle that is simply never committed.
func (r *Region) Abandon() {
	r.reserved = false
	r.reservePos = 0
	r.reserveSize = 0
}

// Peeked is a zero-copy view of the next pending message returned by
// Peek. Its bytes are read-only by contract and are invalidated the
// instant Release is called.
type Peeked struct {
	r      *Region
	bytes  []byte
	length uint16
}

// Bytes returns the message payload. Do not retain this slice past the
// matching call to Release.
func (p *Peeked) Bytes() []byte { return p.bytes[:p.length] }

// Release advances the single-consumer tail by one, invalidating the
// bytes returned by the Peek that produced p. Calling Release more than
// once for the same Peek is a caller error (spec.md does not define this
// case; callers must track it, matching the single-outstanding-handle
// discipline used for Reserve/Commit).
func (p *Peeked) Release() {
	p.r.cb.tail.StoreRelease(p.r.peekPos + 1)
	p.r.peeked = false
}

// Peek returns the next pending message without advancing the tail
// (spec.md §4.3). Multiple Peek calls before Release return the same
// message. Returns ErrEmpty if nothing is pending.
func (r *Region) Peek() (*Peeked, error) {
	tail := r.cb.tail.LoadRelaxed()
	head := r.cb.head.LoadAcquire()
	if tail == head {
		return nil, ErrEmpty
	}

	slot := r.slotAt(tail)
	length, _, _ := decodeSlotHeader(slot)

	r.peeked = true
	r.peekPos = tail
	return &Peeked{r: r, bytes: slot[slotHeaderSize:], length: length}, nil
}
