// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

// ConsumerHandle is a process-local handle bound to one slot in a
// region's Multi-Consumer Table (spec.md §4.4). Multiple handles may be
// bound to the same group (ConsumerJoin); their Pop/Release calls race on
// the group's tail, giving work-sharing semantics within the group.
type ConsumerHandle struct {
	r         *Region
	slotIndex int
	groupID   uint32

	peeked  bool
	peekPos uint64
}

// GroupID returns the consumer group this handle is bound to.
func (h *ConsumerHandle) GroupID() uint32 { return h.groupID }

func (h *ConsumerHandle) group() *consumerGroup { return &h.r.table.groups[h.slotIndex] }

// ConsumerCreate claims a free slot in the region's consumer table and
// binds a new group to it. If groupID is 0, the group id is derived as
// slotIndex+1. The new group's tail is initialized to the current head,
// so it only observes messages published after it joins.
//
// Returns ErrInvalid if the region has no consumer table (opened without
// WithSPMC), ErrNoMem if all 16 slots are already claimed.
func (r *Region) ConsumerCreate(groupID uint32) (*ConsumerHandle, error) {
	if r.table == nil {
		return nil, ErrInvalid
	}

	for i := range r.table.groups {
		g := &r.table.groups[i]
		if g.active.CompareAndSwapAcqRel(0, 1) {
			gid := groupID
			if gid == 0 {
				gid = uint32(i) + 1
			}
			g.groupID = gid
			g.tail.StoreRelease(r.cb.head.LoadAcquire())
			return &ConsumerHandle{r: r, slotIndex: i, groupID: gid}, nil
		}
	}
	return nil, ErrNoMem
}

// ConsumerJoin returns a new handle bound to an existing, already-active
// group. Returns ErrNotFound if no active group has this id, ErrInvalid
// if the region has no consumer table.
func (r *Region) ConsumerJoin(groupID uint32) (*ConsumerHandle, error) {
	if r.table == nil {
		return nil, ErrInvalid
	}

	for i := range r.table.groups {
		g := &r.table.groups[i]
		if g.active.LoadAcquire() == 1 && g.groupID == groupID {
			return &ConsumerHandle{r: r, slotIndex: i, groupID: groupID}, nil
		}
	}
	return nil, ErrNotFound
}

// ConsumerClose releases local resources held by the handle. It does not
// deactivate the group: other processes may still be reading through it,
// and the core has no automatic cleanup of abandoned groups by design
// (spec.md §1 Non-goals).
func (h *ConsumerHandle) ConsumerClose() {
	h.peeked = false
}

// Pop removes and copies the next message for this group into dst. See
// Region.Pop for the copy/ErrTooBig/ErrEmpty contract; this differs only
// in using the group's own tail instead of the region's single-consumer
// tail.
func (h *ConsumerHandle) Pop(dst []byte) (int, error) {
	g := h.group()
	tail := g.tail.LoadRelaxed()
	head := h.r.cb.head.LoadAcquire()
	if tail == head {
		return 0, ErrEmpty
	}

	slot := h.r.slotAt(tail)
	length, _, _ := decodeSlotHeader(slot)
	if int(length) > len(dst) {
		return int(length), ErrTooBig
	}
	n := copy(dst, slot[slotHeaderSize:slotHeaderSize+int(length)])

	g.tail.StoreRelease(tail + 1)
	return n, nil
}

// Peek returns the next pending message for this group without advancing
// its tail. See Region.Peek for the Peeked contract.
func (h *ConsumerHandle) Peek() (*GroupPeeked, error) {
	g := h.group()
	tail := g.tail.LoadRelaxed()
	head := h.r.cb.head.LoadAcquire()
	if tail == head {
		return nil, ErrEmpty
	}

	slot := h.r.slotAt(tail)
	length, _, _ := decodeSlotHeader(slot)

	h.peeked = true
	h.peekPos = tail
	return &GroupPeeked{h: h, bytes: slot[slotHeaderSize:], length: length}, nil
}

// GroupPeeked is the consumer-group analogue of Peeked.
type GroupPeeked struct {
	h      *ConsumerHandle
	bytes  []byte
	length uint16
}

// Bytes returns the message payload. Do not retain this slice past the
// matching call to Release.
func (p *GroupPeeked) Bytes() []byte { return p.bytes[:p.length] }

// Release advances the group's tail by one.
func (p *GroupPeeked) Release() {
	p.h.group().tail.StoreRelease(p.h.peekPos + 1)
	p.h.peeked = false
}

// GroupStats is a point-in-time snapshot of one consumer group.
type GroupStats struct {
	GroupID uint32
	Active  bool
	Tail    uint64
	Lag     uint64 // head - tail, i.e. messages not yet consumed by this group
}

// Stats returns a snapshot of this handle's group.
func (h *ConsumerHandle) Stats() GroupStats {
	g := h.group()
	tail := g.tail.LoadAcquire()
	head := h.r.cb.head.LoadAcquire()
	lag := uint64(0)
	if head > tail {
		lag = head - tail
	}
	return GroupStats{
		GroupID: g.groupID,
		Active:  g.active.LoadAcquire() == 1,
		Tail:    tail,
		Lag:     lag,
	}
}

// minTail returns the minimum tail across all active consumer groups,
// and whether at least one group is active. spec.md §9 fixes this as the
// value a fan-out producer's full-check must use in place of the plain
// control-block tail (see Region.fullCheckTail in ring.go).
func (r *Region) minTail() (uint64, bool) {
	if r.table == nil {
		return 0, false
	}

	var min uint64
	found := false
	for i := range r.table.groups {
		g := &r.table.groups[i]
		if g.active.LoadAcquire() != 1 {
			continue
		}
		t := g.tail.LoadAcquire()
		if !found || t < min {
			min = t
			found = true
		}
	}
	return min, found
}

// MinTail returns the minimum tail across all active consumer groups,
// falling back to the control-block tail when no group is active
// (spec.md §4.4).
func (r *Region) MinTail() uint64 {
	if mt, ok := r.minTail(); ok {
		return mt
	}
	return r.cb.tail.LoadAcquire()
}

// Groups returns a snapshot of every active consumer group, for
// diagnostics and stats reporting. Returns nil if the region wasn't
// opened with WithSPMC.
func (r *Region) Groups() []GroupStats {
	if r.table == nil {
		return nil
	}

	head := r.cb.head.LoadAcquire()
	var out []GroupStats
	for i := range r.table.groups {
		g := &r.table.groups[i]
		if g.active.LoadAcquire() != 1 {
			continue
		}
		tail := g.tail.LoadAcquire()
		lag := uint64(0)
		if head > tail {
			lag = head - tail
		}
		out = append(out, GroupStats{
			GroupID: g.groupID,
			Active:  true,
			Tail:    tail,
			Lag:     lag,
		})
	}
	return out
}
