// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file owns the on-region Control Block layout and the Region
// lifecycle (open/attach/close/unlink). See doc.go for a package tour.
package nabd

import (
	"encoding/binary"
	"os"
	"unsafe"

	"code.hybscloud.com/atomix"

	"github.com/YASSERRMD/nabd/internal/shmio"
)

// magic identifies a nabd region: "NABD" + format version 1, per spec.md §3.
const magic uint64 = 0x4442414E00010000

// version is (major<<16)|minor for this build of the on-region format.
const version uint64 = (1 << 16) | 0

const controlBlockSize = 256
const consumerGroupSize = 64
const maxGroups = 16

// slotHeaderSize is the fixed 8-byte header prefixing every slot's payload.
const slotHeaderSize = 8

// defaultCapacity and defaultSlotSize are applied when Open is called with
// FlagCreate and the caller didn't set WithCapacity/WithSlotSize.
const (
	defaultCapacity = 1024
	defaultSlotSize = 4096
	minSlotSize     = 16
)

// controlBlock is the 256-byte, four-cache-line header at the start of
// every region. Field layout and ordering responsibilities are exactly as
// specified in spec.md §3: Line 0 is written once at creation, Line 1 is
// producer-owned, Line 2 is the single-consumer tail, Line 3 is reserved
// (its first word doubles as the producer's last-activity timestamp, the
// option spec.md §9 offers in place of the "placeholder" last-activity
// field). The first of Line 0's three reserved words is an internal flag
// marking whether a Multi-Consumer Table follows the ring.
//
// atomix.Uint64 is a zero-overhead wrapper around a plain uint64 (the same
// relationship sync/atomic.Uint64 has to uint64), so it is valid to place
// directly inside a struct that's reinterpreted over mmap'd bytes — the
// same technique the AlephTX feeder/shm package uses for raw uint32 fields,
// generalized here to atomix's explicit-ordering API.
type controlBlock struct {
	// Line 0: immutable after init.
	magicField    uint64
	versionField  uint64
	capacity      uint64
	slotSize      uint64
	bufferOffset  uint64
	spmcEnabled   uint64 // 0 or 1; reserved-word use, see doc comment above
	reservedLine0 [2]uint64

	// Line 1: producer-owned.
	head atomix.Uint64
	_    [56]byte

	// Line 2: single-consumer-owned.
	tail atomix.Uint64
	_    [56]byte

	// Line 3: reserved; first word repurposed as last-activity timestamp.
	lastActivityNs atomix.Uint64
	_              [56]byte
}

func init() {
	if unsafe.Sizeof(controlBlock{}) != controlBlockSize {
		panic("nabd: controlBlock size invariant violated")
	}
	if unsafe.Offsetof(controlBlock{}.head)%64 != 0 {
		panic("nabd: controlBlock.head is not cache-line aligned")
	}
	if unsafe.Offsetof(controlBlock{}.tail)%64 != 0 {
		panic("nabd: controlBlock.tail is not cache-line aligned")
	}
}

// consumerGroup is the 64-byte per-group read cursor, see spec.md §3.
type consumerGroup struct {
	tail    atomix.Uint64
	active  atomix.Uint32
	groupID uint32
	_       [48]byte
}

func init() {
	if unsafe.Sizeof(consumerGroup{}) != consumerGroupSize {
		panic("nabd: consumerGroup size invariant violated")
	}
}

// consumerTable is the fixed-capacity table of consumer groups, present
// when a region is created with WithSPMC(). It lives immediately past the
// ring buffer (spec.md §4.4).
const consumerTableMagic uint64 = 0x47524F5550000000 // "GROUP" tag, arbitrary

type consumerTable struct {
	magicField uint64
	numGroups  uint64
	_          [48]byte
	groups     [maxGroups]consumerGroup
}

const consumerTableSize = 64 + maxGroups*consumerGroupSize

func init() {
	if unsafe.Sizeof(consumerTable{}) != consumerTableSize {
		panic("nabd: consumerTable size invariant violated")
	}
}

// OpenFlags select create/producer/consumer intent, per spec.md §6.
type OpenFlags uint32

const (
	FlagCreate   OpenFlags = 1
	FlagProducer OpenFlags = 2
	FlagConsumer OpenFlags = 4
)

// Options configures Open. Use the With* functions to build it; the zero
// value applies spec.md's defaults (capacity 1024, slot_size 4096, SPSC).
type Options struct {
	Capacity int
	SlotSize int
	Flags    OpenFlags
	SPMC     bool
}

// OptionFunc configures Options. This is the region-lifecycle analogue of
// the teacher package's chained *Builder methods, expressed as the more
// idiomatic Go functional-options pattern since Open returns an error
// rather than panicking on misconfiguration.
type OptionFunc func(*Options)

// WithCapacity sets the requested slot count (rounded up to a power of two,
// minimum 2). Ignored when attaching to an existing region.
func WithCapacity(n int) OptionFunc { return func(o *Options) { o.Capacity = n } }

// WithSlotSize sets the requested per-slot size in bytes (minimum 16,
// includes the 8-byte header). Ignored when attaching to an existing
// region.
func WithSlotSize(n int) OptionFunc { return func(o *Options) { o.SlotSize = n } }

// WithFlags sets the open flags (CREATE/PRODUCER/CONSUMER, bitwise OR'd).
func WithFlags(f OpenFlags) OptionFunc { return func(o *Options) { o.Flags = f } }

// WithSPMC requests a Multi-Consumer Table be allocated alongside the ring.
// Only meaningful together with FlagCreate.
func WithSPMC() OptionFunc { return func(o *Options) { o.SPMC = true } }

// Region is a handle to a mapped shared-memory queue region. A Region is
// safe for concurrent use by the single producer and any number of
// consumers within the access-pattern rules of spec.md §5; it is not safe
// to share a single *Region value's reservation state (see handle.go)
// across goroutines acting as independent producers.
type Region struct {
	name     string
	mapping  *shmio.Mapping
	cb       *controlBlock
	buf      []byte
	table    *consumerTable
	capacity uint64
	slotSize uint64
	mask     uint64
	spmc     bool
	writable bool

	// Zero-copy reservation/peek state. Both are process-local per spec.md
	// §3 ("Zero-copy reservations are process-local state bound to the
	// producer handle"); a Region value is itself the per-process handle,
	// so it's the natural place for this state to live.
	reserved    bool
	reservePos  uint64
	reserveSize int

	peeked  bool
	peekPos uint64
}

// Open creates or attaches to a named shared-memory region per spec.md
// §4.1. name must be a POSIX-style leading-slash token (e.g. "/myqueue").
func Open(name string, opts ...OptionFunc) (*Region, error) {
	var o Options
	for _, f := range opts {
		f(&o)
	}

	if o.Flags&FlagCreate != 0 {
		r, err := create(name, o)
		if err == nil {
			return r, nil
		}
		var e *Error
		if asError(err, &e) {
			return nil, err
		}
		if !os.IsExist(err) {
			return nil, wrapSysErr("create region", err)
		}
		// Name already exists: fall back to attach (spec.md §4.1 step 2).
	}

	return attach(name, o.Flags&(FlagCreate|FlagProducer|FlagConsumer) != 0)
}

func create(name string, o Options) (*Region, error) {
	capacity := roundToPow2(orDefault(o.Capacity, defaultCapacity))
	slotSize := orDefault(o.SlotSize, defaultSlotSize)
	if slotSize < minSlotSize {
		return nil, ErrInvalid
	}

	total := int64(controlBlockSize) + int64(capacity)*int64(slotSize)
	if o.SPMC {
		total += consumerTableSize
	}

	m, err := shmio.Create(name, total)
	if err != nil {
		return nil, err
	}

	cb := (*controlBlock)(ptrAt(m.Data, 0))
	cb.magicField = magic
	cb.versionField = version
	cb.capacity = capacity
	cb.slotSize = uint64(slotSize)
	cb.bufferOffset = controlBlockSize
	if o.SPMC {
		cb.spmcEnabled = 1
	}
	cb.head.StoreRelease(0)
	cb.tail.StoreRelease(0)

	r := &Region{
		name:     name,
		mapping:  m,
		cb:       cb,
		buf:      m.Data[controlBlockSize : controlBlockSize+int64(capacity)*int64(slotSize)],
		capacity: capacity,
		slotSize: uint64(slotSize),
		mask:     capacity - 1,
		spmc:     o.SPMC,
		writable: true,
	}
	if o.SPMC {
		tableOff := controlBlockSize + int64(capacity)*int64(slotSize)
		table := (*consumerTable)(ptrAt(m.Data, tableOff))
		table.magicField = consumerTableMagic
		table.numGroups = maxGroups
		r.table = table
	}
	return r, nil
}

func attach(name string, writable bool) (*Region, error) {
	head, err := shmio.Attach(name, controlBlockSize, writable)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, wrapSysErr("attach region header", err)
	}

	cb := (*controlBlock)(ptrAt(head.Data, 0))
	if cb.magicField != magic {
		_ = head.Close()
		return nil, ErrInvalid
	}
	if cb.versionField != version {
		_ = head.Close()
		return nil, ErrVersion
	}

	capacity := cb.capacity
	slotSize := cb.slotSize
	total := int64(controlBlockSize) + int64(capacity)*int64(slotSize)
	if cb.spmcEnabled != 0 {
		total += consumerTableSize
	}

	if err := head.Remap(total, writable); err != nil {
		_ = head.Close()
		return nil, wrapSysErr("remap region", err)
	}

	cb = (*controlBlock)(ptrAt(head.Data, 0))
	r := &Region{
		name:     name,
		mapping:  head,
		cb:       cb,
		buf:      head.Data[controlBlockSize : controlBlockSize+int64(capacity)*int64(slotSize)],
		capacity: capacity,
		slotSize: slotSize,
		mask:     capacity - 1,
		spmc:     cb.spmcEnabled != 0,
		writable: writable,
	}
	if r.spmc {
		tableOff := controlBlockSize + int64(capacity)*int64(slotSize)
		r.table = (*consumerTable)(ptrAt(head.Data, tableOff))
	}
	return r, nil
}

// Close unmaps the region and releases the local handle. It deliberately
// never unlinks the name (spec.md §4.1).
func (r *Region) Close() error {
	if err := r.mapping.Close(); err != nil {
		return wrapSysErr("close region", err)
	}
	return nil
}

// Unlink removes name from the shared-memory namespace. Already-mapped
// processes retain access until they unmap.
func Unlink(name string) error {
	if err := shmio.Unlink(name); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return wrapSysErr("unlink region", err)
	}
	return nil
}

// Cap returns the usable slot capacity (a power of two).
func (r *Region) Cap() int { return int(r.capacity) }

// SlotSize returns the configured per-slot size in bytes, including the
// 8-byte header.
func (r *Region) SlotSize() int { return int(r.slotSize) }

func (r *Region) slotAt(index uint64) []byte {
	off := (index & r.mask) * r.slotSize
	return r.buf[off : off+r.slotSize]
}

func encodeSlotHeader(b []byte, length uint16, flags uint16, sequence uint32) {
	binary.LittleEndian.PutUint16(b[0:2], length)
	binary.LittleEndian.PutUint16(b[2:4], flags)
	binary.LittleEndian.PutUint32(b[4:8], sequence)
}

func decodeSlotHeader(b []byte) (length uint16, flags uint16, sequence uint32) {
	length = binary.LittleEndian.Uint16(b[0:2])
	flags = binary.LittleEndian.Uint16(b[2:4])
	sequence = binary.LittleEndian.Uint32(b[4:8])
	return
}

// ptrAt returns an unsafe.Pointer into b at byte offset off, the shared
// helper every typed view over a mapping goes through.
func ptrAt(b []byte, off int64) unsafe.Pointer {
	return unsafe.Pointer(&b[off])
}

func orDefault(v, def int) uint64 {
	if v <= 0 {
		return uint64(def)
	}
	return uint64(v)
}

// roundToPow2 rounds n up to the next power of two, minimum 2. Grounded on
// the teacher package's own roundToPow2 helper in options.go.
func roundToPow2(n uint64) uint64 {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
