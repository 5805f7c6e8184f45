// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/YASSERRMD/nabd/internal/shmio"
)

func testName(t *testing.T) string {
	return fmt.Sprintf("/nabd-test-%d-%d", os.Getpid(), time.Now().UnixNano())
}

func mustOpenCreate(t *testing.T, opts ...OptionFunc) (*Region, string) {
	t.Helper()
	name := testName(t)
	all := append([]OptionFunc{WithFlags(FlagCreate | FlagProducer)}, opts...)
	r, err := Open(name, all...)
	if err != nil {
		t.Fatalf("Open(create): %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = Unlink(name)
	})
	return r, name
}

func TestOpen_CreateThenAttach_SeeSameGeometry(t *testing.T) {
	r, name := mustOpenCreate(t, WithCapacity(16), WithSlotSize(64))
	if r.Cap() != 16 {
		t.Fatalf("Cap() = %d, want 16", r.Cap())
	}
	if r.SlotSize() != 64 {
		t.Fatalf("SlotSize() = %d, want 64", r.SlotSize())
	}

	attached, err := Open(name, WithFlags(FlagConsumer))
	if err != nil {
		t.Fatalf("Open(attach): %v", err)
	}
	defer attached.Close()

	if attached.Cap() != 16 || attached.SlotSize() != 64 {
		t.Fatalf("attached geometry mismatch: cap=%d slot=%d", attached.Cap(), attached.SlotSize())
	}
}

func TestOpen_CapacityRoundsUpToPowerOfTwo(t *testing.T) {
	r, _ := mustOpenCreate(t, WithCapacity(17), WithSlotSize(32))
	if r.Cap() != 32 {
		t.Fatalf("Cap() = %d, want 32", r.Cap())
	}
}

func TestOpen_SlotSizeBelowMinimumIsInvalid(t *testing.T) {
	name := testName(t)
	_, err := Open(name, WithFlags(FlagCreate|FlagProducer), WithSlotSize(8))
	if err != ErrInvalid {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestOpen_CreateFallsBackToAttachWhenNameExists(t *testing.T) {
	r1, name := mustOpenCreate(t, WithCapacity(8), WithSlotSize(32))
	_ = r1

	r2, err := Open(name, WithFlags(FlagCreate|FlagProducer), WithCapacity(999), WithSlotSize(999))
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer r2.Close()

	if r2.Cap() != 8 || r2.SlotSize() != 32 {
		t.Fatalf("fallback attach saw wrong geometry: cap=%d slot=%d", r2.Cap(), r2.SlotSize())
	}
}

func TestOpen_NonexistentAttachIsNotFound(t *testing.T) {
	_, err := Open(testName(t), WithFlags(FlagConsumer))
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOpen_BadMagicIsInvalid(t *testing.T) {
	name := testName(t)
	r, err := Open(name, WithFlags(FlagCreate|FlagProducer), WithCapacity(8), WithSlotSize(32))
	if err != nil {
		t.Fatalf("Open(create): %v", err)
	}
	r.Close()
	t.Cleanup(func() { _ = Unlink(name) })

	path := filepath.Join(shmio.Dir, name[1:])
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("reopen backing file: %v", err)
	}
	if _, err := f.WriteAt([]byte{0, 0, 0, 0, 0, 0, 0, 0}, 0); err != nil {
		t.Fatalf("corrupt magic: %v", err)
	}
	f.Close()

	_, err = Open(name, WithFlags(FlagConsumer))
	if err != ErrInvalid {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestOpen_SPMCAllocatesConsumerTable(t *testing.T) {
	r, _ := mustOpenCreate(t, WithCapacity(8), WithSlotSize(32), WithSPMC())
	if r.table == nil {
		t.Fatal("expected non-nil consumer table for WithSPMC region")
	}
	if r.table.numGroups != maxGroups {
		t.Fatalf("numGroups = %d, want %d", r.table.numGroups, maxGroups)
	}
}

func TestControlBlockLayout_SizesAndAlignment(t *testing.T) {
	// Mirrors the init() assertions in region.go; a test-visible check
	// that those invariants (spec.md §5) hold, independent of whether
	// init() would have already panicked at package load.
	var cb controlBlock
	if sz := int(unsafe.Sizeof(cb)); sz != controlBlockSize {
		t.Fatalf("sizeof(controlBlock) = %d, want %d", sz, controlBlockSize)
	}
	if off := unsafe.Offsetof(cb.head); off%64 != 0 {
		t.Fatalf("offsetof(controlBlock.head) = %d, want a multiple of 64", off)
	}
	if off := unsafe.Offsetof(cb.tail); off%64 != 0 {
		t.Fatalf("offsetof(controlBlock.tail) = %d, want a multiple of 64", off)
	}
	var cg consumerGroup
	if sz := int(unsafe.Sizeof(cg)); sz != consumerGroupSize {
		t.Fatalf("sizeof(consumerGroup) = %d, want %d", sz, consumerGroupSize)
	}
}
