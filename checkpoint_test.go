// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChecksum_RotL13OfXORedFields(t *testing.T) {
	c := Checkpoint{Magic: checkpointMagic, TimestampNs: 12345, GroupID: 3, Tail: 40}
	got := c.checksum()

	want := rotl13Reference(c.Magic ^ c.TimestampNs ^ uint64(c.GroupID) ^ c.Tail)
	if got != want {
		t.Fatalf("checksum = %#x, want %#x", got, want)
	}
}

func rotl13Reference(x uint64) uint64 {
	return (x << 13) | (x >> (64 - 13))
}

func TestCheckpoint_SaveLoadRoundTrip(t *testing.T) {
	r, _ := mustOpenCreate(t, WithCapacity(128), WithSlotSize(32), WithSPMC())
	g, err := r.ConsumerCreate(9)
	if err != nil {
		t.Fatalf("ConsumerCreate: %v", err)
	}

	for i := 0; i < 100; i++ {
		r.Push([]byte{byte(i)})
	}
	buf := make([]byte, 32)
	for i := 0; i < 40; i++ {
		if _, err := g.Pop(buf); err != nil {
			t.Fatalf("Pop %d: %v", i, err)
		}
	}

	path := filepath.Join(t.TempDir(), "group9.ckpt")
	if err := CheckpointSave(g, path, 1000); err != nil {
		t.Fatalf("CheckpointSave: %v", err)
	}

	ckpt, err := CheckpointLoad(path)
	if err != nil {
		t.Fatalf("CheckpointLoad: %v", err)
	}
	if ckpt.GroupID != 9 || ckpt.Tail != 40 {
		t.Fatalf("ckpt = %+v, want GroupID=9 Tail=40", ckpt)
	}
}

func TestCheckpointLoad_MissingFileIsNotFound(t *testing.T) {
	_, err := CheckpointLoad(filepath.Join(t.TempDir(), "missing.ckpt"))
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCheckpointLoad_CorruptedChecksumIsCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ckpt")
	c := Checkpoint{Magic: checkpointMagic, TimestampNs: 1, GroupID: 1, Tail: 1}
	b := c.encode()
	b[len(b)-1] ^= 0xFF // flip a bit in the checksum
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := CheckpointLoad(path)
	if err != ErrCorrupted {
		t.Fatalf("err = %v, want ErrCorrupted", err)
	}
}

func TestConsumerResume_ClampsTailToCurrentHead(t *testing.T) {
	r, _ := mustOpenCreate(t, WithCapacity(128), WithSlotSize(32), WithSPMC())
	r.Push([]byte("a"))
	r.Push([]byte("b"))

	ckpt := Checkpoint{GroupID: 3, Tail: 1000} // far ahead of current head (2)

	h, err := ConsumerResume(r, ckpt)
	if err != nil {
		t.Fatalf("ConsumerResume: %v", err)
	}
	if got := h.Stats().Tail; got != r.Head() {
		t.Fatalf("resumed tail = %d, want clamped to head %d", got, r.Head())
	}
}

func FuzzCheckpoint_EncodeDecodeRoundTrip(f *testing.F) {
	f.Add(checkpointMagic, uint64(12345), uint32(3), uint64(40))
	f.Add(uint64(0), uint64(0), uint32(0), uint64(0))
	f.Add(checkpointMagic, ^uint64(0), ^uint32(0), ^uint64(0))

	f.Fuzz(func(t *testing.T, magic, ts uint64, group uint32, tail uint64) {
		c := Checkpoint{Magic: magic, TimestampNs: ts, GroupID: group, Tail: tail}
		c.Checksum = c.checksum()
		b := c.encode()

		decoded, err := decodeCheckpoint(b)
		if magic != checkpointMagic {
			if err != ErrCorrupted {
				t.Fatalf("decode with wrong magic: err = %v, want ErrCorrupted", err)
			}
			return
		}
		if err != nil {
			t.Fatalf("round trip with correct magic failed: %v", err)
		}
		if decoded != c {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, c)
		}

		// Flipping one bit in any byte outside _pad must not decode back to
		// the same checkpoint. The four _pad bytes are skipped: they are
		// never read back, so a flip there is not detectable.
		for i := range b {
			corrupt := append([]byte(nil), b...)
			corrupt[i] ^= 0x01
			if i >= 20 && i < 24 {
				continue // _pad byte, not part of the checksum domain
			}
			if got, err := decodeCheckpoint(corrupt); err == nil && got == c {
				t.Fatalf("single-bit flip at byte %d silently accepted", i)
			}
		}
	})
}

func TestConsumerResume_ExactTailWhenWithinHead(t *testing.T) {
	r, _ := mustOpenCreate(t, WithCapacity(128), WithSlotSize(32), WithSPMC())
	for i := 0; i < 100; i++ {
		r.Push([]byte{byte(i)})
	}

	ckpt := Checkpoint{GroupID: 4, Tail: 40}
	h, err := ConsumerResume(r, ckpt)
	if err != nil {
		t.Fatalf("ConsumerResume: %v", err)
	}
	if h.Stats().Tail != 40 {
		t.Fatalf("resumed tail = %d, want 40", h.Stats().Tail)
	}

	buf := make([]byte, 32)
	n, err := h.Pop(buf)
	if err != nil {
		t.Fatalf("Pop after resume: %v", err)
	}
	if n != 1 || buf[0] != 40 {
		t.Fatalf("Pop after resume = %v, want [40]", buf[:n])
	}
}
