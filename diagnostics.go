// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

import "github.com/YASSERRMD/nabd/internal/shmio"

// State classifies the result of Diagnose.
type State int

const (
	StateOK State = iota
	StateEmpty
	StateCorrupted
	StateVersionErr
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateEmpty:
		return "EMPTY"
	case StateCorrupted:
		return "CORRUPTED"
	case StateVersionErr:
		return "VERSION_ERR"
	default:
		return "UNKNOWN"
	}
}

// Diagnosis is the read-only inspection result produced by Diagnose.
type Diagnosis struct {
	MagicOK        bool
	VersionOK      bool
	Head           uint64
	Tail           uint64
	Capacity       uint64
	Pending        uint64
	State          State
	LastActivityNs uint64
}

// Diagnose attaches read-only to the control block of an existing region
// and classifies its state without disturbing it (spec.md §4.5). Returns
// ErrNotFound if the region doesn't exist.
func Diagnose(name string) (Diagnosis, error) {
	m, err := shmio.Attach(name, controlBlockSize, false)
	if err != nil {
		return Diagnosis{}, ErrNotFound
	}
	defer m.Close()

	return diagnoseMapping(m), nil
}

func diagnoseMapping(m *shmio.Mapping) Diagnosis {
	cb := (*controlBlock)(ptrAt(m.Data, 0))

	d := Diagnosis{
		MagicOK:   cb.magicField == magic,
		VersionOK: cb.versionField == version,
		Capacity:  cb.capacity,
	}
	if !d.MagicOK {
		d.State = StateCorrupted
		return d
	}
	if !d.VersionOK {
		d.State = StateVersionErr
		return d
	}

	head := cb.head.LoadAcquire()
	tail := cb.tail.LoadAcquire()
	d.Head = head
	d.Tail = tail
	d.LastActivityNs = cb.lastActivityNs.LoadRelaxed()

	pending := uint64(0)
	if head >= tail {
		pending = head - tail
	}
	d.Pending = pending

	switch {
	case pending > d.Capacity:
		d.State = StateCorrupted
	case pending == 0:
		d.State = StateEmpty
	default:
		d.State = StateOK
	}
	return d
}

// Recover performs the single supported repair operation on a region:
// forcing the single-consumer tail up to the current head, discarding
// any pending messages without inspecting their payloads (spec.md §4.5).
//
// If the region is already OK or EMPTY, Recover is a no-op. If it doesn't
// exist at all, Recover treats that as already-resolved and returns nil
// (the next producer can simply recreate it). If it's corrupted or has a
// version mismatch and force is false, Recover returns ErrCorrupted
// without changing anything; pass force=true to discard pending messages
// and reset the region to empty regardless of classification.
func Recover(name string, force bool) error {
	d, err := Diagnose(name)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	if !force {
		switch d.State {
		case StateOK, StateEmpty:
			return nil
		default:
			return ErrCorrupted
		}
	}

	m, err := shmio.Attach(name, controlBlockSize, true)
	if err != nil {
		return wrapSysErr("attach region for recovery", err)
	}
	defer m.Close()

	cb := (*controlBlock)(ptrAt(m.Data, 0))
	cb.tail.StoreRelease(cb.head.LoadAcquire())
	return nil
}
