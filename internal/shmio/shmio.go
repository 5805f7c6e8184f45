// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shmio provides the raw POSIX shared-memory primitives the region
// manager builds on: name validation, create-or-attach of the backing file,
// mmap/munmap, and unlink. It owns every host syscall in the module so the
// rest of the package can stay free of OS-specific error handling.
//
// Layout contract: callers are responsible for everything inside the mapped
// bytes; shmio only ever sees an opaque size.
package shmio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Dir is the backing namespace for shared-memory objects on this host.
// POSIX shm_open semantics are emulated via plain files under /dev/shm, the
// same approach used throughout the pack's mmap'd-IPC code (e.g. the
// AlephTX feeder/shm package and calvinalkan-agent-task's slotcache).
const Dir = "/dev/shm"

// Perm is the permission mode new backing files are created with, per
// spec.md §6 ("The backing object is created with permissions 0666").
const Perm = 0o666

// Mapping is a live mmap'd region plus the file descriptor that backs it.
type Mapping struct {
	Data []byte
	fd   int
}

// ValidateName checks that name is a POSIX-style leading-slash token
// suitable for the shared-memory namespace, e.g. "/myqueue".
func ValidateName(name string) error {
	if len(name) < 2 || name[0] != '/' || strings.Contains(name[1:], "/") {
		return fmt.Errorf("shmio: invalid name %q: must be a single leading-slash token", name)
	}
	return nil
}

func path(name string) string {
	return filepath.Join(Dir, name[1:])
}

// Create exclusively creates the backing file, sizes it to size bytes, and
// maps it read/write. Returns an error satisfying os.IsExist if the name is
// already taken, so callers can fall back to Attach per spec.md §4.1 step 2.
func Create(name string, size int64) (*Mapping, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	fd, err := unix.Open(path(name), unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, Perm)
	if err != nil {
		return nil, err
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	data, err := mmap(fd, size)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Mapping{Data: data, fd: fd}, nil
}

// Attach opens an existing backing file. If n is non-zero it maps exactly n
// bytes (used by diagnose/open to first read the 256-byte control block
// before knowing the full region size); n == 0 maps the file's current
// size.
func Attach(name string, n int64, writable bool) (*Mapping, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	flags := unix.O_RDONLY
	if writable {
		flags = unix.O_RDWR
	}
	fd, err := unix.Open(path(name), flags, 0)
	if err != nil {
		return nil, err
	}
	size := n
	if size == 0 {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			_ = unix.Close(fd)
			return nil, err
		}
		size = st.Size
	}
	data, err := mmapProt(fd, size, writable)
	if err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &Mapping{Data: data, fd: fd}, nil
}

// Remap unmaps the current mapping (keeping the fd open) and maps size
// bytes from the same fd. Used by Attach's two-step "read the header, then
// map the whole region" sequence (spec.md §4.1 step 3).
func (m *Mapping) Remap(size int64, writable bool) error {
	if m.Data != nil {
		if err := unix.Munmap(m.Data); err != nil {
			return err
		}
		m.Data = nil
	}
	data, err := mmapProt(m.fd, size, writable)
	if err != nil {
		return err
	}
	m.Data = data
	return nil
}

// Close unmaps and closes the fd. It deliberately never unlinks — per
// spec.md §4.1, close frees local resources only.
func (m *Mapping) Close() error {
	var errs []error
	if m.Data != nil {
		if err := unix.Munmap(m.Data); err != nil {
			errs = append(errs, err)
		}
		m.Data = nil
	}
	if err := unix.Close(m.fd); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Unlink removes name from the shared-memory namespace. Already-mapped
// processes keep access until they unmap (spec.md §4.1).
func Unlink(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return unix.Unlink(path(name))
}

// Exists reports whether a backing file for name is currently present.
func Exists(name string) bool {
	if err := ValidateName(name); err != nil {
		return false
	}
	_, err := os.Stat(path(name))
	return err == nil
}

func mmap(fd int, size int64) ([]byte, error) {
	return mmapProt(fd, size, true)
}

func mmapProt(fd int, size int64, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(fd, 0, int(size), prot, unix.MAP_SHARED)
}
