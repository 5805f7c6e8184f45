// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nabd

import (
	"time"

	"code.hybscloud.com/spin"
)

// FillLevel returns the ring's occupancy as a percentage, 0-100.
func (r *Region) FillLevel() int {
	return int(100 * r.Pending() / r.capacity)
}

// IsPressured reports whether FillLevel has reached threshold t.
func (r *Region) IsPressured(t int) bool {
	return r.FillLevel() >= t
}

// Watermark configures the high/low backpressure thresholds for a region.
// The core contract only rejects invalid pairs; wiring On* callbacks into
// an event loop or metrics exporter is left to the caller (spec.md §4.6).
type Watermark struct {
	High     int
	Low      int
	OnHigh   func(userData any)
	OnLow    func(userData any)
	UserData any
}

// Validate reports ErrInvalid unless 0 <= Low < High <= 100.
func (w Watermark) Validate() error {
	if w.Low < 0 || w.Low >= w.High || w.High > 100 {
		return ErrInvalid
	}
	return nil
}

const (
	pushWaitSpinIterations = 100
	pushWaitMaxSleep       = time.Millisecond
	pushBackoffMaxSleep    = 100 * time.Millisecond
)

// PushWait repeatedly attempts Push until it succeeds, a non-FULL error
// occurs, or timeout elapses (spec.md §4.6). It spins with CPU-pause for
// up to 100 iterations, then falls back to sleeping with an ascending
// delay capped at 1ms. timeout==0 makes this a single non-blocking
// attempt; a negative timeout waits forever.
func (r *Region) PushWait(payload []byte, timeout time.Duration) error {
	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	sw := spin.Wait{}
	spins := 0
	sleep := time.Microsecond
	for {
		err := r.Push(payload)
		if err == nil || !IsWouldBlock(err) {
			return err
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return err
		}

		if spins < pushWaitSpinIterations {
			sw.Once()
			spins++
			continue
		}

		time.Sleep(sleep)
		if sleep < pushWaitMaxSleep {
			sleep *= 2
			if sleep > pushWaitMaxSleep {
				sleep = pushWaitMaxSleep
			}
		}
	}
}

// PushBackoff repeatedly attempts Push, sleeping baseDelay (doubling,
// capped at 100ms) after each FULL, aborting with ErrFull once maxRetries
// is exceeded (0 = infinite retries), per spec.md §4.6.
func (r *Region) PushBackoff(payload []byte, maxRetries int, baseDelay time.Duration) error {
	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := r.Push(payload)
		if err == nil || !IsWouldBlock(err) {
			return err
		}
		if maxRetries > 0 && attempt >= maxRetries {
			return ErrFull
		}

		time.Sleep(delay)
		delay *= 2
		if delay > pushBackoffMaxSleep {
			delay = pushBackoffMaxSleep
		}
	}
}

// Snapshot is a point-in-time view of a region's counters, used to derive
// throughput between two samples (spec.md §4.6).
type Snapshot struct {
	TimestampNs uint64
	Head        uint64
	Tail        uint64
}

// TakeSnapshot captures the region's current head/tail.
func (r *Region) TakeSnapshot(nowNs uint64) Snapshot {
	return Snapshot{
		TimestampNs: nowNs,
		Head:        r.cb.head.LoadAcquire(),
		Tail:        r.cb.tail.LoadAcquire(),
	}
}

// Throughput computes the combined push+pop rate, in operations per
// second, between two snapshots. Returns 0 if the time delta is zero.
func Throughput(a, b Snapshot) float64 {
	dt := int64(b.TimestampNs) - int64(a.TimestampNs)
	if dt == 0 {
		return 0
	}
	dPushed := int64(b.Head) - int64(a.Head)
	dPopped := int64(b.Tail) - int64(a.Tail)
	return float64(dPushed+dPopped) * 1e9 / float64(dt)
}
