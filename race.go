// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package nabd

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests that trigger false positives
// under -race due to ordering-only (non-mutex) synchronization across the
// mapped region.
const RaceEnabled = true
