// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"

	"github.com/YASSERRMD/nabd"
)

// exitCode translates a nabd error code to a process exit status. Exit
// code 1 is reserved for errors with no nabd.Code (argument parsing,
// unexpected failures); |code| otherwise, so a caller can distinguish
// EMPTY (1) from FULL (2) from CORRUPTED (8) without parsing stderr.
func exitCode(err error) int {
	var e *nabd.Error
	if !errors.As(err, &e) {
		return 1
	}
	n := int(e.Code)
	if n < 0 {
		n = -n
	}
	return n
}
