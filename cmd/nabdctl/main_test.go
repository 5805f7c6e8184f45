// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/YASSERRMD/nabd"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testRegionName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("/nabdctl-test-%d-%s", os.Getpid(), t.Name())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOpenPushDiagnoseRecover_EndToEnd(t *testing.T) {
	if _, err := os.Stat("/dev/shm"); err != nil {
		t.Skip("/dev/shm unavailable on this platform")
	}

	name := testRegionName(t)
	t.Cleanup(func() { _ = nabd.Unlink(name) })

	out, err := run(t, "open", name, "--capacity", "8", "--slot-size", "64")
	require.NoError(t, err)
	require.Contains(t, out, "opened "+name)

	_, err = run(t, "push", name, "hello")
	require.NoError(t, err)

	out, err = run(t, "pop", name)
	require.NoError(t, err)
	require.Contains(t, out, "hello")

	out, err = run(t, "diagnose", name)
	require.NoError(t, err)
	require.Contains(t, out, "EMPTY")

	_, err = run(t, "recover", name, "--force")
	require.NoError(t, err)
}

func TestDiagnose_JSONOutput(t *testing.T) {
	if _, err := os.Stat("/dev/shm"); err != nil {
		t.Skip("/dev/shm unavailable on this platform")
	}

	name := testRegionName(t)
	t.Cleanup(func() { _ = nabd.Unlink(name) })

	_, err := run(t, "open", name, "--capacity", "8", "--slot-size", "64")
	require.NoError(t, err)

	out, err := run(t, "diagnose", name, "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"State"`)
}

func TestPop_NonexistentRegionExitsWithNotFoundCode(t *testing.T) {
	name := testRegionName(t)
	t.Cleanup(func() { _ = nabd.Unlink(name) })
	_, err := run(t, "pop", name)
	require.Error(t, err)
	require.Equal(t, 6, exitCode(err)) // CodeNotFound == -6
}
