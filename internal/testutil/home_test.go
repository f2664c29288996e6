// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"testing"
)

func TestSetHomeDir(t *testing.T) {
	tmpDir := t.TempDir()
	originalHome, hadHome := os.LookupEnv("HOME")

	cleanup := SetHomeDir(t, tmpDir)
	if got := os.Getenv("HOME"); got != tmpDir {
		t.Errorf("HOME = %q, want %q", got, tmpDir)
	}

	cleanup()
	got, has := os.LookupEnv("HOME")
	if has != hadHome || got != originalHome {
		t.Errorf("after cleanup HOME = %q (set=%v), want %q (set=%v)", got, has, originalHome, hadHome)
	}
}

func TestSetConfigHome_UnsetsWhenPreviouslyUnset(t *testing.T) {
	t.Cleanup(MustUnsetenv(t, "XDG_CONFIG_HOME"))

	cleanup := SetConfigHome(t, t.TempDir())
	cleanup()

	if _, has := os.LookupEnv("XDG_CONFIG_HOME"); has {
		t.Error("XDG_CONFIG_HOME should be unset after cleanup")
	}
}
