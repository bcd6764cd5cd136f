package diskspace

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpaceSmallFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "small.bin")
	if err := CheckAvailableSpace(target, 1024, 1.1); err != nil {
		t.Errorf("1 KiB should fit: %v", err)
	}
}

func TestCheckAvailableSpaceAbsurdRequirement(t *testing.T) {
	target := filepath.Join(t.TempDir(), "huge.bin")
	// One exbibyte will not fit anywhere this test runs.
	err := CheckAvailableSpace(target, 1<<60, 1.0)
	if err == nil {
		t.Skip("filesystem reports no usable statistics")
	}

	var spaceErr *InsufficientSpaceError
	if !errors.As(err, &spaceErr) {
		t.Fatalf("err = %T, want InsufficientSpaceError", err)
	}
	if !strings.Contains(spaceErr.Error(), "insufficient disk space") {
		t.Errorf("message = %q", spaceErr.Error())
	}
	if spaceErr.AvailableBytes <= 0 {
		t.Errorf("available = %d, want > 0", spaceErr.AvailableBytes)
	}
}

func TestGetAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "probe.bin")
	if got := GetAvailableSpace(target); got < 0 {
		t.Errorf("available = %d, want >= 0", got)
	}
}
