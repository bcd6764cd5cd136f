// Package diskspace checks available disk space before downloads land
// on the local filesystem.
package diskspace

import "fmt"

// InsufficientSpaceError indicates that there is not enough disk space
// available for an operation.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	const mib = 1 << 20
	return fmt.Sprintf("not enough disk space for %s: need %.1f MiB, %.1f MiB free",
		e.Path, float64(e.RequiredBytes)/mib, float64(e.AvailableBytes)/mib)
}
