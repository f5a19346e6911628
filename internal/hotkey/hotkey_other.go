//go:build !cgo || (!linux && !darwin)

package hotkey

import (
	"errors"
)

var errUnsupported = errors.New("global hotkeys are not supported on this platform")

type noopManager struct{}

// New returns a manager that rejects every registration.
func New() (Manager, error) {
	return noopManager{}, nil
}

func (noopManager) Register(accel string, _ func(pressed bool)) error {
	if _, err := ParseAccel(accel); err != nil {
		return err
	}
	return errUnsupported
}

func (noopManager) Unregister(string) error { return nil }

func (noopManager) Close() error { return nil }
