package audio

import (
	"errors"
	"fmt"
)

var (
	ErrNoDeviceAvailable = errors.New("no input device available")
	ErrDeviceNotFound    = errors.New("no device with the given name found")
	ErrNoConfigAvailable = errors.New("no input configuration available")
	ErrUnknownBackend    = errors.New("unknown audio backend")
)

// EnumerationError is returned when the host fails to list its input devices.
type EnumerationError struct {
	Host string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("failed to enumerate %s input devices: %v", e.Host, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// DeviceNameError is returned when a device name cannot be read while listing.
type DeviceNameError struct {
	Index int
	Err   error
}

func (e *DeviceNameError) Error() string {
	return fmt.Sprintf("failed to read name of device %d: %v", e.Index, e.Err)
}

func (e *DeviceNameError) Unwrap() error { return e.Err }

// ConfigQueryError is returned when a device cannot report its configurations.
type ConfigQueryError struct {
	Err error
}

func (e *ConfigQueryError) Error() string {
	return fmt.Sprintf("failed to query supported input configs: %v", e.Err)
}

func (e *ConfigQueryError) Unwrap() error { return e.Err }

// BuildStreamError wraps a failure to construct an input stream.
type BuildStreamError struct {
	Err error
}

func (e *BuildStreamError) Error() string {
	return fmt.Sprintf("failed to build input stream: %v", e.Err)
}

func (e *BuildStreamError) Unwrap() error { return e.Err }

// PlayStreamError wraps a failure to start a built stream.
type PlayStreamError struct {
	Err error
}

func (e *PlayStreamError) Error() string {
	return fmt.Sprintf("failed to play input stream: %v", e.Err)
}

func (e *PlayStreamError) Unwrap() error { return e.Err }
