// Package permissions checks the OS level grants capture depends on.
package permissions

import "errors"

var ErrMicrophoneDenied = errors.New("microphone permission not granted")
