package app

import (
	"context"
	"errors"

	"github.com/petems/tunetray/internal/audio"
	"github.com/petems/tunetray/internal/capture"
	"github.com/petems/tunetray/internal/recognize"
)

// Error is the serializable form of a failure handed to a caller.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// ToError converts err into its serializable form; nil stays nil.
func ToError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: ErrorCode(err), Message: err.Error()}
}

// ErrorCode maps an error to a stable identifier.
func ErrorCode(err error) string {
	var (
		enumErr   *audio.EnumerationError
		nameErr   *audio.DeviceNameError
		queryErr  *audio.ConfigQueryError
		buildErr  *audio.BuildStreamError
		playErr   *audio.PlayStreamError
		workerErr *capture.WorkerError
		transErr  *recognize.TransportError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &workerErr):
		return "worker_failed"
	case errors.Is(err, capture.ErrAlreadyStreaming):
		return "already_streaming"
	case errors.Is(err, capture.ErrStartTimeout):
		return "start_timeout"
	case errors.Is(err, ErrIdentifyInProgress):
		return "identify_in_progress"
	case errors.As(err, &enumErr):
		return "enumeration_failed"
	case errors.As(err, &nameErr):
		return "device_name_unreadable"
	case errors.Is(err, audio.ErrDeviceNotFound):
		return "device_not_found"
	case errors.Is(err, audio.ErrNoDeviceAvailable):
		return "no_device_available"
	case errors.Is(err, audio.ErrNoConfigAvailable), errors.As(err, &queryErr):
		return "no_config_available"
	case errors.As(err, &buildErr):
		return "build_stream_failed"
	case errors.As(err, &playErr):
		return "play_stream_failed"
	case errors.As(err, &transErr):
		return "recognition_transport"
	case errors.Is(err, recognize.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, recognize.ErrPathEncoding):
		return "path_encoding"
	case errors.Is(err, recognize.ErrNoAudio):
		return "no_audio"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}
