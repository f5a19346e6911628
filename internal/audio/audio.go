package audio

// DefaultDeviceName is the synthetic catalog entry that always resolves to the
// host's default input device at the moment of use.
const DefaultDeviceName = "Default"

// Host is the audio API the catalog enumerates devices from.
type Host interface {
	Name() string
	InputDevices() ([]Device, error)
	// DefaultInputDevice returns ErrNoDeviceAvailable when the host has no input.
	DefaultInputDevice() (Device, error)
	Close() error
}

// Device is a single input device as reported by a Host.
type Device interface {
	// Name can fail on some drivers, so callers decide whether that is fatal.
	Name() (string, error)
	SupportedInputConfigs() ([]ConfigRange, error)
	// OpenInput opens a stream delivering interleaved samples. onData runs on a
	// thread owned by the audio backend.
	OpenInput(cfg StreamConfig, onData func(interleaved []float32), onError func(error)) (Stream, error)
}

// Stream is a live input stream. It is not safe for concurrent use.
type Stream interface {
	Play() error
	Pause() error
	Close() error
}

// ConfigRange is one supported input configuration reported by a device.
type ConfigRange struct {
	Channels      int
	MinSampleRate int
	MaxSampleRate int
}

// StreamConfig is the negotiated configuration a stream is opened with.
type StreamConfig struct {
	Channels        int
	SampleRate      int
	FramesPerBuffer int
}
