// Package audiotest provides an in-memory audio host for tests.
package audiotest

import (
	"errors"
	"sync"

	"github.com/petems/tunetray/internal/audio"
)

// Host is a fake audio.Host with a fixed device list.
type Host struct {
	mu       sync.Mutex
	devices  []*Device
	def      *Device
	enumErr  error
	closed   bool
	hostName string
}

// NewHost returns a host with the given devices; the first one is the default.
func NewHost(devices ...*Device) *Host {
	h := &Host{devices: devices, hostName: "fake"}
	if len(devices) > 0 {
		h.def = devices[0]
	}
	return h
}

// SetDefault changes the default input device. nil removes it.
func (h *Host) SetDefault(d *Device) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.def = d
}

// SetEnumerationError makes InputDevices fail with err.
func (h *Host) SetEnumerationError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enumErr = err
}

// Closed reports whether Close was called.
func (h *Host) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Host) Name() string { return h.hostName }

func (h *Host) InputDevices() ([]audio.Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.enumErr != nil {
		return nil, h.enumErr
	}
	out := make([]audio.Device, len(h.devices))
	for i, d := range h.devices {
		out[i] = d
	}
	return out, nil
}

func (h *Host) DefaultInputDevice() (audio.Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.def == nil {
		return nil, audio.ErrNoDeviceAvailable
	}
	return h.def, nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Device is a fake audio.Device.
type Device struct {
	DeviceName string
	NameErr    error
	Configs    []audio.ConfigRange
	ConfigErr  error
	OpenErr    error
	PlayErr    error
	// PlayGate, when set, blocks Play until it is closed.
	PlayGate chan struct{}
	// PanicOnPlay makes Play panic, simulating a crashing backend.
	PanicOnPlay bool
	// OnPlay runs in its own goroutine after a successful Play.
	OnPlay func(*Stream)

	mu      sync.Mutex
	streams []*Stream
}

// NewDevice returns a device supporting channels at rates between minRate and maxRate.
func NewDevice(name string, channels, minRate, maxRate int) *Device {
	return &Device{
		DeviceName: name,
		Configs: []audio.ConfigRange{{
			Channels:      channels,
			MinSampleRate: minRate,
			MaxSampleRate: maxRate,
		}},
	}
}

func (d *Device) Name() (string, error) {
	if d.NameErr != nil {
		return "", d.NameErr
	}
	return d.DeviceName, nil
}

func (d *Device) SupportedInputConfigs() ([]audio.ConfigRange, error) {
	if d.ConfigErr != nil {
		return nil, d.ConfigErr
	}
	return d.Configs, nil
}

func (d *Device) OpenInput(cfg audio.StreamConfig, onData func([]float32), onError func(error)) (audio.Stream, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	s := &Stream{device: d, cfg: cfg, onData: onData, onError: onError}
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

// Streams returns every stream opened on the device.
func (d *Device) Streams() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Stream(nil), d.streams...)
}

// LastStream returns the most recently opened stream or nil.
func (d *Device) LastStream() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

var errStreamClosed = errors.New("stream closed")

// Stream is a fake audio.Stream. Push feeds the data callback as a backend would.
type Stream struct {
	device  *Device
	cfg     audio.StreamConfig
	onData  func([]float32)
	onError func(error)

	mu      sync.Mutex
	playing bool
	closed  bool
}

// Config returns the configuration the stream was opened with.
func (s *Stream) Config() audio.StreamConfig { return s.cfg }

func (s *Stream) Play() error {
	d := s.device
	if d.PanicOnPlay {
		panic("audiotest: backend crashed")
	}
	if d.PlayGate != nil {
		<-d.PlayGate
	}
	if d.PlayErr != nil {
		return d.PlayErr
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errStreamClosed
	}
	s.playing = true
	s.mu.Unlock()

	if d.OnPlay != nil {
		go d.OnPlay(s)
	}
	return nil
}

func (s *Stream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	return nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.closed = true
	return nil
}

// Push delivers interleaved samples to the data callback if the stream is
// playing. It reports whether the samples were delivered.
func (s *Stream) Push(interleaved []float32) bool {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()
	if !playing {
		return false
	}
	s.onData(interleaved)
	return true
}

// Fail reports err through the stream's error callback.
func (s *Stream) Fail(err error) {
	s.onError(err)
}

// Playing reports whether the stream is currently playing.
func (s *Stream) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Closed reports whether the stream was closed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
