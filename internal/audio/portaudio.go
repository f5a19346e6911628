//go:build cgo && !noaudio

package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

var errInputOverflow = errors.New("input overflow, samples were dropped by the host")

// Standard rates probed to build a device's supported range; PortAudio does
// not report one directly.
var probeRates = []int{8000, 11025, 16000, 22050, 32000, 40000, 44100, 48000, 88200, 96000, 192000}

func init() {
	registerBackend(BackendPortAudio, newPortAudioHost)
}

type portAudioHost struct{}

func newPortAudioHost() (Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioHost{}, nil
}

func (h *portAudioHost) Name() string {
	return BackendPortAudio
}

func (h *portAudioHost) InputDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	result := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, &portAudioDevice{info: d})
		}
	}
	return result, nil
}

func (h *portAudioHost) DefaultInputDevice() (Device, error) {
	d, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDeviceAvailable, err)
	}
	return &portAudioDevice{info: d}, nil
}

func (h *portAudioHost) Close() error {
	return portaudio.Terminate()
}

type portAudioDevice struct {
	info *portaudio.DeviceInfo
}

func (d *portAudioDevice) Name() (string, error) {
	return d.info.Name, nil
}

func (d *portAudioDevice) SupportedInputConfigs() ([]ConfigRange, error) {
	channels := min(d.info.MaxInputChannels, maxCaptureChannels)
	if channels < 1 {
		return nil, nil
	}

	lo, hi := 0, 0
	for _, rate := range probeRates {
		if !d.supports(channels, rate) {
			continue
		}
		if lo == 0 {
			lo = rate
		}
		hi = rate
	}
	if lo == 0 {
		// Fall back to what the driver advertises.
		rate := int(d.info.DefaultSampleRate)
		if rate <= 0 {
			return nil, nil
		}
		lo, hi = rate, rate
	}

	return []ConfigRange{{Channels: channels, MinSampleRate: lo, MaxSampleRate: hi}}, nil
}

func (d *portAudioDevice) supports(channels, rate int) bool {
	err := portaudio.IsFormatSupported(d.params(StreamConfig{Channels: channels, SampleRate: rate}), func([]float32) {})
	return err == nil
}

func (d *portAudioDevice) params(cfg StreamConfig) portaudio.StreamParameters {
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   d.info,
			Channels: cfg.Channels,
			Latency:  d.info.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: cfg.FramesPerBuffer,
	}
}

func (d *portAudioDevice) OpenInput(cfg StreamConfig, onData func([]float32), onError func(error)) (Stream, error) {
	stream, err := portaudio.OpenStream(d.params(cfg), func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.InputOverflow != 0 {
			onError(errInputOverflow)
		}
		onData(in)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream on %q: %w", d.info.Name, err)
	}
	return &portAudioStream{stream: stream}, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
}

func (s *portAudioStream) Play() error {
	return s.stream.Start()
}

func (s *portAudioStream) Pause() error {
	return s.stream.Stop()
}

func (s *portAudioStream) Close() error {
	return s.stream.Close()
}
