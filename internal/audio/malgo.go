//go:build cgo && !noaudio

package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

var errDeviceStopped = errors.New("capture device stopped unexpectedly")

// Bounds used when miniaudio reports a native format with no fixed rate.
const (
	malgoMinRate = 8000
	malgoMaxRate = 192000
)

func init() {
	registerBackend(BackendMalgo, newMalgoHost)
}

type malgoHost struct {
	ctx *malgo.AllocatedContext
}

func newMalgoHost() (Host, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}
	return &malgoHost{ctx: ctx}, nil
}

func (h *malgoHost) Name() string {
	return BackendMalgo
}

func (h *malgoHost) InputDevices() ([]Device, error) {
	infos, err := h.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}

	result := make([]Device, 0, len(infos))
	for i := range infos {
		result = append(result, &malgoDevice{host: h, info: infos[i]})
	}
	return result, nil
}

func (h *malgoHost) DefaultInputDevice() (Device, error) {
	infos, err := h.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].IsDefault == 1 {
			return &malgoDevice{host: h, info: infos[i]}, nil
		}
	}
	return nil, ErrNoDeviceAvailable
}

func (h *malgoHost) Close() error {
	if err := h.ctx.Uninit(); err != nil {
		return err
	}
	h.ctx.Free()
	return nil
}

type malgoDevice struct {
	host *malgoHost
	info malgo.DeviceInfo

	mu   sync.Mutex
	full *malgo.DeviceInfo
}

// details fetches the full device info, which is where the backend can fail
// to read a device.
func (d *malgoDevice) details() (*malgo.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.full != nil {
		return d.full, nil
	}
	full, err := d.host.ctx.DeviceInfo(malgo.Capture, d.info.ID, malgo.Shared)
	if err != nil {
		return nil, err
	}
	d.full = &full
	return d.full, nil
}

func (d *malgoDevice) Name() (string, error) {
	full, err := d.details()
	if err != nil {
		return "", err
	}
	return full.Name(), nil
}

func (d *malgoDevice) SupportedInputConfigs() ([]ConfigRange, error) {
	full, err := d.details()
	if err != nil {
		return nil, err
	}
	if full.FormatCount == 0 {
		return nil, nil
	}

	formats := full.Formats[:full.FormatCount]
	channels := min(int(formats[0].Channels), maxCaptureChannels)
	lo, hi := 0, 0
	for _, f := range formats {
		if f.SampleRate == 0 {
			lo, hi = malgoMinRate, malgoMaxRate
			break
		}
		rate := int(f.SampleRate)
		if lo == 0 || rate < lo {
			lo = rate
		}
		hi = max(hi, rate)
	}

	return []ConfigRange{{Channels: max(channels, 1), MinSampleRate: lo, MaxSampleRate: hi}}, nil
}

func (d *malgoDevice) OpenInput(cfg StreamConfig, onData func([]float32), onError func(error)) (Stream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Capture.DeviceID = d.info.ID.Pointer()
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.FramesPerBuffer)
	deviceConfig.Alsa.NoMMap = 1

	s := &malgoStream{}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, in []byte, _ uint32) {
			if len(in) < 4 {
				return
			}
			// Capture format is f32, reinterpret in place.
			onData(unsafe.Slice((*float32)(unsafe.Pointer(&in[0])), len(in)/4))
		},
		Stop: func() {
			if !s.stopping.Load() {
				onError(errDeviceStopped)
			}
		},
	}

	device, err := malgo.InitDevice(d.host.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	s.device = device
	return s, nil
}

type malgoStream struct {
	device   *malgo.Device
	stopping atomic.Bool
}

func (s *malgoStream) Play() error {
	s.stopping.Store(false)
	return s.device.Start()
}

func (s *malgoStream) Pause() error {
	s.stopping.Store(true)
	return s.device.Stop()
}

func (s *malgoStream) Close() error {
	s.stopping.Store(true)
	s.device.Uninit()
	return nil
}
