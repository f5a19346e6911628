package audio

// PreferredSampleRate is the floor applied to the negotiated sample rate when
// the device supports it.
const PreferredSampleRate = 40000

// ErrorSink collects stream errors reported from backend threads. Report never
// blocks; errors are dropped while the sink is full.
type ErrorSink struct {
	ch chan error
}

// NewErrorSink creates a sink buffering up to size errors.
func NewErrorSink(size int) *ErrorSink {
	if size < 1 {
		size = 1
	}
	return &ErrorSink{ch: make(chan error, size)}
}

// Report queues err if there is room. Safe on a nil sink.
func (s *ErrorSink) Report(err error) {
	if s == nil || err == nil {
		return
	}
	select {
	case s.ch <- err:
	default:
	}
}

// Errors returns the channel errors are delivered on.
func (s *ErrorSink) Errors() <-chan error {
	return s.ch
}

// NegotiateConfig picks the first input configuration the device reports and
// clamps preferredRate into its sample rate range. A non-positive preferredRate
// uses PreferredSampleRate.
func NegotiateConfig(dev Device, preferredRate int) (StreamConfig, error) {
	ranges, err := dev.SupportedInputConfigs()
	if err != nil {
		return StreamConfig{}, &ConfigQueryError{Err: err}
	}
	if len(ranges) == 0 {
		return StreamConfig{}, ErrNoConfigAvailable
	}

	if preferredRate <= 0 {
		preferredRate = PreferredSampleRate
	}

	r := ranges[0]
	rate := max(r.MinSampleRate, preferredRate)
	if r.MaxSampleRate > 0 {
		rate = min(rate, r.MaxSampleRate)
	}

	return StreamConfig{
		Channels:   max(r.Channels, 1),
		SampleRate: rate,
	}, nil
}

// OpenStream opens an input stream on dev that hands onFrames one mono sample
// per hardware frame. The slice passed to onFrames is reused between calls and
// must not be retained. Backend errors go to errs.
func OpenStream(dev Device, cfg StreamConfig, onFrames func([]float32), errs *ErrorSink) (Stream, error) {
	channels := max(cfg.Channels, 1)

	// Only touched from the backend callback thread.
	var scratch []float32
	s, err := dev.OpenInput(cfg, func(in []float32) {
		scratch = Downmix(scratch, in, channels)
		onFrames(scratch)
	}, errs.Report)
	if err != nil {
		return nil, &BuildStreamError{Err: err}
	}
	return s, nil
}

// PlayStream starts s, wrapping any failure as a PlayStreamError.
func PlayStream(s Stream) error {
	if err := s.Play(); err != nil {
		return &PlayStreamError{Err: err}
	}
	return nil
}

// Downmix averages each interleaved frame of channels samples into dst, which is
// reused when it has enough capacity. Trailing partial frames are ignored.
func Downmix(dst, interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return append(dst[:0], interleaved...)
	}

	frames := len(interleaved) / channels
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]

	div := float32(channels)
	for i := range frames {
		frame := interleaved[i*channels : (i+1)*channels]
		var sum float32
		for _, s := range frame {
			sum += s
		}
		dst[i] = sum / div
	}
	return dst
}
