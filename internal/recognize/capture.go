package recognize

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/tunetray/internal/audio"
)

// captureGrace is added to the requested duration before giving up on the
// sample count and returning what arrived.
const captureGrace = time.Second

// Input is a mono clip handed to a Recognizer.
type Input struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the length of the clip.
func (in Input) Duration() time.Duration {
	if in.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(in.Samples)) * time.Second / time.Duration(in.SampleRate)
}

// clip accumulates samples up to a fixed count. append is called from the
// backend thread.
type clip struct {
	mu      sync.Mutex
	samples []float32
	want    int
	once    sync.Once
	full    chan struct{}
}

func newClip(want int) *clip {
	return &clip{
		samples: make([]float32, 0, want),
		want:    want,
		full:    make(chan struct{}),
	}
}

func (c *clip) append(frames []float32) {
	c.mu.Lock()
	room := c.want - len(c.samples)
	if room > 0 {
		c.samples = append(c.samples, frames[:min(room, len(frames))]...)
	}
	done := len(c.samples) >= c.want
	c.mu.Unlock()

	if done {
		c.once.Do(func() { close(c.full) })
	}
}

func (c *clip) take() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.samples
	c.samples = nil
	return out
}

// Capture opens its own stream on dev and records duration worth of mono
// samples. It returns early with the partial clip if the backend stops
// delivering, and with ctx's error if ctx ends first.
func Capture(ctx context.Context, dev audio.Device, preferredRate int, duration time.Duration, log zerolog.Logger) (Input, error) {
	// The stream is built, played and dropped on this thread only.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cfg, err := audio.NegotiateConfig(dev, preferredRate)
	if err != nil {
		return Input{}, err
	}

	c := newClip(max(int(duration.Seconds()*float64(cfg.SampleRate)), 1))
	errs := audio.NewErrorSink(4)
	stream, err := audio.OpenStream(dev, cfg, c.append, errs)
	if err != nil {
		return Input{}, err
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close recognition stream")
		}
	}()

	if err := audio.PlayStream(stream); err != nil {
		return Input{}, err
	}

	timer := time.NewTimer(duration + captureGrace)
	defer timer.Stop()

wait:
	for {
		select {
		case <-c.full:
			break wait
		case <-timer.C:
			log.Warn().Dur("duration", duration).Msg("Recognition capture timed out, using partial clip")
			break wait
		case err := <-errs.Errors():
			log.Error().Err(err).Msg("An error occurred on recognition stream")
		case <-ctx.Done():
			_ = stream.Pause()
			return Input{}, ctx.Err()
		}
	}

	if err := stream.Pause(); err != nil {
		log.Warn().Err(err).Msg("Failed to pause recognition stream")
	}

	samples := c.take()
	if len(samples) == 0 {
		return Input{}, ErrNoAudio
	}
	return Input{Samples: samples, SampleRate: cfg.SampleRate}, nil
}
