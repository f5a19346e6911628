package recognize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/tunetray/internal/audio"
	"github.com/petems/tunetray/internal/audio/audiotest"
)

// feed returns an OnPlay hook pushing n interleaved frames of value in chunks.
func feed(channels, frames int, value float32) func(*audiotest.Stream) {
	return func(s *audiotest.Stream) {
		const chunk = 16
		for sent := 0; sent < frames; sent += chunk {
			n := min(chunk, frames-sent)
			buf := make([]float32, n*channels)
			for i := range buf {
				buf[i] = value
			}
			if !s.Push(buf) {
				return
			}
		}
	}
}

func TestCaptureStereo(t *testing.T) {
	dev := audiotest.NewDevice("USB", 2, 8000, 8000)
	dev.OnPlay = feed(2, 200, 0.5)

	in, err := Capture(context.Background(), dev, 0, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 8000, in.SampleRate)
	assert.Len(t, in.Samples, 80)
	for _, s := range in.Samples {
		assert.InDelta(t, 0.5, s, 1e-6)
	}
	assert.Equal(t, 10*time.Millisecond, in.Duration())

	stream := dev.LastStream()
	require.NotNil(t, stream)
	assert.True(t, stream.Closed())
	assert.Equal(t, 2, stream.Config().Channels)
}

func TestCapturePartialClip(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the capture grace period")
	}

	dev := audiotest.NewDevice("Mic", 1, 8000, 8000)
	dev.OnPlay = feed(1, 20, 0.1)

	in, err := Capture(context.Background(), dev, 0, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, in.Samples, 20)
}

func TestCaptureContextCancel(t *testing.T) {
	dev := audiotest.NewDevice("Mic", 1, 8000, 8000)

	ctx, cancel := context.WithCancel(context.Background())
	dev.OnPlay = func(*audiotest.Stream) { cancel() }

	_, err := Capture(ctx, dev, 0, time.Minute, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, dev.LastStream().Closed())
}

func TestCaptureOpenFailure(t *testing.T) {
	dev := audiotest.NewDevice("Mic", 1, 8000, 8000)
	dev.OpenErr = errors.New("device busy")

	_, err := Capture(context.Background(), dev, 0, time.Second, zerolog.Nop())
	var be *audio.BuildStreamError
	assert.ErrorAs(t, err, &be)
}

func TestCapturePlayFailure(t *testing.T) {
	dev := audiotest.NewDevice("Mic", 1, 8000, 8000)
	dev.PlayErr = errors.New("device unplugged")

	_, err := Capture(context.Background(), dev, 0, time.Second, zerolog.Nop())
	var pe *audio.PlayStreamError
	assert.ErrorAs(t, err, &pe)
	assert.True(t, dev.LastStream().Closed())
}

func TestClipStopsAtLimit(t *testing.T) {
	c := newClip(3)
	c.append([]float32{1, 2})
	select {
	case <-c.full:
		t.Fatal("clip reported full early")
	default:
	}

	c.append([]float32{3, 4, 5})
	c.append([]float32{6})
	<-c.full

	assert.Equal(t, []float32{1, 2, 3}, c.take())
}

type stubRecognizer struct {
	md  TrackMetadata
	err error
	got Input
}

func (s *stubRecognizer) Recognize(_ context.Context, in Input) (TrackMetadata, error) {
	s.got = in
	return s.md, s.err
}

func TestServiceIdentify(t *testing.T) {
	mic := audiotest.NewDevice("Mic", 1, 8000, 48000)
	usb := audiotest.NewDevice("USB", 2, 8000, 8000)
	usb.OnPlay = feed(2, 100, 0.2)

	rec := &stubRecognizer{md: TrackMetadata{Artist: strPtr("Boards of Canada"), Track: strPtr("Roygbiv")}}
	svc := New(Config{
		Catalog:    audio.NewCatalog(audiotest.NewHost(mic, usb), zerolog.Nop()),
		Recognizer: rec,
		Logger:     zerolog.Nop(),
		Duration:   5 * time.Millisecond,
	})

	md, err := svc.Identify(context.Background(), "USB")
	require.NoError(t, err)
	assert.Equal(t, "Boards of Canada - Roygbiv", md.String())
	assert.Len(t, rec.got.Samples, 40)
	assert.Equal(t, 8000, rec.got.SampleRate)
	assert.Empty(t, mic.Streams())
}

func TestServiceIdentifyErrors(t *testing.T) {
	mic := audiotest.NewDevice("Mic", 1, 8000, 8000)
	mic.OnPlay = feed(1, 100, 0.2)

	recErr := &TransportError{Op: "request", StatusCode: 500}
	svc := New(Config{
		Catalog:    audio.NewCatalog(audiotest.NewHost(mic), zerolog.Nop()),
		Recognizer: &stubRecognizer{err: recErr},
		Logger:     zerolog.Nop(),
		Duration:   5 * time.Millisecond,
	})

	_, err := svc.Identify(context.Background(), "Missing")
	assert.ErrorIs(t, err, audio.ErrDeviceNotFound)

	_, err = svc.Identify(context.Background(), audio.DefaultDeviceName)
	assert.ErrorIs(t, err, recErr)
}
