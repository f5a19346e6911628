// Package recognize records a short clip from the microphone and hands it to
// an external fingerprinting service.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/tunetray/internal/audio"
)

// DefaultDuration is how much audio is captured for one recognition.
const DefaultDuration = 5 * time.Second

var (
	ErrMalformedResponse = errors.New("malformed recognition response")
	ErrPathEncoding      = errors.New("temporary file path is not valid UTF-8")
	ErrNoAudio           = errors.New("no audio captured")
)

// TransportError is returned when the recognizer cannot be reached or
// rejects the request.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("recognition %s failed: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("recognition %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Recognizer maps captured audio to track metadata.
type Recognizer interface {
	Recognize(ctx context.Context, in Input) (TrackMetadata, error)
}

// Resolver finds input devices by name. *audio.Catalog implements it.
type Resolver interface {
	Resolve(name string) (audio.Device, error)
}

// Config configures a Service.
type Config struct {
	Catalog    Resolver
	Recognizer Recognizer
	Logger     zerolog.Logger
	// Duration of audio captured per recognition; zero uses DefaultDuration.
	Duration time.Duration
	// SampleRate is the preferred capture rate; zero uses audio.PreferredSampleRate.
	SampleRate int
}

// Service captures a clip and recognizes it.
type Service struct {
	catalog    Resolver
	recognizer Recognizer
	log        zerolog.Logger
	duration   time.Duration
	sampleRate int
}

// New creates a recognition service.
func New(cfg Config) *Service {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.PreferredSampleRate
	}
	return &Service{
		catalog:    cfg.Catalog,
		recognizer: cfg.Recognizer,
		log:        cfg.Logger.With().Str("component", "recognize").Logger(),
		duration:   cfg.Duration,
		sampleRate: cfg.SampleRate,
	}
}

// Identify records from device (empty for the host default) and returns
// whatever the recognizer found. The caller must hold exclusive use of the
// device for the duration of the call.
func (s *Service) Identify(ctx context.Context, device string) (TrackMetadata, error) {
	dev, err := s.catalog.Resolve(device)
	if err != nil {
		return TrackMetadata{}, err
	}

	start := time.Now()
	in, err := Capture(ctx, dev, s.sampleRate, s.duration, s.log)
	if err != nil {
		return TrackMetadata{}, err
	}
	s.log.Debug().
		Int("samples", len(in.Samples)).
		Int("sample_rate", in.SampleRate).
		Dur("elapsed", time.Since(start)).
		Msg("Captured clip for recognition")

	md, err := s.recognizer.Recognize(ctx, in)
	if err != nil {
		return TrackMetadata{}, err
	}

	if md.Matched() {
		s.log.Info().Str("track", md.String()).Msg("Track recognized")
	} else {
		s.log.Info().Msg("No match")
	}
	return md, nil
}
