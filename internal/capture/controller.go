// Package capture owns the lifecycle of the visualization input stream.
package capture

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petems/tunetray/internal/audio"
	"github.com/petems/tunetray/internal/ring"
)

var (
	ErrAlreadyStreaming = errors.New("capture already in progress")
	ErrStartTimeout     = errors.New("timed out waiting for the input stream to start")
)

// State is the lifecycle state of the controller.
type State int

const (
	Idle State = iota
	Starting
	Streaming
	Stopping
	// Recognizing means the device is leased to a one-shot capture.
	Recognizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Streaming:
		return "streaming"
	case Stopping:
		return "stopping"
	case Recognizing:
		return "recognizing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// WorkerError reports a stream worker that terminated abnormally.
type WorkerError struct {
	Session string
	Value   any
	Stack   []byte
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("capture worker %s crashed: %v", e.Session, e.Value)
}

// Resolver finds devices by name. *audio.Catalog implements it.
type Resolver interface {
	Resolve(name string) (audio.Device, error)
	Exists(name string) bool
}

// Config configures a Controller.
type Config struct {
	Catalog Resolver
	Buffer  *ring.Buffer
	Logger  zerolog.Logger
	// Device is the initially selected device; empty means the host default.
	Device string
	// SampleRate is the preferred capture rate; zero uses audio.PreferredSampleRate.
	SampleRate int
	// StartTimeout bounds how long Start waits for the backend to begin
	// playing. Zero waits forever.
	StartTimeout time.Duration
}

// Controller starts and stops capture sessions. At most one stream is live at
// any time and it is only ever touched by the session's worker goroutine.
type Controller struct {
	catalog      Resolver
	buffer       *ring.Buffer
	log          zerolog.Logger
	sampleRate   int
	startTimeout time.Duration

	devMu  sync.RWMutex
	device string

	mu      sync.Mutex
	state   State
	session *session
}

type session struct {
	id   string
	stop chan struct{}
	once sync.Once
	// done is closed once the stream is released and the state is Idle.
	done chan struct{}
	err  error
}

func (s *session) requestStop() {
	s.once.Do(func() { close(s.stop) })
}

// New creates an idle controller.
func New(cfg Config) *Controller {
	device := cfg.Device
	if device == audio.DefaultDeviceName {
		device = ""
	}
	return &Controller{
		catalog:      cfg.Catalog,
		buffer:       cfg.Buffer,
		log:          cfg.Logger.With().Str("component", "capture").Logger(),
		sampleRate:   cfg.SampleRate,
		startTimeout: cfg.StartTimeout,
		device:       device,
	}
}

// SelectDevice validates and stores the device used by the next session.
// "Default" or an empty name resets to the host default.
func (c *Controller) SelectDevice(name string) error {
	if name == audio.DefaultDeviceName {
		name = ""
	}
	if name != "" && !c.catalog.Exists(name) {
		return fmt.Errorf("%w: %q", audio.ErrDeviceNotFound, name)
	}

	c.devMu.Lock()
	c.device = name
	c.devMu.Unlock()

	c.log.Info().Str("device", displayName(name)).Msg("Selected input device")
	return nil
}

// CurrentDevice returns the selected device name, "Default" when unset.
func (c *Controller) CurrentDevice() string {
	c.devMu.RLock()
	defer c.devMu.RUnlock()
	return displayName(c.device)
}

func (c *Controller) selected() string {
	c.devMu.RLock()
	defer c.devMu.RUnlock()
	return c.device
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a stream is confirmed live.
func (c *Controller) Active() bool {
	return c.State() == Streaming
}

// Start opens a stream on the selected device and blocks until the session
// ends, either through Stop or through ctx. Failures to build or play the
// stream are returned and leave the controller idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyStreaming, state)
	}
	sess := &session{
		id:   uuid.NewString(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.state = Starting
	c.session = sess
	c.mu.Unlock()

	ready := make(chan error, 1)
	go c.run(sess, c.selected(), ready)

	var timeout <-chan time.Time
	if c.startTimeout > 0 {
		timer := time.NewTimer(c.startTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-ready:
		if err != nil {
			<-sess.done
			return err
		}
	case <-timeout:
		// The worker releases the stream whenever the backend returns.
		c.requestStop(sess)
		c.log.Error().Str("session", sess.id).Dur("timeout", c.startTimeout).Msg("Input stream did not start")
		return ErrStartTimeout
	case <-ctx.Done():
		// The worker still owns a stream; wait for it so Start never returns
		// while the device is open. startTimeout bounds a backend stuck in Play.
		c.requestStop(sess)
		select {
		case <-sess.done:
		case <-timeout:
			c.log.Error().Str("session", sess.id).Dur("timeout", c.startTimeout).Msg("Input stream did not start")
		}
		return ctx.Err()
	}

	select {
	case <-sess.done:
	case <-ctx.Done():
		c.requestStop(sess)
		<-sess.done
	}
	return sess.err
}

// Stop asks the running session to end and blocks until its stream has been
// released. Stopping an idle controller is a no-op.
func (c *Controller) Stop() error {
	return c.StopContext(context.Background())
}

// StopContext is Stop bounded by ctx. When ctx ends first the stop request
// stays pending and the worker releases the stream once the backend returns.
func (c *Controller) StopContext(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return nil
	}
	if c.state == Starting || c.state == Streaming {
		c.state = Stopping
	}
	c.mu.Unlock()

	sess.requestStop()
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		c.log.Warn().Str("session", sess.id).Msg("Input stream still held by the backend")
		return ctx.Err()
	}
}

func (c *Controller) requestStop(sess *session) {
	c.mu.Lock()
	if c.session == sess && (c.state == Starting || c.state == Streaming) {
		c.state = Stopping
	}
	c.mu.Unlock()
	sess.requestStop()
}

// Lease runs fn with exclusive use of the input device. It fails with
// ErrAlreadyStreaming unless the controller is idle.
func (c *Controller) Lease(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.state != Idle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyStreaming, state)
	}
	c.state = Recognizing
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = Idle
		c.mu.Unlock()
	}()

	return fn(ctx)
}

// run owns the stream for the whole session.
func (c *Controller) run(sess *session, device string, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := c.log.With().Str("session", sess.id).Str("device", displayName(device)).Logger()

	var stream audio.Stream
	started := false
	defer func() {
		if r := recover(); r != nil {
			err := &WorkerError{Session: sess.id, Value: r, Stack: debug.Stack()}
			log.Error().Interface("panic", r).Bytes("stack", err.Stack).Msg("Capture worker crashed")
			if stream != nil {
				c.release(log, stream)
			}
			sess.err = err
			if !started {
				ready <- err
			}
		}
		c.finish(sess)
	}()

	dev, err := c.catalog.Resolve(device)
	if err != nil {
		ready <- err
		return
	}
	cfg, err := audio.NegotiateConfig(dev, c.sampleRate)
	if err != nil {
		ready <- err
		return
	}

	errs := audio.NewErrorSink(8)
	stream, err = audio.OpenStream(dev, cfg, c.buffer.Append, errs)
	if err != nil {
		ready <- err
		return
	}
	if err := audio.PlayStream(stream); err != nil {
		c.release(log, stream)
		stream = nil
		ready <- err
		return
	}

	started = true
	c.mu.Lock()
	if c.state == Starting {
		c.state = Streaming
	}
	c.mu.Unlock()
	ready <- nil

	log.Info().Int("channels", cfg.Channels).Int("sample_rate", cfg.SampleRate).Msg("Capture started")

	for {
		select {
		case <-sess.stop:
			if err := stream.Pause(); err != nil {
				log.Warn().Err(err).Msg("Failed to pause input stream")
			}
			c.release(log, stream)
			stream = nil
			log.Info().Msg("Capture stopped")
			return
		case err := <-errs.Errors():
			log.Error().Err(err).Msg("An error occurred on stream")
		}
	}
}

func (c *Controller) release(log zerolog.Logger, stream audio.Stream) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Input stream close panicked")
		}
	}()
	if err := stream.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close input stream")
	}
}

// finish marks the session torn down. The buffer is cleared so the next
// session starts cold.
func (c *Controller) finish(sess *session) {
	c.buffer.Clear()

	c.mu.Lock()
	if c.session == sess {
		c.session = nil
		c.state = Idle
	}
	c.mu.Unlock()

	close(sess.done)
}

func displayName(device string) string {
	if device == "" {
		return audio.DefaultDeviceName
	}
	return device
}
