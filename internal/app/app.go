package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/petems/tunetray/internal/audio"
	"github.com/petems/tunetray/internal/capture"
	"github.com/petems/tunetray/internal/config"
	"github.com/petems/tunetray/internal/recognize"
	"github.com/petems/tunetray/internal/ring"
)

var ErrIdentifyInProgress = errors.New("recognition already in progress")

// toggleStopTimeout bounds how long a menu toggle waits for the backend to
// release the stream.
const toggleStopTimeout = 2 * time.Second

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetListening()
	SetIdentifying()
	SetError()
}

// SignalSink receives every window returned by PollSignal.
type SignalSink interface {
	Signal(samples []float32)
}

// Identifier records and recognizes a clip. *recognize.Service implements it.
type Identifier interface {
	Identify(ctx context.Context, device string) (recognize.TrackMetadata, error)
}

type Config struct {
	Catalog       *audio.Catalog
	Capture       *capture.Controller
	Buffer        *ring.Buffer
	Identifier    Identifier
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
	SignalSink    SignalSink    // Optional - can be nil
	// Clipboard writes text to the system clipboard; nil uses atotto/clipboard.
	Clipboard func(string) error
}

type App struct {
	catalog   *audio.Catalog
	capture   *capture.Controller
	buffer    *ring.Buffer
	id        Identifier
	cfg       *config.Config
	log       zerolog.Logger
	status    StatusUpdater
	sink      SignalSink
	clipboard func(string) error

	// identifying guards against overlapping recognitions.
	identifying atomic.Bool

	cfgMu sync.Mutex

	mu        sync.Mutex
	lastTrack *recognize.TrackMetadata
	listenCtx context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func New(cfg Config) *App {
	write := cfg.Clipboard
	if write == nil {
		write = clipboard.WriteAll
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		catalog:   cfg.Catalog,
		capture:   cfg.Capture,
		buffer:    cfg.Buffer,
		id:        cfg.Identifier,
		cfg:       cfg.Config,
		log:       cfg.Logger.With().Str("component", "app").Logger(),
		status:    cfg.StatusUpdater,
		sink:      cfg.SignalSink,
		clipboard: write,
		listenCtx: ctx,
		cancel:    cancel,
	}
}

// SetStatusUpdater sets the status updater (for circular dependency resolution)
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// SetSignalSink sets where polled windows are delivered.
func (a *App) SetSignalSink(s SignalSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = s
}

func (a *App) ListDevices() ([]string, error) {
	return a.catalog.ListDevices()
}

// SelectDevice changes the device used by the next capture and persists it.
func (a *App) SelectDevice(name string) error {
	if err := a.capture.SelectDevice(name); err != nil {
		return err
	}

	device := a.capture.CurrentDevice()
	a.log.Info().Str("device", device).Msg("Selected input device")

	a.updateConfig(func(c *config.Config) {
		if device == audio.DefaultDeviceName {
			device = ""
		}
		c.Audio.Device = device
	})
	return nil
}

// CurrentDevice returns the selected device name, "Default" when unset.
func (a *App) CurrentDevice() string {
	return a.capture.CurrentDevice()
}

// SetResolution changes how many recent samples PollSignal returns and
// persists it.
func (a *App) SetResolution(n int) {
	n = max(n, 0)
	a.buffer.Resize(n)
	a.log.Info().Int("resolution", n).Msg("Changed resolution")
	a.updateConfig(func(c *config.Config) { c.Audio.Resolution = n })
}

func (a *App) GetResolution() int {
	return a.buffer.Capacity()
}

// StartCapture streams from the selected device into the ring buffer and
// blocks until StopCapture is called or ctx ends.
func (a *App) StartCapture(ctx context.Context) error {
	if a.capture.State() != capture.Idle {
		return capture.ErrAlreadyStreaming
	}

	a.setStatus(StatusUpdater.SetListening)
	err := a.capture.Start(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		if !a.identifying.Load() {
			a.setStatus(StatusUpdater.SetIdle)
		}
		return err
	case errors.Is(err, capture.ErrAlreadyStreaming):
		return err
	default:
		a.log.Error().Err(err).Str("code", ErrorCode(err)).Msg("Capture failed")
		a.setStatus(StatusUpdater.SetError)
		return err
	}
}

// StopCapture ends the running capture and blocks until the stream is released.
func (a *App) StopCapture() error {
	return a.capture.Stop()
}

// Listening reports whether a capture session is live.
func (a *App) Listening() bool {
	return a.capture.Active()
}

// ToggleListening starts a background capture when idle and stops it
// otherwise. It reports whether a capture was started.
func (a *App) ToggleListening() bool {
	switch a.capture.State() {
	case capture.Idle:
		a.listenInBackground()
		return true
	case capture.Stopping:
		return false
	}

	ctx, cancel := context.WithTimeout(a.listenCtx, toggleStopTimeout)
	defer cancel()
	if err := a.capture.StopContext(ctx); err != nil {
		a.log.Error().Err(err).Msg("Failed to stop capture")
	}
	return false
}

func (a *App) listenInBackground() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.StartCapture(a.listenCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn().Err(err).Msg("Background capture ended")
		}
	}()
}

// PollSignal returns up to resolution of the most recent samples and hands
// them to the signal sink.
func (a *App) PollSignal() []float32 {
	samples := a.buffer.Snapshot(a.buffer.Capacity())

	a.mu.Lock()
	sink := a.sink
	a.mu.Unlock()
	if sink != nil {
		sink.Signal(samples)
	}
	return samples
}

// Recognize identifies what is playing on the selected device. A running
// capture is stopped for the duration and resumed afterwards.
func (a *App) Recognize(ctx context.Context) (recognize.TrackMetadata, error) {
	if !a.identifying.CompareAndSwap(false, true) {
		return recognize.TrackMetadata{}, ErrIdentifyInProgress
	}
	defer a.identifying.Store(false)

	state := a.capture.State()
	resume := state == capture.Starting || state == capture.Streaming
	if resume {
		a.log.Debug().Msg("Pausing capture for recognition")
		if err := a.capture.StopContext(ctx); err != nil {
			return recognize.TrackMetadata{}, err
		}
	}

	a.setStatus(StatusUpdater.SetIdentifying)

	var md recognize.TrackMetadata
	err := a.capture.Lease(ctx, func(ctx context.Context) error {
		var err error
		md, err = a.id.Identify(ctx, a.capture.CurrentDevice())
		return err
	})

	if resume {
		a.listenInBackground()
	}

	if err != nil {
		a.log.Error().Err(err).Str("code", ErrorCode(err)).Msg("Recognition failed")
		a.setStatus(StatusUpdater.SetError)
		return recognize.TrackMetadata{}, err
	}

	a.mu.Lock()
	a.lastTrack = &md
	a.mu.Unlock()

	if md.Matched() && a.copyEnabled() {
		if err := a.clipboard(md.String()); err != nil {
			a.log.Warn().Err(err).Msg("Failed to copy track to clipboard")
		}
	}

	if resume {
		a.setStatus(StatusUpdater.SetListening)
	} else {
		a.setStatus(StatusUpdater.SetIdle)
	}
	return md, nil
}

// OnHotkey starts a recognition in the background when the hotkey is pressed.
func (a *App) OnHotkey(pressed bool) {
	if !pressed || a.identifying.Load() {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.Recognize(a.listenCtx); err != nil && !errors.Is(err, ErrIdentifyInProgress) {
			a.log.Debug().Err(err).Msg("Hotkey recognition failed")
		}
	}()
}

// Identifying reports whether a recognition is running.
func (a *App) Identifying() bool {
	return a.identifying.Load()
}

// LastTrack returns the most recent recognition result.
func (a *App) LastTrack() (recognize.TrackMetadata, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastTrack == nil {
		return recognize.TrackMetadata{}, false
	}
	return *a.lastTrack, true
}

// CopyLastTrack writes "Artist - Track" of the last match to the clipboard.
func (a *App) CopyLastTrack() error {
	md, ok := a.LastTrack()
	if !ok || !md.Matched() {
		return errors.New("no recognized track")
	}
	return a.clipboard(md.String())
}

// SetCopyToClipboard toggles copying matches to the clipboard and persists it.
func (a *App) SetCopyToClipboard(enabled bool) {
	a.updateConfig(func(c *config.Config) { c.CopyToClipboard = enabled })
}

func (a *App) copyEnabled() bool {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	return a.cfg != nil && a.cfg.CopyToClipboard
}

// Shutdown stops capture and waits for background work to finish.
func (a *App) Shutdown(ctx context.Context) error {
	a.cancel()
	if err := a.capture.StopContext(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) updateConfig(fn func(*config.Config)) {
	if a.cfg == nil {
		return
	}
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	fn(a.cfg)
	if err := a.cfg.Save(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to save config")
	}
}

func (a *App) setStatus(fn func(StatusUpdater)) {
	a.mu.Lock()
	s := a.status
	a.mu.Unlock()
	if s != nil {
		fn(s)
	}
}
