package tray

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/tunetray/internal/app"
	"github.com/petems/tunetray/internal/config"
	"github.com/petems/tunetray/internal/logging"
)

// Resolutions offered in the menu, in samples.
var resolutions = []int{256, 512, 1024, 2048, 4096}

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger
	ctx     context.Context

	mu     sync.Mutex
	status string
	meter  string

	// Menu items
	mListen    *systray.MenuItem
	mIdentify  *systray.MenuItem
	mLastTrack *systray.MenuItem
	mDevices   *systray.MenuItem
	mRes       *systray.MenuItem
	mClipboard *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetListening() {
	u.updateStatus("listening")
}

func (u *UI) SetIdentifying() {
	u.updateStatus("identifying")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

// Signal renders the polled window as a level meter in the tray title.
func (u *UI) Signal(samples []float32) {
	u.mu.Lock()
	u.meter = LevelMeter(RMS(samples))
	u.mu.Unlock()
	u.refreshTitle()
}

func New(application *app.App, cfg *config.Config, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log.With().Str("component", "tray").Logger(),
		status:  "idle",
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Run blocks on the tray event loop until Quit is chosen or ctx ends.
func (u *UI) Run(ctx context.Context) error {
	u.ctx = ctx
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.refreshTitle()
	systray.SetTooltip("Listen to the microphone and identify songs")

	// Build menu
	mListen := systray.AddMenuItem("Start Listening", "Show the input level")
	u.mu.Lock()
	u.mListen = mListen
	u.mu.Unlock()
	u.mIdentify = systray.AddMenuItem("Identify Song", fmt.Sprintf("Or press %s", u.cfg.PlatformHotkey()))
	u.mLastTrack = systray.AddMenuItem("No song identified yet", "Copy to clipboard")
	u.mLastTrack.Disable()
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Input Device", "Select audio device")
	u.buildDeviceMenu()

	u.mRes = systray.AddMenuItem("Resolution", "Samples shown in the level meter")
	u.buildResolutionMenu()

	systray.AddSeparator()
	u.mClipboard = systray.AddMenuItemCheckbox("Copy Matches", "Copy recognized songs to the clipboard", u.cfg.CopyToClipboard)

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About TuneTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	go u.pollSignal()

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mListen.ClickedCh:
			u.toggleListening()
		case <-u.mIdentify.ClickedCh:
			go u.identify()
		case <-u.mLastTrack.ClickedCh:
			if err := u.app.CopyLastTrack(); err != nil {
				u.log.Warn().Err(err).Msg("Failed to copy last track")
			}
		case <-u.mClipboard.ClickedCh:
			u.toggleClipboard()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// pollSignal feeds the level meter while a capture is live.
func (u *UI) pollSignal() {
	ticker := time.NewTicker(u.cfg.PollInterval())
	defer ticker.Stop()

	done := u.done()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if u.app.Listening() {
				u.app.PollSignal()
			}
		}
	}
}

func (u *UI) done() <-chan struct{} {
	if u.ctx == nil {
		return nil
	}
	return u.ctx.Done()
}

func (u *UI) toggleListening() {
	started := u.app.ToggleListening()
	u.mListen.SetTitle(listenTitle(started))
	if started {
		return
	}
	u.mu.Lock()
	u.meter = ""
	u.mu.Unlock()
	u.refreshTitle()
}

// listenTitle is the label of the listen toggle.
func listenTitle(listening bool) string {
	if listening {
		return "Stop Listening"
	}
	return "Start Listening"
}

func (u *UI) identify() {
	ctx := u.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	u.mIdentify.Disable()
	defer u.mIdentify.Enable()

	md, err := u.app.Recognize(ctx)
	if err != nil {
		u.mLastTrack.SetTitle("Recognition failed: " + app.ErrorCode(err))
		return
	}
	u.mLastTrack.SetTitle(trackTitle(md.String()))
	u.mLastTrack.Enable()
}

func (u *UI) buildDeviceMenu() {
	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Str("code", app.ErrorCode(err)).Msg("Failed to list audio devices")
		return
	}

	current := u.app.CurrentDevice()
	deviceItems := make(map[string]*systray.MenuItem, len(devices))
	for _, name := range devices {
		item := u.mDevices.AddSubMenuItem(name, "")
		if name == current {
			item.Check()
		}
		deviceItems[name] = item
	}

	// The map is read-only from here on.
	for name, item := range deviceItems {
		go func(deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				if err := u.app.SelectDevice(deviceName); err != nil {
					u.log.Error().Err(err).Str("device", deviceName).Msg("Failed to select device")
					continue
				}
				checkOnly(deviceItems, deviceName)
			}
		}(name, item)
	}
}

func (u *UI) buildResolutionMenu() {
	current := u.app.GetResolution()
	resItems := make(map[int]*systray.MenuItem, len(resolutions))
	for _, n := range resolutions {
		item := u.mRes.AddSubMenuItem(fmt.Sprintf("%d samples", n), "")
		if n == current {
			item.Check()
		}
		resItems[n] = item
	}

	for n, item := range resItems {
		go func(size int, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				checkOnly(resItems, size)
				u.app.SetResolution(size)
			}
		}(n, item)
	}
}

// checkOnly checks the item under key and unchecks the rest.
func checkOnly[K comparable](items map[K]*systray.MenuItem, key K) {
	for k, item := range items {
		if k == key {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (u *UI) toggleClipboard() {
	enabled := !u.mClipboard.Checked()
	if enabled {
		u.mClipboard.Check()
	} else {
		u.mClipboard.Uncheck()
	}
	u.app.SetCopyToClipboard(enabled)
	u.log.Info().Bool("enabled", enabled).Msg("Changed clipboard copy")
}

func (u *UI) openLogs() {
	if err := openPath(logging.LogPath()); err != nil {
		u.log.Error().Err(err).Msg("Failed to open logs")
	}
}

func (u *UI) showAbout() {
	// TODO: Show about dialog with native UI
	fmt.Printf("TuneTray %s (%s)\nListen and identify songs\n", u.version, u.commit)
}

func (u *UI) onExit() {
	u.log.Debug().Msg("Tray exited")
}

// updateStatus sets the tray title with status indicator
func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	u.status = status
	if status != "listening" {
		u.meter = ""
	}
	mListen := u.mListen
	u.mu.Unlock()
	u.refreshTitle()

	// Captures also start and stop from recognition and from failures.
	if mListen != nil {
		mListen.SetTitle(listenTitle(status == "listening" || (u.app != nil && u.app.Listening())))
	}
}

func (u *UI) refreshTitle() {
	u.mu.Lock()
	title := formatTitle(u.status, u.meter)
	u.mu.Unlock()
	systray.SetTitle(title)
}

func formatTitle(status, meter string) string {
	title := fmt.Sprintf("🎵 %s", emojiForStatus(status))
	if meter != "" {
		title += " " + meter
	}
	return title
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "listening":
		return "🔴" // Red - capturing
	case "identifying":
		return "🟡" // Yellow - waiting on the recognizer
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

func trackTitle(track string) string {
	if track == "" {
		return "No match"
	}
	return "♪ " + track
}

// RMS returns the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

const meterWidth = 5

var meterBlocks = []rune("▁▂▃▄▅▆▇█")

// LevelMeter renders level (0..1) as a fixed width bar.
func LevelMeter(level float64) string {
	level = math.Max(0, math.Min(1, level))
	steps := len(meterBlocks)
	filled := int(math.Round(level * float64(meterWidth*steps)))

	var b strings.Builder
	for range meterWidth {
		switch {
		case filled >= steps:
			b.WriteRune(meterBlocks[steps-1])
			filled -= steps
		case filled > 0:
			b.WriteRune(meterBlocks[filled-1])
			filled = 0
		default:
			b.WriteRune(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func openPath(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
