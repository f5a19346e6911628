package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/tunetray/internal/app"
	"github.com/petems/tunetray/internal/audio"
	"github.com/petems/tunetray/internal/capture"
	"github.com/petems/tunetray/internal/config"
	"github.com/petems/tunetray/internal/hotkey"
	"github.com/petems/tunetray/internal/logging"
	"github.com/petems/tunetray/internal/permissions"
	"github.com/petems/tunetray/internal/recognize"
	"github.com/petems/tunetray/internal/ring"
	"github.com/petems/tunetray/internal/tray"
)

// flags override the loaded config for one run.
type flags struct {
	backend  string
	device   string
	logLevel string
	seconds  int
}

func rootCommand() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:           "tunetray",
		Short:         "Microphone level meter and song recognition in the system tray",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTray(cmd.Context(), f)
		},
	}

	rootCmd.PersistentFlags().StringVar(&f.backend, "backend", "", fmt.Sprintf("Audio backend (%v)", audio.Backends()))
	rootCmd.PersistentFlags().StringVarP(&f.device, "device", "D", "", "Input device name, \"Default\" for the host default")
	rootCmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		devicesCommand(&f),
		listenCommand(&f),
		identifyCommand(&f),
	)
	return rootCmd
}

// env holds everything wired from the config for one run.
type env struct {
	cfg     *config.Config
	log     zerolog.Logger
	host    audio.Host
	catalog *audio.Catalog
	buffer  *ring.Buffer
	capture *capture.Controller
	app     *app.App
}

func setup(f flags) (*env, error) {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.backend != "" {
		cfg.Audio.Backend = f.backend
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.seconds > 0 {
		cfg.Recognize.Seconds = f.seconds
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	host, err := audio.NewHost(cfg.Audio.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio: %w", err)
	}

	catalog := audio.NewCatalog(host, log)
	buffer := ring.New(cmp.Or(cfg.Audio.Resolution, ring.DefaultCapacity))
	ctrl := capture.New(capture.Config{
		Catalog:      catalog,
		Buffer:       buffer,
		Logger:       log,
		Device:       cfg.Audio.Device,
		SampleRate:   cfg.Audio.SampleRate,
		StartTimeout: cfg.StartTimeout(),
	})

	e := &env{cfg: cfg, log: log, host: host, catalog: catalog, buffer: buffer, capture: ctrl}

	if f.device != "" {
		if err := ctrl.SelectDevice(f.device); err != nil {
			host.Close()
			return nil, err
		}
	}

	svc := recognize.New(recognize.Config{
		Catalog:    catalog,
		Recognizer: newRecognizer(cfg, log),
		Logger:     log,
		Duration:   cfg.CaptureDuration(),
		SampleRate: cfg.Audio.SampleRate,
	})

	e.app = app.New(app.Config{
		Catalog:    catalog,
		Capture:    ctrl,
		Buffer:     buffer,
		Identifier: svc,
		Config:     cfg,
		Logger:     log,
	})
	return e, nil
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.app.Shutdown(ctx); err != nil {
		e.log.Error().Err(err).Msg("Shutdown error")
	}
	if err := e.host.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Failed to close audio host")
	}
}

func newRecognizer(cfg *config.Config, log zerolog.Logger) recognize.Recognizer {
	if cfg.Recognize.Mode == config.RecognizeHTTP {
		return recognize.NewHTTPRecognizer(cfg.Recognize.Endpoint, cfg.Recognize.APIKey, nil, log)
	}
	return recognize.NewCommandRecognizer(cfg.Recognize.Command, cfg.Recognize.TempDir, log)
}

func runTray(ctx context.Context, f flags) error {
	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsurePermissions(); err != nil {
		return err
	}

	e, err := setup(f)
	if err != nil {
		return err
	}
	defer e.close()

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, e.cfg, e.log, Version, Commit) // App reference set below
	e.app.SetStatusUpdater(trayUI)
	e.app.SetSignalSink(trayUI)
	trayUI.SetApp(e.app)

	hkManager, err := hotkey.New()
	if err != nil {
		return fmt.Errorf("failed to initialize hotkeys: %w", err)
	}
	defer hkManager.Close()

	// A missing hotkey leaves the menu usable.
	if err := hkManager.Register(e.cfg.PlatformHotkey(), e.app.OnHotkey); err != nil {
		e.log.Warn().Err(err).Str("hotkey", e.cfg.PlatformHotkey()).Msg("Failed to register hotkey")
	}

	e.log.Info().Str("version", Version).Str("host", e.host.Name()).Msg("TuneTray starting...")

	// Start tray UI - MUST run on main thread
	return trayUI.Run(ctx)
}
