// Command mudra turns hand poses seen by the camera into keyboard, pointer
// and system commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/log"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mudra:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "config file (default ~/.mudra/config.yaml)")
	dryRun := flag.Bool("dry-run", false, "show commands without injecting them")
	noTray := flag.Bool("no-tray", false, "run without the menu bar icon")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *noTray {
		cfg.Tray = false
	}

	logger := log.Init(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting mudra", "dry_run", cfg.DryRun, "store", cfg.Store.Path)

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	seeded, err := st.Bindings().Seed(cfg.Bindings)
	if err != nil {
		return fmt.Errorf("seed bindings: %w", err)
	}
	if seeded {
		logger.Info("seeded bindings from config", "count", len(cfg.Bindings))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plugins := plugin.NewManager(cfg.Plugins.Dir)
	if err := plugins.Discover(); err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}
	logger.Info("plugins discovered", "dir", cfg.Plugins.Dir, "count", len(plugins.List()))

	injector := plugin.NewInjector(plugins, plugin.NewExecutor(cfg.Plugins.Timeout.Std()), cfg.Plugins.QueueSize)
	injector.Start(ctx)
	defer injector.Close()

	dispatcher := dispatch.New(dispatch.Config{
		Window:        cfg.Smoothing.Window,
		Majority:      cfg.Smoothing.Majority,
		Gate:          cfg.GateConfig(),
		MinConfidence: cfg.Classifier.MinConfidence,
		DryRun:        cfg.DryRun,
		Logger:        logger,
	}, injector)

	a, err := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.ID,
			FPS:      cfg.Camera.FPS,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			Mirror:   cfg.Camera.Mirror,
		}),
		Classifier: classify.NewLandmarkClassifier(newDetector(cfg, logger), gesture.NewStaticMatcher()),
		Dispatcher: dispatcher,
		Store:      st,
		Motion:     capture.NewMotionDetector(capture.DefaultMotionThreshold),
		Pacer:      capture.NewPacer(),
		Preview:    cfg.Server.Enabled,
		DryRun:     cfg.DryRun,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if cfg.Classifier.UseTemplates {
		if _, err := a.LoadTemplates(); err != nil {
			logger.Warn("load templates", "err", err)
		}
	}
	if err := a.ReloadBindings(); err != nil {
		return err
	}

	hub := server.NewStatusHub()
	a.OnStatus(hub.Publish)

	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	errc := make(chan error, 1)
	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir: cfg.Server.StaticDir,
			Store:     st,
			App:       a,
			Hub:       hub,
			Plugins:   plugins,
			Logger:    logger,

			TemplateTolerance: cfg.Classifier.TemplateTolerance,
		})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("server: %w", err)
				stop()
			}
		}()
	}

	if cfg.Tray {
		runTray(ctx, stop, a, "http://"+cfg.Server.Addr, logger)
	} else {
		<-ctx.Done()
	}

	select {
	case err := <-errc:
		return err
	default:
	}
	logger.Info("shutting down")
	return nil
}

// newDetector returns the MediaPipe detector, or a detector that never sees
// a hand when the recognizer service is unavailable.
func newDetector(cfg *config.Config, logger *slog.Logger) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg.DetectorConfig())
	if err != nil {
		logger.Warn("MediaPipe not available, no hands will be detected", "err", err)
		return detector.NewMockDetector()
	}
	logger.Info("using MediaPipe hand detection")
	return mp
}

// runTray runs the menu bar icon on the main thread until quit or ctx is done.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, settingsURL string, logger *slog.Logger) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnQuit(stop)
	t.OnSettings(func() {
		if err := openBrowser(settingsURL); err != nil {
			logger.Warn("open settings", "url", settingsURL, "err", err)
		}
	})
	a.OnStatus(t.SetStatus)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func openBrowser(url string) error {
	name := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	}
	return exec.Command(name, url).Start()
}
