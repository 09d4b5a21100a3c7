// Package main provides the entry point for the Bookfold application.
package main

import (
	"context"
	"os"
	"time"

	"bookfold/internal/app"
	"bookfold/internal/camera"
	"bookfold/internal/config"
	"bookfold/internal/log"
	"bookfold/internal/version"
	"bookfold/ui/mainwindow"
	"bookfold/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

const (
	appID    = "org.bookfold.app"
	appTitle = "Bookfold"

	cameraOpenTimeout = 10 * time.Second
)

var _ app.FrameSource = (*camera.Stream)(nil)

func main() {
	cfgPath, pathErr := config.Path()
	cfg, cfgErr := config.Load(cfgPath)

	log.Init(log.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	defer log.Close()

	logger := log.L()
	logger.Info("starting", "title", appTitle, "version", version.String())
	if pathErr != nil {
		logger.Warn("no config directory, using defaults", "error", pathErr)
	}
	if cfgErr != nil {
		logger.Warn("failed to load config, using defaults", "path", cfgPath, "error", cfgErr)
	}

	camLogger := log.WithComponent("camera")
	camCfg := camera.Config{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
	}

	state := app.NewState(app.Options{
		Config: cfg,
		Logger: log.WithComponent("app"),
		Open: func(ctx context.Context) (app.FrameSource, error) {
			ctx, cancel := context.WithTimeout(ctx, cameraOpenTimeout)
			defer cancel()
			stream, err := camera.Open(ctx, camCfg, camLogger)
			if err != nil {
				return nil, err
			}
			return stream, nil
		},
	})
	defer state.Close()

	fyneApp := fyneapp.NewWithID(appID)
	win := mainwindow.New(fyneApp, state, prefs.Load(), log.WithComponent("ui"))
	win.SetTitle(appTitle)

	// An instructions file on the command line wins over the saved session.
	if len(os.Args) > 1 {
		path := os.Args[1]
		if err := win.OpenInstructions(path); err != nil {
			logger.Warn("failed to load instructions", "path", path, "error", err)
		}
	}

	win.ShowAndRun()
}
