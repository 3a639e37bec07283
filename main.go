// Package main provides the entry point for the X-Ray Annotator application.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"github.com/rs/zerolog"

	"xray-annotator/internal/app"
	"xray-annotator/internal/config"
	"xray-annotator/internal/editor"
	"xray-annotator/internal/store"
	"xray-annotator/internal/version"
	"xray-annotator/ui/mainwindow"
	"xray-annotator/ui/prefs"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	devMode := flag.Bool("dev", false, "enable hot reload for development")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	log.Info().
		Str("version", version.Version).
		Str("commit", version.GitCommit).
		Msg("starting x-ray annotator")

	st, err := store.Open(store.Options{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		DSN:     cfg.Store.DSN,
	})
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("open annotation store")
	}
	defer st.Close()

	ed := editor.New(cfg.EditorConfig(), cfg.Viewport(), log)
	state := app.NewState(log, ed, st)
	appPrefs := prefs.Load()

	fyneApp := fyneapp.New()
	fyneApp.Settings().SetTheme(&app.ReadingRoomTheme{})

	win := mainwindow.New(fyneApp, state, appPrefs)

	// An image path on the command line opens that study directly.
	if args := flag.Args(); len(args) > 0 {
		if err := state.LoadImage(context.Background(), args[0]); err != nil {
			log.Error().Err(err).Str("path", args[0]).Msg("open image from command line")
		}
	}

	if *devMode {
		setupHotReload(log, win, appPrefs)
	}

	win.Show()
	fyneApp.Run()
}

// setupHotReload restarts the app when a newer binary appears, after asking.
func setupHotReload(log zerolog.Logger, win *mainwindow.MainWindow, appPrefs *prefs.Prefs) {
	reloader := app.NewHotReloader(log, 2*time.Second)
	if reloader == nil {
		log.Warn().Msg("hot reload: unable to determine executable path")
		return
	}

	reloader.OnNewBinary(func() {
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(restart bool) {
				if !restart {
					reloader.ResetBaseline()
					reloader.Start()
					return
				}
				_ = appPrefs.Save()
				log.Info().Msg("hot reload: restarting")
				if err := reloader.Restart(); err != nil {
					log.Error().Err(err).Msg("hot reload: restart failed")
				}
			}, win)
	})

	reloader.Start()
}
