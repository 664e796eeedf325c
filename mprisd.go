// Copyright 2025 The MPRISD Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"

	"github.com/spezifisch/mprisd/descriptor"
	"github.com/spezifisch/mprisd/dispatch"
	"github.com/spezifisch/mprisd/logger"
	"github.com/spezifisch/mprisd/player"
	"github.com/spezifisch/mprisd/playlists"
	"github.com/spezifisch/mprisd/remote"
	"github.com/spezifisch/mprisd/tracklist"
)

var osExit = os.Exit // A variable to allow mocking os.Exit in tests
var testMode bool    // This can be set to true during tests

const DEVELOPMENT = "development"

// Name is the identity we report unless the config says otherwise
var Name string = "mprisd"

// Version is the program version
var Version string = DEVELOPMENT

func readConfig(configFile *string) error {
	if configFile != nil && *configFile != "" {
		// use custom config file
		viper.SetConfigFile(*configFile)
	} else {
		// lookup default dirs
		viper.SetConfigName("mprisd")
		viper.SetConfigType("toml")
		viper.AddConfigPath("$HOME/.config/mprisd")
		viper.AddConfigPath(".")
	}

	viper.SetDefault("player.identity", Name)
	viper.SetDefault("player.uri_schemes", []string{"dummy"})
	viper.SetDefault("player.mime_types", []string{"audio/mpeg", "audio/ogg", "audio/vnd.wav"})
	viper.SetDefault("player.min_rate", 1.0)
	viper.SetDefault("player.max_rate", 1.0)
	viper.SetDefault("mpris.export", true)

	if err := viper.ReadInConfig(); err != nil {
		// running without a config file is fine, a named one must exist
		if configFile != nil && *configFile != "" {
			return fmt.Errorf("Config file error: %s\n", err)
		}
	}

	// validate
	if viper.GetFloat64("player.min_rate") > viper.GetFloat64("player.max_rate") {
		return fmt.Errorf("Config property player.min_rate must not exceed player.max_rate\n")
	}

	return nil
}

// app wires the dispatcher and the three state-owning components together
// and implements the root MediaPlayer2 interface for them.
type app struct {
	logger     *logger.Logger
	dispatcher *dispatch.Dispatcher
	tracks     *tracklist.Manager
	lists      *playlists.Store
	player     *player.Player
	mpris      *remote.Mpris

	identity   string
	schemes    []string
	mimeTypes  []string
	fullscreen bool

	calls    chan func()
	quit     chan struct{}
	quitOnce sync.Once
}

func newApp(log *logger.Logger) (*app, error) {
	a := &app{
		logger:    log,
		identity:  viper.GetString("player.identity"),
		schemes:   viper.GetStringSlice("player.uri_schemes"),
		mimeTypes: viper.GetStringSlice("player.mime_types"),
		calls:     make(chan func(), 16),
		quit:      make(chan struct{}),
	}

	a.dispatcher = dispatch.New(descriptor.MPRIS(), log)
	a.tracks = tracklist.NewManager(a.schemes, a.dispatcher, log)
	a.player = player.New(a.tracks,
		viper.GetFloat64("player.min_rate"),
		viper.GetFloat64("player.max_rate"),
		a.dispatcher, log)
	a.lists = playlists.NewStore(a.dispatcher, log)

	mpris, err := remote.NewMpris(a.dispatcher, a, a.player, a.tracks, a.lists, a, log)
	if err != nil {
		return nil, err
	}
	a.mpris = mpris
	return a, nil
}

func (a *app) Identity() string              { return a.identity }
func (a *app) DesktopEntry() string          { return "" }
func (a *app) SupportedUriSchemes() []string { return a.schemes }
func (a *app) SupportedMimeTypes() []string  { return a.mimeTypes }
func (a *app) Fullscreen() bool              { return a.fullscreen }
func (a *app) SetFullscreen(v bool)          { a.fullscreen = v }

func (a *app) Raise() {
	// no window to raise, but the method is mandatory
	a.logger.Print("Raise requested")
}

func (a *app) Quit() {
	a.quitOnce.Do(func() {
		close(a.quit)
	})
}

func (a *app) loadSources(tracklistFile, playlistsFile string) {
	if tracklistFile != "" {
		data, err := os.ReadFile(tracklistFile)
		if err != nil {
			a.logger.PrintError("read track list", err)
		} else if status := a.tracks.LoadText(string(data)); !status.OK() {
			a.logger.Printf("track list: %d entries, %d skipped", status.Entries, status.Skipped)
		}
	}
	if playlistsFile != "" {
		data, err := os.ReadFile(playlistsFile)
		if err != nil {
			a.logger.PrintError("read playlists", err)
		} else if status := a.lists.LoadText(string(data)); !status.OK() {
			a.logger.Printf("playlists: %d entries, %d skipped", status.Entries, status.Skipped)
		}
	}
}

// return codes:
// 0 - OK
// 1 - config error
// 2 - startup binding error
func main() {
	help := flag.Bool("help", false, "Print usage")
	configFile := flag.String("config", "", "Use config file")
	tracklistFile := flag.String("tracklist", "", "Track list source, one URI per line")
	playlistsFile := flag.String("playlists", "", "Playlist source, YAML")
	versionFlag := flag.Bool("version", false, "Print version")
	flag.Parse()

	if *help {
		flag.Usage()
		osExit(0)
		return
	}
	if *versionFlag {
		fmt.Printf("%s-%s\n", Name, Version)
		osExit(0)
		return
	}

	if err := readConfig(configFile); err != nil {
		fmt.Fprint(os.Stderr, err.Error())
		osExit(1)
		return
	}

	log := logger.Init()

	a, err := newApp(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup error: %s\n", err)
		osExit(2)
		return
	}

	a.loadSources(*tracklistFile, *playlistsFile)

	if viper.GetBool("mpris.export") && !testMode {
		if err := a.mpris.ExportSessionBus(); err != nil {
			log.PrintError("mpris session bus", err)
		} else {
			defer a.mpris.Close()
		}
	}

	if testMode {
		return
	}
	a.run()
}
