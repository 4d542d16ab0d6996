package main

import (
	"flag"

	"github.com/mcdev12/buzzer/go/internal/audio"
	"github.com/mcdev12/buzzer/go/internal/config"
	"github.com/mcdev12/buzzer/go/internal/events"
	"github.com/mcdev12/buzzer/go/internal/game"
)

func parseFlags() (configPath string) {
	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.Parse()
	return configPath
}

func gameOptions(c config.GameConfig) game.Options {
	o := game.DefaultOptions()
	o.Columns = c.Columns
	o.ReactionPause = c.ReactionPause
	o.PollInterval = c.PollInterval
	o.NoteCount = c.NoteCount
	o.NoteInterval = c.NoteInterval
	o.Tolerance = c.Tolerance
	o.GracePeriod = c.GracePeriod
	return o
}

func audioConfig(c config.AudioConfig) audio.Config {
	return audio.Config{Command: c.Command, Args: c.Args, File: c.File}
}

func jetStreamConfig(c config.NATSConfig) events.JetStreamConfig {
	js := events.DefaultJetStreamConfig()
	js.URL = c.URL
	if c.StreamName != "" {
		js.StreamName = c.StreamName
	}
	if c.SubjectPrefix != "" {
		js.SubjectPrefix = c.SubjectPrefix
	}
	return js
}
