package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/buzzer/go/internal/audio"
	"github.com/mcdev12/buzzer/go/internal/hardware"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Game     GameConfig     `yaml:"game"`
	Hardware HardwareConfig `yaml:"hardware"`
	Audio    AudioConfig    `yaml:"audio"`
	NATS     NATSConfig     `yaml:"nats"`
	Client   ClientConfig   `yaml:"client"`
}

type ServerConfig struct {
	SocketAddr      string        `yaml:"socket_addr"`
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type GameConfig struct {
	Columns       int           `yaml:"columns"`
	ReactionPause time.Duration `yaml:"reaction_pause"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	NoteCount     int           `yaml:"note_count"`
	NoteInterval  time.Duration `yaml:"note_interval"`
	Tolerance     time.Duration `yaml:"tolerance"`
	GracePeriod   time.Duration `yaml:"grace_period"`
}

type HardwareConfig struct {
	// Indicator is "log" or "sysfs".
	Indicator  string        `yaml:"indicator"`
	GPIORoot   string        `yaml:"gpio_root"`
	LEDPins    []int         `yaml:"led_pins"`
	ActiveLow  bool          `yaml:"active_low"`
	ButtonPins []int         `yaml:"button_pins"`
	ButtonPoll time.Duration `yaml:"button_poll"`
	Debounce   time.Duration `yaml:"debounce"`
}

type AudioConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	File    string   `yaml:"file"`
}

// NATSConfig enables the event relay when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type ClientConfig struct {
	ServerAddr string `yaml:"server_addr"`
	// Input is "stdin" or "gpio".
	Input string `yaml:"input"`
}

// Default returns the configuration of the physical two-player setup.
func Default() Config {
	bgm := audio.DefaultConfig()
	return Config{
		Server: ServerConfig{
			SocketAddr:      ":12346",
			HTTPAddr:        ":5000",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Game: GameConfig{
			Columns:       3,
			ReactionPause: 3 * time.Second,
			PollInterval:  100 * time.Millisecond,
			NoteCount:     20,
			NoteInterval:  time.Second,
			Tolerance:     200 * time.Millisecond,
			GracePeriod:   time.Second,
		},
		Hardware: HardwareConfig{
			Indicator:  "log",
			GPIORoot:   hardware.DefaultGPIORoot,
			LEDPins:    []int{16, 20, 21},
			ActiveLow:  true,
			ButtonPins: []int{15, 18, 23},
			ButtonPoll: 50 * time.Millisecond,
			Debounce:   hardware.DefaultDebounce,
		},
		Audio: AudioConfig{
			Command: bgm.Command,
			Args:    bgm.Args,
			File:    bgm.File,
		},
		NATS: NATSConfig{
			StreamName:    "BUZZER_EVENTS",
			SubjectPrefix: "buzzer.events",
		},
		Client: ClientConfig{
			ServerAddr: "127.0.0.1:12346",
			Input:      "stdin",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the environment, in increasing precedence. A .env file in the
// working directory is loaded into the environment first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.SocketAddr = getEnv("BUZZER_SOCKET_ADDR", c.Server.SocketAddr)
	c.Server.HTTPAddr = getEnv("BUZZER_HTTP_ADDR", c.Server.HTTPAddr)
	c.Log.Level = getEnv("BUZZER_LOG_LEVEL", c.Log.Level)
	c.Hardware.Indicator = getEnv("BUZZER_INDICATOR_DRIVER", c.Hardware.Indicator)
	c.Hardware.GPIORoot = getEnv("BUZZER_GPIO_ROOT", c.Hardware.GPIORoot)
	c.Audio.File = getEnv("BUZZER_BGM_FILE", c.Audio.File)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Client.ServerAddr = getEnv("BUZZER_SERVER_ADDR", c.Client.ServerAddr)
	c.Client.Input = getEnv("BUZZER_CLIENT_INPUT", c.Client.Input)

	var err error
	if c.Log.Console, err = getEnvAsBool("BUZZER_LOG_CONSOLE", c.Log.Console); err != nil {
		return err
	}
	if c.Game.NoteCount, err = getEnvAsInt("BUZZER_NOTE_COUNT", c.Game.NoteCount); err != nil {
		return err
	}
	if c.Game.Tolerance, err = getEnvAsDuration("BUZZER_TOLERANCE", c.Game.Tolerance); err != nil {
		return err
	}
	if c.Game.ReactionPause, err = getEnvAsDuration("BUZZER_REACTION_PAUSE", c.Game.ReactionPause); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the engines cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Game.Columns <= 0 {
		errs = append(errs, errors.New("game.columns must be positive"))
	}
	if c.Game.NoteCount < 0 {
		errs = append(errs, errors.New("game.note_count must not be negative"))
	}
	durations := map[string]time.Duration{
		"game.reaction_pause":  c.Game.ReactionPause,
		"game.poll_interval":   c.Game.PollInterval,
		"game.note_interval":   c.Game.NoteInterval,
		"game.tolerance":       c.Game.Tolerance,
		"game.grace_period":    c.Game.GracePeriod,
		"hardware.button_poll": c.Hardware.ButtonPoll,
		"hardware.debounce":    c.Hardware.Debounce,
	}
	for _, name := range sortedKeys(durations) {
		if durations[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	switch c.Hardware.Indicator {
	case "log", "sysfs":
	default:
		errs = append(errs, fmt.Errorf("hardware.indicator %q must be log or sysfs", c.Hardware.Indicator))
	}
	if c.Hardware.Indicator == "sysfs" && len(c.Hardware.LEDPins) != c.Game.Columns {
		errs = append(errs, fmt.Errorf("hardware.led_pins needs %d pins", c.Game.Columns))
	}
	switch c.Client.Input {
	case "stdin", "gpio":
	default:
		errs = append(errs, fmt.Errorf("client.input %q must be stdin or gpio", c.Client.Input))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
