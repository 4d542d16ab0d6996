package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/buzzer/go/internal/audio"
	"github.com/mcdev12/buzzer/go/internal/hardware"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buzzer.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.SocketAddr != ":12346" || cfg.Server.HTTPAddr != ":5000" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Game.Tolerance != 200*time.Millisecond || cfg.Game.NoteCount != 20 {
		t.Errorf("game = %+v", cfg.Game)
	}
	if len(cfg.Hardware.LEDPins) != 3 || cfg.Hardware.LEDPins[0] != 16 || !cfg.Hardware.ActiveLow {
		t.Errorf("hardware = %+v", cfg.Hardware)
	}
	if cfg.Hardware.GPIORoot != hardware.DefaultGPIORoot || cfg.Hardware.Debounce != hardware.DefaultDebounce {
		t.Errorf("gpio root = %q debounce = %v", cfg.Hardware.GPIORoot, cfg.Hardware.Debounce)
	}
	if bgm := audio.DefaultConfig(); cfg.Audio.Command != bgm.Command || cfg.Audio.File != bgm.File {
		t.Errorf("audio = %+v, want %+v", cfg.Audio, bgm)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("nats url = %q, want relay disabled by default", cfg.NATS.URL)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
game:
  reaction_pause: 1500ms
  note_count: 5
hardware:
  indicator: sysfs
  led_pins: [5, 6, 13]
nats:
  url: nats://localhost:4222
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.SocketAddr != ":12346" {
		t.Errorf("socket addr = %q, want the default kept", cfg.Server.SocketAddr)
	}
	if cfg.Game.ReactionPause != 1500*time.Millisecond || cfg.Game.NoteCount != 5 {
		t.Errorf("game = %+v", cfg.Game)
	}
	if cfg.Hardware.Indicator != "sysfs" || cfg.Hardware.LEDPins[2] != 13 {
		t.Errorf("hardware = %+v", cfg.Hardware)
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  http_addr: \":8080\"\n")
	t.Setenv("BUZZER_HTTP_ADDR", ":9090")
	t.Setenv("BUZZER_TOLERANCE", "150ms")
	t.Setenv("BUZZER_NOTE_COUNT", "0")
	t.Setenv("NATS_URL", "nats://bus:4222")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("http addr = %q, want env value", cfg.Server.HTTPAddr)
	}
	if cfg.Game.Tolerance != 150*time.Millisecond {
		t.Errorf("tolerance = %v", cfg.Game.Tolerance)
	}
	if cfg.Game.NoteCount != 0 {
		t.Errorf("note count = %d", cfg.Game.NoteCount)
	}
	if cfg.NATS.URL != "nats://bus:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad yaml", body: "game: [", wantErr: "failed to parse config"},
		{name: "bad duration env", env: map[string]string{"BUZZER_TOLERANCE": "soon"}, wantErr: "BUZZER_TOLERANCE"},
		{name: "zero columns", body: "game:\n  columns: 0\n", wantErr: "game.columns"},
		{name: "negative pause", body: "game:\n  reaction_pause: -1s\n", wantErr: "game.reaction_pause"},
		{name: "unknown indicator", body: "hardware:\n  indicator: serial\n", wantErr: "hardware.indicator"},
		{name: "pin count", body: "hardware:\n  indicator: sysfs\n  led_pins: [1]\n", wantErr: "led_pins"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() of a missing file succeeded")
	}
}
