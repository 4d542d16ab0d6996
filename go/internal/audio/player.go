package audio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

var (
	ErrAlreadyPlaying = errors.New("bgm is already playing")
	ErrNotPlaying     = errors.New("bgm is not playing")
	ErrFileNotFound   = errors.New("bgm file not found")
)

// Process is a running playback process.
type Process interface {
	Signal(sig os.Signal) error
	Wait() error
}

// Starter launches name with args.
type Starter func(name string, args ...string) (Process, error)

// Config selects the player command and the track it plays.
type Config struct {
	Command string
	Args    []string
	File    string
}

// DefaultConfig plays bgm.mp3 with mpg123.
func DefaultConfig() Config {
	return Config{
		Command: "mpg123",
		File:    "bgm.mp3",
	}
}

// Player runs at most one background music process at a time.
type Player struct {
	config Config
	start  Starter

	mu   sync.Mutex
	proc Process
}

// NewPlayer creates a player that launches real processes.
func NewPlayer(config Config) *Player {
	return NewPlayerWithStarter(config, execStarter)
}

// NewPlayerWithStarter creates a player with a custom process launcher.
func NewPlayerWithStarter(config Config, start Starter) *Player {
	return &Player{config: config, start: start}
}

// File returns the configured track.
func (p *Player) File() string { return p.config.File }

// Playing reports whether a track is currently playing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proc != nil
}

// Play starts the track.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.proc != nil {
		return ErrAlreadyPlaying
	}
	if _, err := os.Stat(p.config.File); err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, p.config.File)
	}

	args := append(append([]string(nil), p.config.Args...), p.config.File)
	proc, err := p.start(p.config.Command, args...)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", p.config.Command, err)
	}
	p.proc = proc
	go p.reap(proc)

	log.Info().Str("file", p.config.File).Msg("bgm started")
	return nil
}

// Stop terminates the track.
func (p *Player) Stop() error {
	p.mu.Lock()
	proc := p.proc
	p.proc = nil
	p.mu.Unlock()

	if proc == nil {
		return ErrNotPlaying
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop bgm: %w", err)
	}
	log.Info().Msg("bgm stopped")
	return nil
}

// reap clears the slot when the process exits on its own.
func (p *Player) reap(proc Process) {
	err := proc.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.proc != proc {
		return
	}
	p.proc = nil
	if err != nil {
		log.Warn().Err(err).Msg("bgm process exited")
		return
	}
	log.Info().Msg("bgm finished")
}

type execProcess struct {
	cmd *exec.Cmd
}

func (e *execProcess) Signal(sig os.Signal) error { return e.cmd.Process.Signal(sig) }
func (e *execProcess) Wait() error                { return e.cmd.Wait() }

func execStarter(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}
