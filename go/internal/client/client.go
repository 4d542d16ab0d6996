package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/hardware"
)

const welcomePrefix = "You are "

type Config struct {
	ServerAddr   string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Debounce     time.Duration
}

func DefaultConfig() Config {
	return Config{
		ServerAddr:   "127.0.0.1:12346",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Debounce:     hardware.DefaultDebounce,
	}
}

// Client is one player's input device: it forwards debounced button presses
// to the server and logs the server's narration.
type Client struct {
	config Config
	source hardware.Source
	clock  clockwork.Clock

	mu     sync.Mutex
	player string
}

func New(config Config, source hardware.Source, clock clockwork.Clock) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{config: config, source: source, clock: clock}
}

// Player returns the identity the server assigned, or "" before the
// welcome message arrived.
func (c *Client) Player() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// Run dials the server and plays until ctx is done or the server hangs up.
func (c *Client) Run(ctx context.Context) error {
	d := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.config.ServerAddr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.config.ServerAddr, err)
	}
	log.Info().Str("server", c.config.ServerAddr).Msg("connected to the server")
	return c.Serve(ctx, conn)
}

// Serve plays over an established connection and closes it on return.
func (c *Client) Serve(ctx context.Context, conn net.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	readErr := make(chan error, 1)
	go func() {
		readErr <- c.listen(conn)
		cancel()
	}()

	debouncer := hardware.NewDebouncer(c.clock, c.config.Debounce)
	for button := range debouncer.Filter(ctx, c.source.Presses(ctx)) {
		if err := c.send(conn, button); err != nil {
			log.Error().Err(err).Msg("failed to send button press")
			cancel()
			break
		}
	}

	// Input ended, wait for the server side.
	<-ctx.Done()
	conn.Close()
	err := <-readErr
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

func (c *Client) send(conn net.Conn, button int) error {
	msg := fmt.Sprintf("Button %d", button+1)
	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if _, err := conn.Write([]byte(msg + "\n")); err != nil {
		return err
	}
	log.Info().Str("message", msg).Msg("sent")
	return nil
}

// listen logs server messages until the connection ends.
func (c *Client) listen(conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		msg := strings.TrimSpace(scanner.Text())
		if msg == "" {
			continue
		}
		log.Info().Str("message", msg).Msg("server")

		if player, ok := strings.CutPrefix(msg, welcomePrefix); ok {
			c.mu.Lock()
			c.player = player
			c.mu.Unlock()
			log.Info().Str("player", player).Msg("assigned identity")
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	log.Info().Msg("server disconnected")
	return nil
}
