package client

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type chanSource struct {
	in chan int
}

func (s *chanSource) Presses(ctx context.Context) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case i := <-s.in:
				select {
				case out <- i:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func TestClientSendsDebouncedPresses(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()

	clock := clockwork.NewFakeClock()
	src := &chanSource{in: make(chan int, 8)}
	c := New(DefaultConfig(), src, clock)

	done := make(chan error, 1)
	go func() { done <- c.Serve(context.Background(), conn) }()

	server.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := server.Write([]byte("You are Player 2\n")); err != nil {
		t.Fatalf("write welcome: %v", err)
	}

	reader := bufio.NewReader(server)
	src.in <- 2
	src.in <- 2 // bounce
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "Button 3\n" {
		t.Errorf("sent %q, want %q", line, "Button 3\n")
	}

	src.in <- 0
	line, err = reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "Button 1\n" {
		t.Errorf("sent %q, want %q (the bounce must be dropped)", line, "Button 1\n")
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Player() != "Player 2" {
		if time.Now().After(deadline) {
			t.Fatalf("Player() = %q, want Player 2", c.Player())
		}
		time.Sleep(5 * time.Millisecond)
	}

	server.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after the server hung up")
	}
}

func TestClientStopsOnContextCancel(t *testing.T) {
	server, conn := net.Pipe()
	defer server.Close()
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(DefaultConfig(), &chanSource{in: make(chan int)}, clockwork.NewFakeClock())
	done := make(chan error, 1)
	go func() { done <- c.Serve(ctx, conn) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop on cancel")
	}
}

func TestRunDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := DefaultConfig()
	cfg.ServerAddr = addr
	cfg.DialTimeout = time.Second
	c := New(cfg, &chanSource{in: make(chan int)}, nil)
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded against a closed port")
	}
}
