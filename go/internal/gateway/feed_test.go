package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcdev12/buzzer/go/internal/game"
)

func waitForCount(t *testing.T, f *Feed, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", f.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeedStreamsEvents(t *testing.T) {
	feed := NewFeed(DefaultFeedConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Start(ctx)

	srv := httptest.NewServer(feed)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForCount(t, feed, 1)

	e := game.NewEvent(game.EventRoundWon, time.Now(), "Player 2 wins! Current scores: Player 1=0, Player 2=1").
		WithPlayer(game.Player2)
	e.Scores = game.Scores{game.Player1: 0, game.Player2: 1}
	feed.Notify(e)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got game.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if got.ID != e.ID || got.Type != game.EventRoundWon || got.Player != game.Player2 {
		t.Errorf("event = %+v", got)
	}
	if got.Scores[game.Player2] != 1 {
		t.Errorf("scores = %v", got.Scores)
	}
}

func TestFeedUnregistersClosedSpectator(t *testing.T) {
	feed := NewFeed(DefaultFeedConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Start(ctx)

	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForCount(t, feed, 1)

	conn.Close()
	waitForCount(t, feed, 0)
}

func TestFeedNotifyNeverBlocks(t *testing.T) {
	cfg := DefaultFeedConfig()
	cfg.QueueSize = 1
	feed := NewFeed(cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			feed.Notify(game.NewEvent(game.EventPenalty, time.Now(), "x"))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
}
