package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Healthy       bool      `json:"healthy"`
	RelayRunning  bool      `json:"relay_running"`
	NATSConnected bool      `json:"nats_connected"`
	Published     uint64    `json:"events_published"`
	Failed        uint64    `json:"events_failed"`
	Pending       int       `json:"pending_events"`
	LastSent      time.Time `json:"last_event_time"`
	Errors        []string  `json:"errors"`
}

// Connectivity reports whether the bus connection is up.
type Connectivity interface {
	Connected() bool
}

// HealthChecker reports on the relay and its bus connection.
type HealthChecker struct {
	relay     *Relay
	conn      Connectivity
	threshold int // pending events before the relay counts as backed up
}

func NewHealthChecker(relay *Relay, conn Connectivity, threshold int) *HealthChecker {
	return &HealthChecker{relay: relay, conn: conn, threshold: threshold}
}

func (h *HealthChecker) Check() HealthStatus {
	stats := h.relay.Stats()
	status := HealthStatus{
		Healthy:      true,
		RelayRunning: stats.Running,
		Published:    stats.Published,
		Failed:       stats.Failed,
		Pending:      stats.Pending,
		LastSent:     stats.LastSent,
		Errors:       []string{},
	}

	if !stats.Running {
		status.Healthy = false
		status.Errors = append(status.Errors, "relay not running")
	}

	if h.conn != nil {
		status.NATSConnected = h.conn.Connected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if stats.Pending > h.threshold {
		status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", stats.Pending))
	}

	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode health response")
	}
}
