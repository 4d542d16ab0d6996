package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/buzzer/go/internal/audio"
	"github.com/mcdev12/buzzer/go/internal/game"
)

// Controller is the session surface the HTTP handlers drive.
type Controller interface {
	SelectMode(m game.Mode) error
	Start(m game.Mode) error
	Stop(m game.Mode) error
	Status() game.Status
	Notes() []game.Note
}

// MusicPlayer plays the background track.
type MusicPlayer interface {
	Play() error
	Stop() error
	File() string
}

// PlayerLister reports which player slots are connected.
type PlayerLister interface {
	ConnectedPlayers() []game.PlayerID
}

// UpdateResponse is the status snapshot served at /update
type UpdateResponse struct {
	game.Status
	PlayersConnected []game.PlayerID `json:"players_connected"`
}

// ModeRequest is the body of the set/start/stop endpoints
type ModeRequest struct {
	Game string `json:"game"`
}

// ModeResponse acknowledges a mode change
type ModeResponse struct {
	Status      string     `json:"status"`
	CurrentGame *game.Mode `json:"current_game"`
	Message     string     `json:"message,omitempty"`
}

// NotesResponse lists the remaining rhythm notes
type NotesResponse struct {
	Notes []game.Note `json:"notes"`
}

// StateHandler serves the status and control endpoints
type StateHandler struct {
	controller Controller
	music      MusicPlayer
	players    PlayerLister
}

// NewStateHandler creates a new state handler. music may be nil, in which
// case the BGM endpoints are not registered.
func NewStateHandler(controller Controller, music MusicPlayer, players PlayerLister) *StateHandler {
	return &StateHandler{
		controller: controller,
		music:      music,
		players:    players,
	}
}

// HandleUpdate handles GET /update
func (h *StateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := UpdateResponse{
		Status:           h.controller.Status(),
		PlayersConnected: []game.PlayerID{},
	}
	if h.players != nil {
		resp.PlayersConnected = h.players.ConnectedPlayers()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSetGame handles POST /set_game
func (h *StateHandler) HandleSetGame(w http.ResponseWriter, r *http.Request) {
	h.handleMode(w, r, func(m game.Mode) (ModeResponse, error) {
		if err := h.controller.SelectMode(m); err != nil {
			return ModeResponse{}, err
		}
		return ModeResponse{Status: "success", CurrentGame: &m}, nil
	})
}

// HandleStartGame handles POST /start_game
func (h *StateHandler) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	h.handleMode(w, r, func(m game.Mode) (ModeResponse, error) {
		if err := h.controller.Start(m); err != nil {
			return ModeResponse{}, err
		}
		return ModeResponse{Status: "started", CurrentGame: &m}, nil
	})
}

// HandleStopGame handles POST /stop_game
func (h *StateHandler) HandleStopGame(w http.ResponseWriter, r *http.Request) {
	h.handleMode(w, r, func(m game.Mode) (ModeResponse, error) {
		if err := h.controller.Stop(m); err != nil {
			return ModeResponse{}, err
		}
		return ModeResponse{Status: "stopped", CurrentGame: h.controller.Status().CurrentGame}, nil
	})
}

func (h *StateHandler) handleMode(w http.ResponseWriter, r *http.Request, fn func(m game.Mode) (ModeResponse, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ModeResponse{Status: "fail", Message: "Invalid request body"})
		return
	}

	m, err := game.ParseMode(req.Game)
	if err == nil {
		var resp ModeResponse
		if resp, err = fn(m); err == nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	status, msg := modeErrorResponse(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("mode change failed")
	}
	writeJSON(w, status, ModeResponse{Status: "fail", Message: msg})
}

func modeErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInvalidMode):
		return http.StatusBadRequest, "Invalid game mode"
	case errors.Is(err, game.ErrConflict):
		return http.StatusBadRequest, "Another game is already active"
	case errors.Is(err, game.ErrNotActive):
		return http.StatusBadRequest, "Game is not active"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// HandleGetNotes handles GET /get_notes
func (h *StateHandler) HandleGetNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: h.controller.Notes()})
}

// HandlePlayBGM handles GET /play_bgm
func (h *StateHandler) HandlePlayBGM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := h.music.Play()
	switch {
	case err == nil:
		writeText(w, http.StatusOK, "BGM started.")
	case errors.Is(err, audio.ErrAlreadyPlaying):
		writeText(w, http.StatusBadRequest, "BGM is already playing.")
	case errors.Is(err, audio.ErrFileNotFound):
		writeText(w, http.StatusNotFound, fmt.Sprintf("BGM file not found: %s", h.music.File()))
	default:
		log.Error().Err(err).Msg("failed to start BGM")
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("Failed to start BGM: %v", err))
	}
}

// HandleStopBGM handles GET /stop_bgm
func (h *StateHandler) HandleStopBGM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := h.music.Stop()
	switch {
	case err == nil:
		writeText(w, http.StatusOK, "BGM stopped.")
	case errors.Is(err, audio.ErrNotPlaying):
		writeText(w, http.StatusBadRequest, "BGM is not playing.")
	default:
		log.Error().Err(err).Msg("failed to stop BGM")
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("Failed to stop BGM: %v", err))
	}
}

// RegisterStateRoutes registers the status and control routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/update", h.HandleUpdate)
	mux.HandleFunc("/set_game", h.HandleSetGame)
	mux.HandleFunc("/start_game", h.HandleStartGame)
	mux.HandleFunc("/stop_game", h.HandleStopGame)
	mux.HandleFunc("/get_notes", h.HandleGetNotes)
	if h.music != nil {
		mux.HandleFunc("/play_bgm", h.HandlePlayBGM)
		mux.HandleFunc("/stop_bgm", h.HandleStopBGM)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(msg)); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
