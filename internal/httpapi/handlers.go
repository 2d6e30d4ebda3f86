package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fcavalcantirj/jarls-sub005/internal/engine"
	"github.com/fcavalcantirj/jarls-sub005/internal/hub"
	"github.com/fcavalcantirj/jarls-sub005/internal/lobby"
	"github.com/fcavalcantirj/jarls-sub005/internal/types"
)

type api struct {
	hub *hub.Hub
	log *zap.Logger
}

type createdGame struct {
	ID    string       `json:"id"`
	State engine.State `json:"state"`
}

func (a *api) createGame(w http.ResponseWriter, r *http.Request) {
	var cfg engine.Config
	if err := decode(r, &cfg); err != nil {
		writeError(w, err)
		return
	}

	id := uuid.NewString()
	s, err := engine.CreateGame(id, cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	reply := make(chan *lobby.Lobby, 1)
	a.hub.Inbox() <- hub.CreateGame{ID: id, State: s, Reply: reply}
	if <-reply == nil {
		http.Error(w, "failed to create game", http.StatusInternalServerError)
		return
	}
	a.log.Info("game created", zap.String("game_id", id), zap.Int("players", cfg.PlayerCount))

	writeJSON(w, http.StatusCreated, createdGame{ID: id, State: s})
}

func (a *api) getGame(w http.ResponseWriter, r *http.Request) {
	lb, ok := a.lobby(w, r)
	if !ok {
		return
	}
	view, err := lb.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lobby.Snapshot{Version: view.Version, State: view.State})
}

func (a *api) joinGame(w http.ResponseWriter, r *http.Request) {
	var req types.JoinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := types.Validate(req); err != nil {
		writeError(w, err)
		return
	}
	lb, ok := a.lobby(w, r)
	if !ok {
		return
	}
	res, err := lb.SeatPlayer(r.Context(), req.PlayerID)
	a.respond(w, res, err)
}

func (a *api) submitAction(w http.ResponseWriter, r *http.Request) {
	var msg types.ClientMessage
	if err := decode(r, &msg); err != nil {
		writeError(w, err)
		return
	}
	action, err := types.ToAction(msg, "")
	if err != nil {
		writeError(w, err)
		return
	}
	lb, ok := a.lobby(w, r)
	if !ok {
		return
	}
	res, err := lb.Apply(r.Context(), action)
	a.respond(w, res, err)
}

func (a *api) respond(w http.ResponseWriter, res lobby.Result, err error) {
	if err == nil {
		err = res.Err
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Snapshot)
}

func (a *api) lobby(w http.ResponseWriter, r *http.Request) (*lobby.Lobby, bool) {
	reply := make(chan *lobby.Lobby, 1)
	a.hub.Inbox() <- hub.GetGame{ID: chi.URLParam(r, "id"), Reply: reply}
	lb := <-reply
	if lb == nil {
		writeError(w, fmt.Errorf("%w: game %s", engine.ErrNotFound, chi.URLParam(r, "id")))
		return nil, false
	}
	return lb, true
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrBadRequest, err)
	}
	return nil
}

var statusByKind = map[string]int{
	"BadRequest":    http.StatusBadRequest,
	"InvalidConfig": http.StatusBadRequest,
	"OutOfBounds":   http.StatusUnprocessableEntity,
	"IllegalMove":   http.StatusUnprocessableEntity,
	"NotYourTurn":   http.StatusConflict,
	"GameFull":      http.StatusConflict,
	"AlreadyJoined": http.StatusConflict,
	"GameOver":      http.StatusGone,
	"NotFound":      http.StatusNotFound,
}

func statusFor(err error) int {
	if errors.Is(err, lobby.ErrStopped) {
		return http.StatusServiceUnavailable
	}
	if code, ok := statusByKind[types.Kind(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), types.Error(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
