package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/transport/view"
)

type sessionUseCase interface {
	StartSession(ctx context.Context) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	PlaceMark(ctx context.Context, id string, position int) (*entity.Session, error)
	Reset(ctx context.Context, id string) (*entity.Session, error)
	EndSession(ctx context.Context, id string) error
}

type SessionHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	PlaceMark(w http.ResponseWriter, r *http.Request)
	Reset(w http.ResponseWriter, r *http.Request)
	End(w http.ResponseWriter, r *http.Request)
}

type MarkRequest struct {
	Position *int `json:"position"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type sessionHandler struct {
	logger   *slog.Logger
	sessions sessionUseCase
}

func NewSessionHandler(logger *slog.Logger, sessions sessionUseCase) SessionHandler {
	return &sessionHandler{
		logger:   logger.With("component", "rest"),
		sessions: sessions,
	}
}

func (that *sessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := that.sessions.StartSession(r.Context())
	if err != nil {
		that.writeError(w, "Start", err)
		return
	}

	that.writeJSON(w, http.StatusCreated, view.NewSession(session))
}

func (that *sessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := that.sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, "Get", err)
		return
	}

	that.writeJSON(w, http.StatusOK, view.NewSession(session))
}

// PlaceMark answers 200 for ignored moves too; the body shows the unchanged game.
func (that *sessionHandler) PlaceMark(w http.ResponseWriter, r *http.Request) {
	var request MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		that.writeError(w, "PlaceMark", errors.Join(apperror.ErrBadRequest, err))
		return
	}

	if request.Position == nil {
		that.writeError(w, "PlaceMark", errors.Join(apperror.ErrBadRequest, errors.New("position is required")))
		return
	}

	session, err := that.sessions.PlaceMark(r.Context(), chi.URLParam(r, "id"), *request.Position)
	if err != nil {
		that.writeError(w, "PlaceMark", err)
		return
	}

	that.writeJSON(w, http.StatusOK, view.NewSession(session))
}

func (that *sessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, err := that.sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, "Reset", err)
		return
	}

	that.writeJSON(w, http.StatusOK, view.NewSession(session))
}

func (that *sessionHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := that.sessions.EndSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		that.writeError(w, "End", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *sessionHandler) writeError(w http.ResponseWriter, method string, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrBadRequest), errors.Is(err, apperror.ErrEmptySessionID):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
		that.writeJSON(w, status, ErrorResponse{Error: http.StatusText(status)})
		return
	}

	that.logger.Debug("request rejected", "method", method, "error", err)
	that.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (that *sessionHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
