package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-engine/transport/view"
)

const sessionQueryParam = "session"

var errPositionRequired = errors.New("position is required")

type sessionUseCase interface {
	StartSession(ctx context.Context) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	PlaceMark(ctx context.Context, id string, position int) (*entity.Session, error)
	Reset(ctx context.Context, id string) (*entity.Session, error)
}

type handlerFunc func(ctx context.Context, sessionID string, msg *Message) (*entity.Session, error)

// Server binds each websocket connection to one session and answers every
// message with the session state.
type Server struct {
	logger   *slog.Logger
	sessions sessionUseCase

	acceptOptions *websocket.AcceptOptions
	handlers      map[string]handlerFunc
}

func New(logger *slog.Logger, sessions sessionUseCase) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		sessions: sessions,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[ActionState] = server.handleState
	server.handlers[ActionMark] = server.handleMark
	server.handlers[ActionReset] = server.handleReset

	return server
}

// WithOriginPatterns allows cross-origin clients whose Origin host matches
// one of the patterns. Without patterns only same-origin clients are accepted.
func (that *Server) WithOriginPatterns(patterns ...string) *Server {
	if len(patterns) == 0 {
		that.acceptOptions = nil
		return that
	}

	that.acceptOptions = &websocket.AcceptOptions{OriginPatterns: patterns}

	return that
}

// ServeHTTP upgrades the request. ?session=<id> resumes a session, no id
// starts a new one.
func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeHTTP")
	ctx := r.Context()

	session, err := that.resolveSession(ctx, r.URL.Query().Get(sessionQueryParam))
	if err != nil {
		if errors.Is(err, apperror.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		log.Error("failed to resolve session", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, that.acceptOptions)
	if err != nil {
		log.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	log = log.With("sessionID", session.ID)
	log.Info("WebSocket connection established")

	if err = that.send(ctx, conn, ActionState, session); err != nil {
		log.Error("failed to send initial state", "error", err)
		return
	}

	err = that.handleMessages(ctx, conn, session.ID)

	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure, status == websocket.StatusGoingAway:
		log.Info("WebSocket connection closed")
		_ = conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, context.Canceled):
		log.Info("WebSocket connection closed by server")
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	default:
		log.Error("error handling messages", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "internal error")
	}
}

func (that *Server) resolveSession(ctx context.Context, id string) (*entity.Session, error) {
	if id == "" {
		session, err := that.sessions.StartSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start session: %w", err)
		}

		return session, nil
	}

	session, err := that.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// handleMessages - processes messages from the client until the connection closes.
func (that *Server) handleMessages(ctx context.Context, conn *websocket.Conn, sessionID string) error {
	log := that.logger.With("method", "handleMessages", "sessionID", sessionID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("failed to unmarshal message", "error", err)
			if err = that.sendError(ctx, conn, errors.Join(apperror.ErrBadRequest, err)); err != nil {
				return err
			}
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Debug("unknown action", "action", message.Action)
			if err := that.sendError(ctx, conn, fmt.Errorf("%w: %q", apperror.ErrUnknownAction, message.Action)); err != nil {
				return err
			}
			continue
		}

		session, err := handler(ctx, sessionID, &message)
		if err != nil {
			log.Log(ctx, levelFor(err), "error processing message", "action", message.Action, "error", err)
			if err = that.sendError(ctx, conn, err); err != nil {
				return err
			}
			continue
		}

		if err = that.send(ctx, conn, message.Action, session); err != nil {
			return err
		}
	}
}

func (that *Server) handleState(ctx context.Context, sessionID string, _ *Message) (*entity.Session, error) {
	return that.sessions.GetSession(ctx, sessionID)
}

func (that *Server) handleMark(ctx context.Context, sessionID string, msg *Message) (*entity.Session, error) {
	var payload MarkPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, errors.Join(apperror.ErrBadRequest, err)
	}

	if payload.Position == nil {
		return nil, errors.Join(apperror.ErrBadRequest, errPositionRequired)
	}

	return that.sessions.PlaceMark(ctx, sessionID, *payload.Position)
}

func (that *Server) handleReset(ctx context.Context, sessionID string, _ *Message) (*entity.Session, error) {
	return that.sessions.Reset(ctx, sessionID)
}

// levelFor keeps expected failures out of the error log: a session that
// expired mid-connection and a shutdown cancelling in-flight requests.
func levelFor(err error) slog.Level {
	if errors.Is(err, context.Canceled) || errors.Is(err, apperror.ErrSessionNotFound) {
		return slog.LevelInfo
	}

	return slog.LevelError
}

func (that *Server) send(ctx context.Context, conn *websocket.Conn, action string, session *entity.Session) error {
	sessionView := view.NewSession(session)

	return that.write(ctx, conn, action, ResponsePayload{Session: &sessionView})
}

func (that *Server) sendError(ctx context.Context, conn *websocket.Conn, cause error) error {
	text := http.StatusText(http.StatusInternalServerError)
	if errors.Is(cause, apperror.ErrBadRequest) || errors.Is(cause, apperror.ErrUnknownAction) ||
		errors.Is(cause, apperror.ErrSessionNotFound) {
		text = cause.Error()
	}

	return that.write(ctx, conn, ActionError, ResponsePayload{Error: text})
}

func (that *Server) write(ctx context.Context, conn *websocket.Conn, action string, payload ResponsePayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err = wsjson.Write(ctx, conn, Message{Action: action, Payload: raw}); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	return nil
}
