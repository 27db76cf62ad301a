package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-engine/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
	"github.com/rocketscienceinc/tictactoe-engine/internal/repository"
	"github.com/rocketscienceinc/tictactoe-engine/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-engine/testing/suite"
)

type client struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

// lockedBuffer collects log output written from server goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (that *lockedBuffer) Write(p []byte) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.buf.Write(p)
}

func (that *lockedBuffer) String() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.buf.String()
}

func startServer(t *testing.T) (context.Context, *usecase.SessionManager, string) {
	t.Helper()

	ctx, st := suite.New(t)

	return startServerWith(t, ctx, st, st.Logger)
}

func startServerWith(
	t *testing.T, ctx context.Context, st *suite.Suite, logger *slog.Logger, originPatterns ...string,
) (context.Context, *usecase.SessionManager, string) {
	t.Helper()

	sessions := usecase.NewSessionManager(st.Logger, repository.NewSessionRepository(st.Storage, time.Minute))
	srv := httptest.NewServer(New(logger, sessions).WithOriginPatterns(originPatterns...))
	t.Cleanup(srv.Close)

	return ctx, sessions, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func at(position int) MarkPayload {
	return MarkPayload{Position: &position}
}

func dial(t *testing.T, ctx context.Context, url string) *client {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	return &client{t: t, ctx: ctx, conn: conn}
}

func (that *client) send(action string, payload any) {
	that.t.Helper()

	msg := Message{Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(that.t, err)
		msg.Payload = raw
	}

	require.NoError(that.t, wsjson.Write(that.ctx, that.conn, msg))
}

func (that *client) receive() (string, ResponsePayload) {
	that.t.Helper()

	var msg Message
	require.NoError(that.t, wsjson.Read(that.ctx, that.conn, &msg))

	var payload ResponsePayload
	require.NoError(that.t, json.Unmarshal(msg.Payload, &payload))

	return msg.Action, payload
}

func TestServer_NewSession(t *testing.T) {
	ctx, _, url := startServer(t)

	// Given: a client connecting without a session id
	c := dial(t, ctx, url)

	// Then: the first message is the fresh state
	action, payload := c.receive()
	require.Equal(t, ActionState, action)
	require.NotNil(t, payload.Session)
	assert.NotEmpty(t, payload.Session.ID)
	assert.Equal(t, entity.StatusInProgress, payload.Session.Status)

	t.Run("Mark places the current player's mark", func(t *testing.T) {
		c.send(ActionMark, at(4))

		action, payload := c.receive()
		require.Equal(t, ActionMark, action)
		assert.Equal(t, entity.PlayerX, payload.Session.Board[4])
		assert.Equal(t, entity.PlayerO, payload.Session.Turn)
	})

	t.Run("Out of range mark is answered with the unchanged state", func(t *testing.T) {
		c.send(ActionMark, at(-1))

		action, payload := c.receive()
		require.Equal(t, ActionMark, action)
		assert.Equal(t, entity.PlayerO, payload.Session.Turn)
	})

	t.Run("Mark without a position is an error and nothing is played", func(t *testing.T) {
		c.send(ActionMark, map[string]any{})

		action, payload := c.receive()
		require.Equal(t, ActionError, action)
		assert.Contains(t, payload.Error, "bad request")
		assert.Contains(t, payload.Error, "position is required")

		c.send(ActionState, nil)
		action, payload = c.receive()
		require.Equal(t, ActionState, action)
		assert.Equal(t, entity.EmptyCell, payload.Session.Board[0])
		assert.Equal(t, entity.PlayerO, payload.Session.Turn)
	})

	t.Run("Mark without a payload is an error", func(t *testing.T) {
		c.send(ActionMark, nil)

		action, payload := c.receive()
		require.Equal(t, ActionError, action)
		assert.Contains(t, payload.Error, "bad request")
	})

	t.Run("Unknown action is an error and the connection stays open", func(t *testing.T) {
		c.send("game:undo", nil)

		action, payload := c.receive()
		require.Equal(t, ActionError, action)
		assert.Contains(t, payload.Error, "unknown action")

		c.send(ActionState, nil)
		action, _ = c.receive()
		assert.Equal(t, ActionState, action)
	})

	t.Run("Malformed JSON is an error", func(t *testing.T) {
		require.NoError(t, c.conn.Write(ctx, websocket.MessageText, []byte("{not json")))

		action, payload := c.receive()
		require.Equal(t, ActionError, action)
		assert.Contains(t, payload.Error, "bad request")
	})

	t.Run("Reset returns the fresh game", func(t *testing.T) {
		c.send(ActionReset, nil)

		action, payload := c.receive()
		require.Equal(t, ActionReset, action)
		assert.Equal(t, entity.Board{}, payload.Session.Board)
		assert.Equal(t, entity.PlayerX, payload.Session.Turn)
	})
}

func TestServer_ResumeSession(t *testing.T) {
	ctx, sessions, url := startServer(t)

	// Given: a session with one move already made
	session, err := sessions.StartSession(ctx)
	require.NoError(t, err)
	_, err = sessions.PlaceMark(ctx, session.ID, 0)
	require.NoError(t, err)

	// When: connecting with its id
	c := dial(t, ctx, url+"?session="+session.ID)

	// Then: the stored game is sent
	action, payload := c.receive()
	require.Equal(t, ActionState, action)
	assert.Equal(t, session.ID, payload.Session.ID)
	assert.Equal(t, entity.PlayerX, payload.Session.Board[0])
	assert.Equal(t, entity.PlayerO, payload.Session.Turn)
}

func TestServer_UnknownSession(t *testing.T) {
	ctx, _, url := startServer(t)

	// When: connecting with an id that does not exist
	_, resp, err := websocket.Dial(ctx, url+"?session=missing", nil)

	// Then: the upgrade is refused with 404
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_SessionExpiresWhileConnected(t *testing.T) {
	ctx, st := suite.New(t)

	logs := &lockedBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, sessions, url := startServerWith(t, ctx, st, logger)

	// Given: a connected client whose session is then removed
	c := dial(t, ctx, url)
	_, payload := c.receive()
	require.NoError(t, sessions.EndSession(ctx, payload.Session.ID))

	// When: the client plays
	c.send(ActionMark, at(0))

	// Then: the client is told and the server does not log it as an error
	action, payload := c.receive()
	require.Equal(t, ActionError, action)
	assert.Contains(t, payload.Error, "session not found")

	assert.Contains(t, logs.String(), "error processing message")
	assert.NotContains(t, logs.String(), `"level":"ERROR"`)
}

func TestServer_OriginPatterns(t *testing.T) {
	header := http.Header{"Origin": {"http://game.example.com"}}

	t.Run("Cross-origin client is refused by default", func(t *testing.T) {
		ctx, _, url := startServer(t)

		_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Cross-origin client matching a pattern is accepted", func(t *testing.T) {
		ctx, st := suite.New(t)
		_, _, url := startServerWith(t, ctx, st, st.Logger, "*.example.com")

		conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

		c := &client{t: t, ctx: ctx, conn: conn}
		action, _ := c.receive()
		assert.Equal(t, ActionState, action)
	})
}

func TestLevelFor(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected slog.Level
	}{
		"expired session": {fmt.Errorf("failed to get session: %w", apperror.ErrSessionNotFound), slog.LevelInfo},
		"shutdown":        {fmt.Errorf("failed to read message: %w", context.Canceled), slog.LevelInfo},
		"storage failure": {errors.New("redis down"), slog.LevelError},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, levelFor(test.err))
		})
	}
}
