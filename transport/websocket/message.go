package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-engine/transport/view"
)

const (
	ActionState = "game:state"
	ActionMark  = "game:mark"
	ActionReset = "game:reset"
	ActionError = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type MarkPayload struct {
	Position *int `json:"position"`
}

type ResponsePayload struct {
	Session *view.Session `json:"session,omitempty"`
	Error   string        `json:"error,omitempty"`
}
