package entity

import "time"

// Session binds one engine to an id so remote presenters can drive it.
type Session struct {
	ID        string
	Game      *Game
	UpdatedAt time.Time
}

func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Game:      NewGame(),
		UpdatedAt: time.Now().UTC(),
	}
}
