// Package view maps engine state to the JSON documents served to presenters.
package view

import (
	"time"

	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

type Session struct {
	ID              string             `json:"id"`
	Board           entity.Board       `json:"board"`
	Turn            entity.Cell        `json:"turn"`
	Status          entity.Status      `json:"status"`
	Winner          entity.Cell        `json:"winner,omitempty"`
	WinningLine     *entity.Line       `json:"winning_line,omitempty"`
	LineOrientation entity.Orientation `json:"line_orientation,omitempty"`
	LineIndex       *int               `json:"line_index,omitempty"`
	StatusText      string             `json:"status_text"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func NewSession(session *entity.Session) Session {
	state := session.Game.State()

	result := Session{
		ID:          session.ID,
		Board:       state.Board,
		Turn:        state.Turn,
		Status:      state.Outcome.Status,
		Winner:      state.Outcome.Winner,
		WinningLine: state.WinningLine,
		StatusText:  state.StatusText(),
		UpdatedAt:   session.UpdatedAt,
	}

	if state.WinningLine != nil {
		if orientation, index, ok := state.WinningLine.Orientation(); ok {
			result.LineOrientation = orientation
			result.LineIndex = &index
		}
	}

	return result
}
