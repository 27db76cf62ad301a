package view

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

func TestNewSession(t *testing.T) {
	t.Run("Game in progress has no line fields", func(t *testing.T) {
		// Given: a fresh session
		session := entity.NewSession("s1")

		// When: rendering it as JSON
		data, err := json.Marshal(NewSession(session))
		require.NoError(t, err)

		// Then: only the in-progress fields are present
		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))

		assert.Equal(t, "s1", doc["id"])
		assert.Equal(t, "X", doc["turn"])
		assert.Equal(t, "in_progress", doc["status"])
		assert.Equal(t, "Player X's turn", doc["status_text"])
		assert.Len(t, doc["board"], entity.BoardSize)
		assert.NotContains(t, doc, "winner")
		assert.NotContains(t, doc, "winning_line")
		assert.NotContains(t, doc, "line_index")
	})

	t.Run("Won game carries the line and its geometry", func(t *testing.T) {
		// Given: O has won on the anti-diagonal
		session := entity.NewSession("s1")
		for _, position := range []int{0, 2, 1, 4, 8, 6} {
			session.Game.PlaceMark(position)
		}

		// When: building the view
		result := NewSession(session)

		// Then: the strike-through can be drawn without comparing triples
		assert.Equal(t, entity.StatusWon, result.Status)
		assert.Equal(t, entity.PlayerO, result.Winner)
		assert.Equal(t, &entity.Line{2, 4, 6}, result.WinningLine)
		assert.Equal(t, entity.Diagonal, result.LineOrientation)
		require.NotNil(t, result.LineIndex)
		assert.Equal(t, 1, *result.LineIndex)
		assert.Equal(t, "Player O wins!", result.StatusText)
	})
}
