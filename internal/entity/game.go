package entity

import (
	"errors"
	"fmt"
)

// Cell is the content of one board position.
type Cell string

const (
	EmptyCell Cell = ""
	PlayerX   Cell = "X"
	PlayerO   Cell = "O"
)

// BoardSize is the number of cells; the board is 3x3 in row-major order.
const BoardSize = 9

// Status is the coarse outcome of a game.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDraw       Status = "draw"
)

var (
	ErrInvalidCell  = errors.New("invalid cell index")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrGameFinished = errors.New("game is already finished")
	ErrInvalidBoard = errors.New("invalid board")

	// WinCombos are checked in this order; the first full line wins.
	WinCombos = [8]Line{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

type Board [BoardSize]Cell

// Outcome is derived from the board; Winner is set only for StatusWon.
type Outcome struct {
	Status Status `json:"status"`
	Winner Cell   `json:"winner,omitempty"`
}

func (that Outcome) IsFinished() bool {
	return that.Status != StatusInProgress
}

// State is a read-only snapshot of the engine.
type State struct {
	Board       Board   `json:"board"`
	Turn        Cell    `json:"turn"`
	Outcome     Outcome `json:"outcome"`
	WinningLine *Line   `json:"winning_line,omitempty"`
}

// StatusText is the caption a presenter shows above the board.
func (that State) StatusText() string {
	switch that.Outcome.Status {
	case StatusWon:
		return fmt.Sprintf("Player %s wins!", that.Outcome.Winner)
	case StatusDraw:
		return "It's a draw!"
	default:
		return fmt.Sprintf("Player %s's turn", that.Turn)
	}
}

// Game is the tic-tac-toe state machine. It is not safe for concurrent use;
// the presenter that created it owns it.
type Game struct {
	board       Board
	turn        Cell
	outcome     Outcome
	winningLine *Line
}

// NewGame returns an engine in the fresh state: empty board, X to move.
func NewGame() *Game {
	game := &Game{}
	game.Reset()

	return game
}

// Restore rebuilds an engine from a persisted board. Turn and outcome are
// re-derived, so a stored board can never disagree with its state.
func Restore(board Board) (*Game, error) {
	var xCount, oCount int

	for i, cell := range board {
		switch cell {
		case PlayerX:
			xCount++
		case PlayerO:
			oCount++
		case EmptyCell:
		default:
			return nil, fmt.Errorf("%w: unknown mark %q at cell %d", ErrInvalidBoard, cell, i)
		}
	}

	if xCount != oCount && xCount != oCount+1 {
		return nil, fmt.Errorf("%w: %d X marks against %d O marks", ErrInvalidBoard, xCount, oCount)
	}

	outcome, line := Evaluate(board)

	// on a finished board the turn stays with whoever moved last
	turn := PlayerX
	if outcome.IsFinished() == (xCount == oCount) {
		turn = PlayerO
	}

	if outcome.Status == StatusWon && outcome.Winner != turn {
		return nil, fmt.Errorf("%w: %s has a line but did not move last", ErrInvalidBoard, outcome.Winner)
	}

	return &Game{
		board:       board,
		turn:        turn,
		outcome:     outcome,
		winningLine: line,
	}, nil
}

// State returns the current snapshot.
func (that *Game) State() State {
	var line *Line
	if that.winningLine != nil {
		copied := *that.winningLine
		line = &copied
	}

	return State{
		Board:       that.board,
		Turn:        that.turn,
		Outcome:     that.outcome,
		WinningLine: line,
	}
}

// PlaceMark puts the current player's mark at position. Out-of-range
// positions, occupied cells and moves after the game ended are ignored.
func (that *Game) PlaceMark(position int) State {
	state, _ := that.TryPlaceMark(position)

	return state
}

// TryPlaceMark behaves like PlaceMark but reports why a move was ignored.
// The returned state is valid in both cases.
func (that *Game) TryPlaceMark(position int) (State, error) {
	if position < 0 || position >= BoardSize {
		return that.State(), fmt.Errorf("%w: cell %d", ErrInvalidCell, position)
	}

	if that.board[position] != EmptyCell {
		return that.State(), fmt.Errorf("%w: cell %d", ErrCellOccupied, position)
	}

	if that.outcome.IsFinished() {
		return that.State(), ErrGameFinished
	}

	that.board[position] = that.turn
	that.outcome, that.winningLine = Evaluate(that.board)

	if !that.outcome.IsFinished() {
		that.turn = toggleMark(that.turn)
	}

	return that.State(), nil
}

// Reset returns the engine to the fresh state.
func (that *Game) Reset() State {
	*that = Game{
		board:   Board{},
		turn:    PlayerX,
		outcome: Outcome{Status: StatusInProgress},
	}

	return that.State()
}

// Evaluate derives the outcome of a board and the line that decided it.
func Evaluate(board Board) (Outcome, *Line) {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			line := combo
			return Outcome{Status: StatusWon, Winner: a}, &line
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range board {
		if cell == EmptyCell {
			return Outcome{Status: StatusInProgress}, nil
		}
	}

	return Outcome{Status: StatusDraw}, nil
}

func toggleMark(currentMark Cell) Cell {
	if currentMark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
