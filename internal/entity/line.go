package entity

// Line is an ordered triple of board indices.
type Line [3]int

type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
	Diagonal   Orientation = "diagonal"
)

// Orientation reports how a presenter should draw the strike-through and the
// ordinal of the line within that orientation: the row, the column, or 0 for
// the main diagonal and 1 for the anti-diagonal. ok is false for a triple that
// is not one of WinCombos.
func (that Line) Orientation() (Orientation, int, bool) {
	for i, combo := range WinCombos {
		if combo != that {
			continue
		}

		switch {
		case i < 3:
			return Horizontal, i, true
		case i < 6:
			return Vertical, i - 3, true
		default:
			return Diagonal, i - 6, true
		}
	}

	return "", 0, false
}

// Contains reports whether position is one of the line's cells.
func (that Line) Contains(position int) bool {
	return that[0] == position || that[1] == position || that[2] == position
}
