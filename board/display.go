package board

import (
	"strconv"
	"strings"
)

const (
	FirstPlayerMark  = 'x'
	SecondPlayerMark = 'o'
	EmptyMark        = '.'
)

// Cell returns 0 for an empty cell, 1 for a first-player stone and 2 for a
// second-player stone. row 0 is the bottom row.
func (p Position) Cell(col, row int) int {
	b := uint64(1) << (col*(Height+1) + row)
	if p.mask&b == 0 {
		return 0
	}
	mine := p.current&b != 0
	// the first player is on turn after an even number of moves.
	if mine == (p.numMoves%2 == 0) {
		return 1
	}
	return 2
}

// Grid returns the position as rows of cell codes, top row first. It is the
// inverse of FromGrid.
func (p Position) Grid() [][]int {
	g := make([][]int, Height)
	for r := range g {
		g[r] = make([]int, Width)
		for col := 0; col < Width; col++ {
			g[r][col] = p.Cell(col, Height-1-r)
		}
	}
	return g
}

// ToDisplayText renders the board with the first player as x.
func (p Position) ToDisplayText() string {
	var sb strings.Builder
	for row := Height - 1; row >= 0; row-- {
		sb.WriteByte('|')
		for col := 0; col < Width; col++ {
			switch p.Cell(col, row) {
			case 1:
				sb.WriteByte(FirstPlayerMark)
			case 2:
				sb.WriteByte(SecondPlayerMark)
			default:
				sb.WriteByte(EmptyMark)
			}
			sb.WriteByte('|')
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte(' ')
	for col := 1; col <= Width; col++ {
		sb.WriteString(strconv.Itoa(col))
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func (p Position) String() string {
	return p.ToDisplayText()
}
