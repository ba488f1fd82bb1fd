package board

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	Width  = 7
	Height = 6
	// NumCells is the number of playable cells on the board.
	NumCells = Width * Height

	MinScore = -NumCells/2 + 3
	MaxScore = (NumCells+1)/2 - 3

	// CenterColumn is the 0-indexed middle column.
	CenterColumn = (Width+1)/2 - 1
)

// The board must fit in a 64-bit bitboard, with one guard bit per column.
const _ = uint(64 - Width*(Height+1))

var ErrInvalidSequence = errors.New("invalid move sequence")

// Position is a connect-four position stored as two bitboards.
//
// Bit index for a cell is col*(Height+1) + row, with row 0 at the bottom:
//
//	 6 13 20 27 34 41 48
//	 5 12 19 26 33 40 47
//	 4 11 18 25 32 39 46
//	 3 10 17 24 31 38 45
//	 2  9 16 23 30 37 44
//	 1  8 15 22 29 36 43
//	 0  7 14 21 28 35 42
//
// The top row is a guard row that is never set by play. current holds the
// stones of the player to move; it flips perspective every ply.
type Position struct {
	current  uint64
	mask     uint64
	numMoves int
}

var (
	bottomMask = bottom(Width, Height)
	boardMask  = bottomMask * ((1 << Height) - 1)
)

func bottom(width, height int) uint64 {
	var b uint64
	for w := 0; w < width; w++ {
		b |= 1 << (w * (height + 1))
	}
	return b
}

// ColumnMask returns a bitmask with every playable cell of col set.
func ColumnMask(col int) uint64 {
	return ((1 << Height) - 1) << (col * (Height + 1))
}

func topMask(col int) uint64 {
	return (1 << (Height - 1)) << (col * (Height + 1))
}

func bottomMaskCol(col int) uint64 {
	return 1 << (col * (Height + 1))
}

// New returns an empty position.
func New() Position {
	return Position{}
}

// FromSequence plays every column in seq (1-indexed digits) on an empty
// board. It returns ErrInvalidSequence if any move could not be applied.
func FromSequence(seq string) (Position, error) {
	p := New()
	n := p.PlaySequence(seq)
	if n != len(seq) {
		return p, fmt.Errorf("%w: %q at index %d", ErrInvalidSequence, seq, n)
	}
	return p, nil
}

// FromGrid builds a position from a grid of cell codes, listed top row
// first. 0 is empty; 1 and 2 are the two players. Cells outside the board
// are ignored. The side to move is inferred from the number of stones:
// player 1 moves when it is even.
func FromGrid(grid [][]int) Position {
	var first, second uint64
	for r, row := range grid {
		if r >= Height {
			break
		}
		for col, c := range row {
			if col >= Width {
				break
			}
			m := uint64(1) << (col*(Height+1) + Height - 1 - r)
			switch c {
			case 1:
				first |= m
			case 2:
				second |= m
			}
		}
	}
	p := Position{mask: first | second}
	p.numMoves = bits.OnesCount64(p.mask)
	if p.numMoves%2 == 0 {
		p.current = first
	} else {
		p.current = second
	}
	return p
}

// CanPlay returns true if col is not full.
func (p Position) CanPlay(col int) bool {
	return p.mask&topMask(col) == 0
}

// Play plays a move given as a bitmask with a single bit set. The caller
// is responsible for the move being legal.
func (p *Position) Play(move uint64) {
	p.current ^= p.mask
	p.mask |= move
	p.numMoves++
}

// PlayColumn drops a stone in col.
func (p *Position) PlayColumn(col int) {
	p.Play((p.mask + bottomMaskCol(col)) & ColumnMask(col))
}

// PlaySequence plays a string of 1-indexed column digits. It stops at the
// first move that is out of range, lands in a full column, or would win the
// game, and returns the number of moves actually played.
func (p *Position) PlaySequence(seq string) int {
	for i := 0; i < len(seq); i++ {
		col := int(seq[i]) - '1'
		if col < 0 || col >= Width || !p.CanPlay(col) || p.IsWinningMove(col) {
			return i
		}
		p.PlayColumn(col)
	}
	return len(seq)
}

// CanWinNext returns true if the side to move can win with its next stone.
func (p Position) CanWinNext() bool {
	return p.winningPosition()&p.possible() != 0
}

// IsWinningMove returns true if dropping a stone in col wins immediately.
func (p Position) IsWinningMove(col int) bool {
	return p.winningPosition()&p.possible()&ColumnMask(col) != 0
}

// PossibleNonLosingMoves returns a bitmask of the legal moves that do not
// give the opponent an immediate win. It must only be called when
// CanWinNext is false.
func (p Position) PossibleNonLosingMoves() uint64 {
	possible := p.possible()
	oppWin := p.opponentWinningPosition()
	forced := possible & oppWin
	if forced != 0 {
		if forced&(forced-1) != 0 {
			// two threats; nothing stops them both.
			return 0
		}
		possible = forced
	}
	// never play directly below an opponent winning cell.
	return possible & ^(oppWin >> 1)
}

// MoveScore counts the winning cells the mover would have after playing
// move. It only orders moves; it is not a position evaluation.
func (p Position) MoveScore(move uint64) int {
	return bits.OnesCount64(WinningCells(p.current|move, p.mask))
}

func (p Position) NumMoves() int           { return p.numMoves }
func (p Position) IsEmpty() bool           { return p.mask == 0 }
func (p Position) Mask() uint64            { return p.mask }
func (p Position) CurrentPosition() uint64 { return p.current }

// Mirror returns the position reflected left to right.
func (p Position) Mirror() Position {
	m := Position{numMoves: p.numMoves}
	for col := 0; col < Width; col++ {
		shift := (Width - 1 - 2*col) * (Height + 1)
		cm := p.mask & ColumnMask(col)
		cc := p.current & ColumnMask(col)
		if shift >= 0 {
			m.mask |= cm << shift
			m.current |= cc << shift
		} else {
			m.mask |= cm >> -shift
			m.current |= cc >> -shift
		}
	}
	return m
}

func (p Position) possible() uint64 {
	return (p.mask + bottomMask) & boardMask
}

func (p Position) winningPosition() uint64 {
	return WinningCells(p.current, p.mask)
}

func (p Position) opponentWinningPosition() uint64 {
	return WinningCells(p.current^p.mask, p.mask)
}
