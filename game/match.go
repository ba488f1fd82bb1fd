package game

import (
	"errors"
	"fmt"

	"github.com/domino14/c4solver/board"
)

var (
	ErrGameOver   = errors.New("game is over")
	ErrColumnFull = errors.New("column is full")
)

// Outcome of a finished game.
type Outcome int

const (
	InProgress Outcome = iota
	FirstPlayerWins
	SecondPlayerWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case FirstPlayerWins:
		return "first player wins"
	case SecondPlayerWins:
		return "second player wins"
	case Draw:
		return "draw"
	}
	return "in progress"
}

// Match is a game in progress. Unlike board.Position, it accepts the
// winning move and remembers who won.
type Match struct {
	pos      board.Position
	sequence []byte
	outcome  Outcome
}

func NewMatch() *Match {
	return &Match{pos: board.New()}
}

// Play drops a stone for the side to move in col (0-based).
func (m *Match) Play(col int) error {
	if m.outcome != InProgress {
		return ErrGameOver
	}
	if col < 0 || col >= board.Width {
		return fmt.Errorf("column %d out of range", col+1)
	}
	if !m.pos.CanPlay(col) {
		return ErrColumnFull
	}
	won := m.pos.IsWinningMove(col)
	first := m.pos.NumMoves()%2 == 0
	m.sequence = append(m.sequence, byte('1'+col))
	m.pos.PlayColumn(col)
	switch {
	case won && first:
		m.outcome = FirstPlayerWins
	case won:
		m.outcome = SecondPlayerWins
	case m.pos.NumMoves() == board.NumCells:
		m.outcome = Draw
	}
	return nil
}

// Position returns the board. After a winning move it still shows the
// winning stone.
func (m *Match) Position() board.Position { return m.pos }
func (m *Match) Sequence() string         { return string(m.sequence) }
func (m *Match) Outcome() Outcome         { return m.outcome }
func (m *Match) Over() bool               { return m.outcome != InProgress }

// FirstToMove reports whether the first player is on turn.
func (m *Match) FirstToMove() bool { return m.pos.NumMoves()%2 == 0 }
