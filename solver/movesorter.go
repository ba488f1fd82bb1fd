package solver

import "github.com/domino14/c4solver/board"

type sortEntry struct {
	move  uint64
	score int
}

// MoveSorter keeps up to board.Width moves sorted by score so that the best
// move is always the last entry. It never allocates.
type MoveSorter struct {
	size    int
	entries [board.Width]sortEntry
}

// Add inserts a move. Moves with equal scores come out in reverse insertion
// order.
func (m *MoveSorter) Add(move uint64, score int) {
	pos := m.size
	m.size++
	for ; pos != 0 && m.entries[pos-1].score > score; pos-- {
		m.entries[pos] = m.entries[pos-1]
	}
	m.entries[pos] = sortEntry{move: move, score: score}
}

// Next pops the best remaining move, or returns 0 if there is none.
func (m *MoveSorter) Next() uint64 {
	if m.size == 0 {
		return 0
	}
	m.size--
	return m.entries[m.size].move
}
