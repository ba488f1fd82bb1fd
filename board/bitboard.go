package board

// WinningCells returns every empty cell that would complete a four-in-a-row
// for the stones in pos. mask is the occupancy of the whole board.
func WinningCells(pos, mask uint64) uint64 {
	// vertical
	r := (pos << 1) & (pos << 2) & (pos << 3)

	// horizontal, then the two diagonals. Each direction checks the three
	// ways an empty cell can sit among three aligned stones.
	for _, s := range [3]int{Height + 1, Height, Height + 2} {
		t := (pos << s) & (pos << (2 * s))
		r |= t & (pos << (3 * s))
		r |= t & (pos >> s)
		t = (pos >> s) & (pos >> (2 * s))
		r |= t & (pos << s)
		r |= t & (pos >> (3 * s))
	}

	return r & (boardMask ^ mask)
}

// Key returns a key for the position that is identical for a position and
// its mirror image. Each column contributes one base-3 digit per stone
// (1 for the mover, 2 for the opponent) followed by a 0 separator. The key is
// built scanning columns left to right and right to left and the smaller of
// the two is kept.
func (p Position) Key() uint64 {
	var fwd uint64
	for col := 0; col < Width; col++ {
		fwd = p.partialKey(fwd, col)
	}
	var rev uint64
	for col := Width - 1; col >= 0; col-- {
		rev = p.partialKey(rev, col)
	}
	// the trailing separator digit is always 0.
	if fwd < rev {
		return fwd / 3
	}
	return rev / 3
}

func (p Position) partialKey(key uint64, col int) uint64 {
	for pos := bottomMaskCol(col); pos&p.mask != 0; pos <<= 1 {
		key *= 3
		if pos&p.current != 0 {
			key++
		} else {
			key += 2
		}
	}
	return key * 3
}
