package solver

import "github.com/domino14/c4solver/board"

// negamax returns the score of p within the window [alpha, beta]:
//   - if the true score is <= alpha, alpha' with score <= alpha' <= alpha
//   - if the true score is >= beta, beta' with beta <= beta' <= score
//   - otherwise the exact score.
//
// The caller guarantees alpha < beta and that the side to move cannot win
// with its next stone.
func (s *Solver) negamax(p board.Position, alpha, beta int) int {
	s.nodeCount++

	next := p.PossibleNonLosingMoves()
	if next == 0 {
		// every move hands the opponent a win.
		return -(board.NumCells - p.NumMoves()) / 2
	}
	if p.NumMoves() >= board.NumCells-2 {
		return 0
	}

	lo := -(board.NumCells - 2 - p.NumMoves()) / 2
	if alpha < lo {
		alpha = lo
		if alpha >= beta {
			return alpha
		}
	}

	key := p.Key()
	hi := (board.NumCells - 1 - p.NumMoves()) / 2
	if v := s.tt.Get(key); v != 0 {
		hi = DecodeScore(v)
	}
	if beta > hi {
		beta = hi
		if alpha >= beta {
			return beta
		}
	}

	var moves MoveSorter
	for i := board.Width - 1; i >= 0; i-- {
		if move := next & board.ColumnMask(s.columnOrder[i]); move != 0 {
			moves.Add(move, p.MoveScore(move))
		}
	}

	for move := moves.Next(); move != 0; move = moves.Next() {
		child := p
		child.Play(move)
		score := -s.negamax(child, -beta, -alpha)
		if score >= beta {
			return score
		}
		if score > alpha {
			alpha = score
		}
	}

	s.tt.Put(key, EncodeScore(alpha))
	return alpha
}

// Solve returns the exact score of p.
func (s *Solver) Solve(p board.Position) int {
	if p.IsEmpty() {
		return 1
	}
	if v := s.tt.Get(p.Key()); v != 0 {
		return DecodeScore(v)
	}
	if p.CanWinNext() {
		return (board.NumCells + 1 - p.NumMoves()) / 2
	}

	lo := -(board.NumCells - p.NumMoves()) / 2
	hi := (board.NumCells + 1 - p.NumMoves()) / 2
	for lo < hi {
		// test nearer zero than the midpoint; most positions are close
		// to a draw.
		med := lo + (hi-lo)/2
		if med <= 0 && lo/2 < med {
			med = lo / 2
		} else if med >= 0 && hi/2 > med {
			med = hi / 2
		}
		r := s.negamax(p, med, med+1)
		if r <= med {
			hi = r
		} else {
			lo = r
		}
	}
	return lo
}
