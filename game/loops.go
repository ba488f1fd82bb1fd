package game

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/board"
)

// Bot chooses moves. *solver.Solver is a Bot.
type Bot interface {
	FindBestMove(p board.Position) (int, error)
}

var playerNames = [2]string{"Red", "Yellow"}

// resetter is implemented by bots that keep search state between moves.
type resetter interface {
	Reset()
}

func botMove(w io.Writer, bot Bot, m *Match, name string) error {
	if r, ok := bot.(resetter); ok {
		r.Reset()
	}
	ts := time.Now()
	col, err := bot.FindBestMove(m.Position())
	if err != nil {
		return err
	}
	el := time.Since(ts)
	log.Debug().Str("sequence", m.Sequence()).Int("move", col+1).Dur("elapsed", el).Msg("bot-move")
	fmt.Fprintf(w, "%s has played: column %d, %d ms.\n", name, col+1, el.Milliseconds())
	return m.Play(col)
}

// PlayVsBot runs a game between a human reading columns (1-7, one per
// line) from r and bot. Prompts and boards go to w.
func PlayVsBot(r io.Reader, w io.Writer, bot Bot, humanFirst bool) (Outcome, error) {
	in := bufio.NewScanner(r)
	m := NewMatch()
	human := 0
	if !humanFirst {
		human = 1
	}
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w, "The game has started!")
	fmt.Fprintln(w, "=====================")

	for !m.Over() {
		turn := m.Position().NumMoves() % 2
		if turn != human {
			if err := botMove(w, bot, m, "Bot"); err != nil {
				return m.Outcome(), err
			}
			continue
		}
		fmt.Fprint(w, m.Position().ToDisplayText())
		fmt.Fprint(w, "Enter your move: column: ")
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return m.Outcome(), err
			}
			return m.Outcome(), io.ErrUnexpectedEOF
		}
		col, err := strconv.Atoi(strings.TrimSpace(in.Text()))
		if err != nil || col < 1 || col > board.Width {
			fmt.Fprintln(w, "Invalid move")
			continue
		}
		if err := m.Play(col - 1); errors.Is(err, ErrColumnFull) {
			fmt.Fprintf(w, "Column %d is already full!\n", col)
			continue
		} else if err != nil {
			return m.Outcome(), err
		}
	}

	fmt.Fprint(w, m.Position().ToDisplayText())
	switch {
	case m.Outcome() == Draw:
		fmt.Fprintln(w, "Draw!")
	case (m.Outcome() == FirstPlayerWins) == (human == 0):
		fmt.Fprintln(w, "You win!")
	default:
		fmt.Fprintln(w, "You lose!")
	}
	return m.Outcome(), nil
}

// BotVsBot lets bot play both sides and narrates the game to w.
func BotVsBot(w io.Writer, bot Bot) (Outcome, error) {
	m := NewMatch()
	fmt.Fprint(w, "\n====================\nTHE GAME HAS STARTED\n====================\n")
	for !m.Over() {
		name := playerNames[m.Position().NumMoves()%2]
		fmt.Fprintf(w, "Moves: %d\n", m.Position().NumMoves())
		fmt.Fprint(w, m.Position().ToDisplayText())
		fmt.Fprintf(w, "%s is thinking...\n", name)
		if err := botMove(w, bot, m, name); err != nil {
			return m.Outcome(), err
		}
	}
	fmt.Fprint(w, m.Position().ToDisplayText())
	switch m.Outcome() {
	case FirstPlayerWins:
		fmt.Fprintf(w, "%s won!\n", playerNames[0])
	case SecondPlayerWins:
		fmt.Fprintf(w, "%s won!\n", playerNames[1])
	default:
		fmt.Fprintln(w, "Draw!")
	}
	return m.Outcome(), nil
}
