package shell

import (
	"errors"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/solver"
)

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal("c4_shell")
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// checkPosition reads the sequence argument. On failure it pushes nil and
// an error message and returns false.
func checkPosition(L *lua.LState) (board.Position, bool) {
	seq := L.OptString(1, "")
	p, err := board.FromSequence(seq)
	if err != nil {
		log.Err(err).Str("sequence", seq).Msg("error-parsing-sequence")
		L.Push(lua.LNil)
		L.Push(lua.LString("ERROR: " + err.Error()))
		return p, false
	}
	return p, true
}

func intList(L *lua.LState, vals []int) *lua.LTable {
	t := L.NewTable()
	for _, v := range vals {
		t.Append(lua.LNumber(v))
	}
	return t
}

// Solve returns the score of a sequence.
func Solve(L *lua.LState) int {
	p, ok := checkPosition(L)
	if !ok {
		return 2
	}
	s := getShell(L).solver
	s.Reset()
	L.Push(lua.LNumber(s.Solve(p)))
	return 1
}

// Best returns the 1-based column to play and the position's score.
func Best(L *lua.LState) int {
	p, ok := checkPosition(L)
	if !ok {
		return 2
	}
	res, err := getShell(L).solver.BestMove(p)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("ERROR: " + err.Error()))
		return 2
	}
	L.Push(lua.LNumber(res.Move + 1))
	L.Push(lua.LNumber(res.Score))
	return 2
}

// Analyze returns a list of tiers, each a list of 1-based columns.
func Analyze(L *lua.LState) int {
	p, ok := checkPosition(L)
	if !ok {
		return 2
	}
	s := getShell(L).solver
	s.Reset()
	tiers := L.NewTable()
	for _, tier := range s.Analyze(p) {
		cols := make([]int, len(tier))
		for i, c := range tier {
			cols[i] = c + 1
		}
		tiers.Append(intList(L, cols))
	}
	L.Push(tiers)
	return 1
}

// Scores returns the score of every column; full columns are nil.
func Scores(L *lua.LState) int {
	p, ok := checkPosition(L)
	if !ok {
		return 2
	}
	s := getShell(L).solver
	s.Reset()
	t := L.NewTable()
	for i, sc := range s.ScoreColumns(p) {
		if sc == solver.InvalidScore {
			continue
		}
		t.RawSetInt(i+1, lua.LNumber(sc))
	}
	L.Push(t)
	return 1
}

func (sc *ShellController) newLuaState() *lua.LState {
	L := lua.NewState()
	luajson.Preload(L)

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal("c4_shell", lsc)
	L.SetGlobal("c4_solve", L.NewFunction(Solve))
	L.SetGlobal("c4_best", L.NewFunction(Best))
	L.SetGlobal("c4_analyze", L.NewFunction(Analyze))
	L.SetGlobal("c4_scores", L.NewFunction(Scores))
	return L
}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return nil, errors.New("need arguments for script")
	}

	filepath := cmd.args[0]

	L := sc.newLuaState()
	defer L.Close()

	args := L.NewTable()
	for _, a := range cmd.args[1:] {
		args.Append(lua.LString(a))
	}
	L.SetGlobal("arg", args)

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return nil, nil
}
