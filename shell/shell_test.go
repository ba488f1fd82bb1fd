package shell

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/openingbook"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

const lateSeq = "37167453674322466435246571"

func newTestController(t *testing.T, input string) (*ShellController, *bytes.Buffer) {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigTTSize, 1<<16+1)
	cfg.Set(config.ConfigSeed, "shell-test")
	var out bytes.Buffer
	sc, err := newController(cfg, strings.NewReader(input), &out)
	if err != nil {
		t.Fatal(err)
	}
	return sc, &out
}

func run(t *testing.T, sc *ShellController, line string) (*Response, error) {
	sig := make(chan os.Signal, 1)
	return sc.standardModeSwitch(line, sig)
}

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"bench -threads 4",
			&shellcmd{"bench", nil, map[string]string{"threads": "4"}},
			nil},
		{"solve 4453",
			&shellcmd{"solve", []string{"4453"}, map[string]string{}},
			nil},
		{"book out.book 44 45 -depth 2 ",
			&shellcmd{"book",
				[]string{"out.book", "44", "45"},
				map[string]string{"depth": "2"}},
			nil,
		},
		{"set seed -3",
			&shellcmd{"set", []string{"seed", "-3"}, map[string]string{}},
			nil},
		{`script "my script.lua" -x`,
			nil, errWrongOptionSyntax},
	}
	for _, tc := range cases {
		cmd, err := extractFields(tc.line)
		is.Equal(cmd, tc.expCmd)
		is.Equal(err, tc.expErr)
	}
}

func TestSolveCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	resp, err := run(t, sc, "solve "+lateSeq)
	is.NoErr(err)
	is.True(strings.HasPrefix(resp.message, lateSeq+": 26 moves, Score: -3, Nodes: "))

	resp, err = run(t, sc, "solve")
	is.NoErr(err)
	is.True(strings.HasPrefix(resp.message, ": 0 moves, Score: 1,"))

	_, err = run(t, sc, "solve 4444444")
	is.True(err != nil)
}

func TestBestCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	resp, err := run(t, sc, "best 64225247215215164713277176")
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "Score: 6,"))
	is.True(strings.HasSuffix(resp.message, "Best move: column 4"))
}

func TestAnalyzeCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	resp, err := run(t, sc, "analyze "+lateSeq)
	is.NoErr(err)
	lines := strings.Split(resp.message, "\n")
	is.Equal(len(lines), 3)
	is.Equal(lines[1], "Tier 2: 3")
	is.Equal(lines[2], "Tier 3: 5")
}

func TestScoresCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	resp, err := run(t, sc, "scores 31727414553247124473643666")
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "Scores: -8 -2 -8 - -8 -8 -8\n"))
	is.True(strings.Contains(resp.message, "Best move: column 2.\n"))
}

func TestShowCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	resp, err := run(t, sc, "show 445")
	is.NoErr(err)
	lines := strings.Split(resp.message, "\n")
	is.Equal(len(lines), 7)
	is.Equal(lines[4], "|.|.|.|o|.|.|.|")
	is.Equal(lines[5], "|.|.|.|x|x|.|.|")
}

func TestPlayCommand(t *testing.T) {
	is := is.New(t)
	sc, out := newTestController(t, "")
	_, err := run(t, sc, "play third")
	is.True(err != nil)
	// no input: the human never moves.
	_, err = run(t, sc, "play")
	is.True(err != nil)
	is.True(strings.Contains(out.String(), "Enter your move"))
}

func TestStatsResetCommands(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	_, err := run(t, sc, "solve "+lateSeq)
	is.NoErr(err)
	is.True(sc.solver.NodeCount() > 0)
	resp, err := run(t, sc, "stats")
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "Table size: 65,537"))
	_, err = run(t, sc, "reset")
	is.NoErr(err)
	is.Equal(sc.solver.NodeCount(), uint64(0))
}

func TestSetCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	old := sc.solver
	resp, err := run(t, sc, "set tt-size 1031")
	is.NoErr(err)
	is.Equal(resp.message, "set tt-size to 1031")
	is.True(sc.solver != old)
	is.Equal(sc.solver.TranspositionTable().Size(), 1031)

	resp, err = run(t, sc, "set tt-size")
	is.NoErr(err)
	is.Equal(resp.message, "tt-size: 1031")
}

func TestBookCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	out := filepath.Join(t.TempDir(), "out.book")
	resp, err := run(t, sc, "book "+out+" "+lateSeq+" 64225247215215164713277176")
	is.NoErr(err)
	is.Equal(resp.message, "wrote 2 positions to "+out)
	recs, _, err := openingbook.ReadFile(out)
	is.NoErr(err)
	is.Equal(len(recs), 2)
}

func TestHelpCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	resp, err := run(t, sc, "help")
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "analyze <seq>"))
	resp, err = run(t, sc, "help script")
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "c4_best(seq)"))
	resp, err = run(t, sc, "help nope")
	is.NoErr(err)
	is.Equal(resp.message, "There is no help text for the topic nope")
}

func TestUnknownCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	_, err := run(t, sc, "fly")
	is.Equal(err.Error(), `command "fly" not found`)
}

func TestLuaGlobals(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	L := sc.newLuaState()
	defer L.Close()
	err := L.DoString(`
		local json = require("json")
		score = c4_solve("445566")
		col, best_score = c4_best("64225247215215164713277176")
		tiers = json.encode(c4_analyze("445566"))
		scores = c4_scores("31727414553247124473643666")
		bad, bad_err = c4_solve("4444444")
	`)
	is.NoErr(err)
	is.Equal(L.GetGlobal("score"), lua.LNumber(18))
	is.Equal(L.GetGlobal("col"), lua.LNumber(4))
	is.Equal(L.GetGlobal("best_score"), lua.LNumber(6))
	tiers := L.GetGlobal("tiers").String()
	is.True(tiers == "[[3,7]]" || tiers == "[[7,3]]")
	scores := L.GetGlobal("scores").(*lua.LTable)
	is.Equal(scores.RawGetInt(2), lua.LNumber(-2))
	is.Equal(scores.RawGetInt(4), lua.LNil)
	is.Equal(L.GetGlobal("bad"), lua.LNil)
	is.True(strings.HasPrefix(L.GetGlobal("bad_err").String(), "ERROR: "))
}

func TestScriptCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	script := filepath.Join(dir, "s.lua")
	is.NoErr(os.WriteFile(script, []byte(`
		local f = io.open(arg[1], "w")
		f:write(tostring(c4_solve(arg[2])))
		f:close()
	`), 0o644))
	_, err := run(t, sc, "script "+script+" "+outPath+" 445566")
	is.NoErr(err)
	dat, err := os.ReadFile(outPath)
	is.NoErr(err)
	is.Equal(string(dat), "18")
}

func TestQueriesAfterParentQuery(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController(t, "")
	seq := "31727414553247124473643666"
	_, err := run(t, sc, "solve "+seq[:len(seq)-2])
	is.NoErr(err)
	resp, err := run(t, sc, "scores "+seq)
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "Scores: -8 -2 -8 - -8 -8 -8\n"))
	_, err = run(t, sc, "analyze "+seq[:len(seq)-2])
	is.NoErr(err)
	resp, err = run(t, sc, "solve "+seq)
	is.NoErr(err)
	is.True(strings.Contains(resp.message, "Score: -2,"))

	L := sc.newLuaState()
	defer L.Close()
	is.NoErr(L.DoString(`
		c4_solve("` + lateSeq[:len(lateSeq)-2] + `")
		late = c4_solve("` + lateSeq + `")
	`))
	is.Equal(L.GetGlobal("late"), lua.LNumber(-3))
}
