package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/solver"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
)

type shellcmd struct {
	cmd     string
	args    []string
	options map[string]string
}

type ShellController struct {
	l        *readline.Instance
	config   *config.Config
	execPath string
	solver   *solver.Solver

	in  io.Reader
	out io.Writer
	// printer formats large counts with thousands separators.
	printer *message.Printer
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// NewShellController creates a solver from cfg, loads its books and attaches
// it to an interactive prompt.
func NewShellController(cfg *config.Config, execPath string) (*ShellController, error) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mc4>\033[0m ",
		HistoryFile:     "/tmp/c4-readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	sc, err := newController(cfg, os.Stdin, l.Stderr())
	if err != nil {
		l.Close()
		return nil, err
	}
	sc.l = l
	sc.execPath = execPath
	sc.solver.GetReady(cfg.GetString(config.ConfigOpeningBook), cfg.GetString(config.ConfigWarmupBook))
	return sc, nil
}

func newController(cfg *config.Config, in io.Reader, out io.Writer) (*ShellController, error) {
	s, err := solver.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &ShellController{
		config:  cfg,
		solver:  s,
		in:      in,
		out:     out,
		printer: message.NewPrinter(language.English),
	}, nil
}

// extractFields splits a line into a command, its positional arguments and
// its `-key value` options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := map[string]string{}
	for i := 1; i < len(fields); i++ {
		f := fields[i]
		if strings.HasPrefix(f, "-") && len(f) > 1 {
			if _, err := strconv.Atoi(f); err != nil {
				if i == len(fields)-1 {
					return nil, errWrongOptionSyntax
				}
				options[f[1:]] = fields[i+1]
				i++
				continue
			}
		}
		args = append(args, f)
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func (sc *ShellController) standardModeSwitch(line string, sig chan os.Signal) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit":
		sig <- syscall.SIGINT
		return nil, errors.New("sending quit signal")
	case "help":
		return sc.help(cmd)
	case "solve":
		return sc.solve(cmd)
	case "best":
		return sc.best(cmd)
	case "analyze":
		return sc.analyze(cmd)
	case "scores":
		return sc.scores(cmd)
	case "show":
		return sc.show(cmd)
	case "play":
		return sc.play(cmd)
	case "botgame":
		return sc.botgame(cmd)
	case "train":
		return sc.train(cmd)
	case "bench":
		return sc.bench(cmd)
	case "book":
		return sc.book(cmd)
	case "script":
		return sc.script(cmd)
	case "reset":
		return sc.reset(cmd)
	case "stats":
		return sc.stats(cmd)
	case "set":
		return sc.set(cmd)
	default:
		msg := fmt.Sprintf("command %v not found", strconv.Quote(cmd.cmd))
		log.Info().Msg(msg)
		return nil, errors.New(msg)
	}
}

// Execute runs a single command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.standardModeSwitch(line, sig)
	if err != nil {
		sc.showError(err)
	} else if resp != nil {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			sig <- syscall.SIGINT
			break
		}
		sc.Execute(sig, line)
	}
	log.Debug().Msgf("Exiting readline loop...")
}

func (sc *ShellController) Cleanup() {
	log.Debug().Uint64("nodes", sc.solver.NodeCount()).Msg("shell-cleanup")
}
