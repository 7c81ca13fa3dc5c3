package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const (
	replPrompt     = "dwquery> "
	replContPrompt = "    ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Translate restricted SQL to OData interactively",
		Long: `Start an interactive session that translates each SELECT into OData
query options. Statements end with a semicolon and may span lines.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cmdCtx := NewCommandContext(cmd)

	var historyFile string
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".dwquery_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newREPLCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmdCtx.Out,
		Stderr:          cmdCtx.Err,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmdCtx.Out, "dwquery SQL-to-OData REPL")
	_, _ = fmt.Fprintln(cmdCtx.Out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmdCtx.Out)

	s := newREPLSession(cmdCtx)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		if s.handleLine(line) {
			break
		}
		rl.SetPrompt(s.prompt())
	}

	return nil
}

// replSession holds the state of one REPL: the pending multi-line
// statement and the output toggles.
type replSession struct {
	cmdCtx  *CommandContext
	opts    TranslateOptions
	pending strings.Builder
}

func newREPLSession(cmdCtx *CommandContext) *replSession {
	return &replSession{cmdCtx: cmdCtx, opts: TranslateOptions{Format: "text"}}
}

func (s *replSession) reset() {
	s.pending.Reset()
}

func (s *replSession) prompt() string {
	if s.pending.Len() > 0 {
		return replContPrompt
	}
	return replPrompt
}

// handleLine processes one input line and reports whether the session
// should end.
func (s *replSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if s.pending.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}

	// Accumulate multi-line SQL until semicolon
	s.pending.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.pending.WriteString(" ")
		return false
	}

	sql := strings.TrimSuffix(s.pending.String(), ";")
	s.pending.Reset()

	out, err := translateSQL(s.cmdCtx, sql, &s.opts)
	if err != nil {
		_, _ = fmt.Fprintf(s.cmdCtx.Err, "Error: %v\n", err)
		return false
	}
	_ = writeTranslation(s.cmdCtx.Out, out, s.opts.Format)
	_, _ = fmt.Fprintln(s.cmdCtx.Out)
	return false
}

func (s *replSession) handleDotCommand(line string) bool {
	command := strings.ToLower(strings.Fields(line)[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.cmdCtx.Out)

	case ".url":
		if !s.opts.URL && (s.cmdCtx.Cfg.OData == nil || s.cmdCtx.Cfg.OData.BaseURL == "") {
			_, _ = fmt.Fprintf(s.cmdCtx.Err, "Error: %v\n", ErrNoODataURL)
			return false
		}
		s.opts.URL = !s.opts.URL
		_, _ = fmt.Fprintf(s.cmdCtx.Out, "request URL %s\n", onOff(s.opts.URL))

	case ".sql":
		s.opts.SQL = !s.opts.SQL
		_, _ = fmt.Fprintf(s.cmdCtx.Out, "SQL rendering %s\n", onOff(s.opts.SQL))

	case ".json":
		if s.opts.Format == "json" {
			s.opts.Format = "text"
		} else {
			s.opts.Format = "json"
		}
		_, _ = fmt.Fprintf(s.cmdCtx.Out, "output %s\n", s.opts.Format)

	default:
		_, _ = fmt.Fprintf(s.cmdCtx.Err, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .url            Toggle printing the full request URL
  .sql            Toggle printing the WHERE clause as parameterized SQL
  .json           Toggle JSON output
  .quit / .exit   Exit the REPL

Tips:
  - Statements must end with a semicolon (;)
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

func newREPLCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("SELECT"),
		readline.PcItem(".help"),
		readline.PcItem(".url"),
		readline.PcItem(".sql"),
		readline.PcItem(".json"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
