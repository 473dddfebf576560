// Package repl is the interactive statement loop shared by the local shell
// and the remote client.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"

	"github.com/tuannm99/novaquery/internal/catalog"
	"github.com/tuannm99/novaquery/internal/sql/executor"
)

const (
	Prompt             = "novaquery> "
	ContinuationPrompt = "...> "
)

type (
	ExecFunc   func(ctx context.Context, sql string) (*executor.Result, error)
	TablesFunc func() ([]catalog.TableMeta, error)
)

// Shell accumulates input lines into statements and runs them.
type Shell struct {
	Exec    ExecFunc
	Tables  TablesFunc // nil disables \d
	History *History
	Out     io.Writer

	buf strings.Builder
}

// Pending reports whether a statement is partially entered.
func (s *Shell) Pending() bool { return s.buf.Len() > 0 }

// Reset drops a partially entered statement.
func (s *Shell) Reset() { s.buf.Reset() }

// Prompt is the prompt for the next line.
func (s *Shell) Prompt() string {
	if s.Pending() {
		return ContinuationPrompt
	}
	return Prompt
}

// HandleLine consumes one input line. It returns the statement that was run,
// if the line completed one, and whether the user asked to quit.
func (s *Shell) HandleLine(ctx context.Context, line string) (stmt string, quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if !s.Pending() && isMetaCommand(line) {
		return "", s.meta(line)
	}

	if s.Pending() {
		s.buf.WriteByte('\n')
	}
	s.buf.WriteString(line)
	if !StatementComplete(s.buf.String()) {
		return "", false
	}

	stmt = strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	if s.History != nil {
		_ = s.History.Append(stmt)
	}

	res, err := s.Exec(ctx, stmt)
	if err != nil {
		executor.FormatError(s.Out, err)
		return stmt, false
	}
	executor.FormatTable(s.Out, res)
	return stmt, false
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

func (s *Shell) meta(line string) bool {
	switch line {
	case "\\q", "quit", "exit":
		return true
	case "\\help":
		fmt.Fprintln(s.Out, `meta commands:
  \q | quit | exit       quit
  \d                     list tables
  \history               print history
  \help                  show help

sql:
  end statement with ';'
  multiline is supported (the shell waits until ';')`)
	case "\\history":
		if s.History != nil {
			s.History.Print(s.Out, 50)
		}
	case "\\d":
		s.describe()
	default:
		fmt.Fprintf(s.Out, "unknown command: %s\n", line)
	}
	return false
}

func (s *Shell) describe() {
	if s.Tables == nil {
		fmt.Fprintln(s.Out, "\\d is not available here")
		return
	}
	tables, err := s.Tables()
	if err != nil {
		executor.FormatError(s.Out, err)
		return
	}
	if len(tables) == 0 {
		fmt.Fprintln(s.Out, "no tables")
		return
	}
	for _, t := range tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + c.Type.String()
		}
		fmt.Fprintf(s.Out, "%s (%s): %s blocks, %s tuples\n",
			t.Name, strings.Join(cols, ", "), humanize.Comma(int64(t.Blocks)), humanize.Comma(int64(t.Tuples)))
	}
}

// StatementComplete reports whether buf holds a ';' outside quotes.
func StatementComplete(buf string) bool {
	var quote rune
	for _, r := range buf {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			return true
		}
	}
	return false
}

// Run drives s from a readline terminal until EOF, \q or ctx is done.
func Run(ctx context.Context, s *Shell, banner string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()
	if s.Out == nil {
		s.Out = rl.Stdout()
	}

	// preload history into readline so the arrow keys work immediately
	if s.History != nil {
		for _, line := range s.History.Lines() {
			_ = rl.SaveHistory(line)
		}
	}

	if banner != "" {
		fmt.Fprintln(s.Out, banner)
	}
	fmt.Fprintln(s.Out, "type \\help for help")

	for ctx.Err() == nil {
		rl.SetPrompt(s.Prompt())
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C clears the current buffer
			if s.Pending() {
				s.Reset()
				continue
			}
			fmt.Fprintln(s.Out, "^C")
			continue
		}
		if err != nil {
			// EOF
			fmt.Fprintln(s.Out)
			return nil
		}

		stmt, quit := s.HandleLine(ctx, line)
		if quit {
			return nil
		}
		if stmt != "" {
			_ = rl.SaveHistory(CompactOneLine(stmt))
		}
	}
	return ctx.Err()
}
