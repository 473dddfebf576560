package main

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/tuannm99/novaquery"
	"github.com/tuannm99/novaquery/internal/sql/executor"
)

func newExecCmd(a *app) *cobra.Command {
	var command string
	cmd := &cobra.Command{
		Use:   "exec [FILE...]",
		Short: "Run SQL scripts (or -c) against one database, printing every result",
		Long: "Statements run in order on a single in-memory database. A failing statement is " +
			"reported and the script continues; the command fails if any statement did. " +
			"Use - to read standard input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if command == "" && len(args) == 0 {
				return errors.New("exec: no script given")
			}
			db := a.open()
			defer func() { _ = db.Close() }()

			out := cmd.OutOrStdout()
			failed := 0
			report := func(_ string, res *novaquery.Result, err error) error {
				if err != nil {
					failed++
					executor.FormatError(out, err)
					return nil
				}
				executor.FormatTable(out, res)
				return nil
			}

			for _, path := range args {
				if err := runFile(cmd, db, path, report); err != nil {
					return err
				}
			}
			if command != "" {
				if err := db.ExecScript(cmd.Context(), strings.NewReader(command), report); err != nil {
					return err
				}
			}
			if failed > 0 {
				return errors.Newf("exec: %d statement(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&command, "command", "c", "", "SQL to run after the files")
	return cmd
}

func runFile(cmd *cobra.Command, db *novaquery.DB, path string, fn novaquery.StatementFunc) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "exec")
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return db.ExecScript(cmd.Context(), r, fn)
}
