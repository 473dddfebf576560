package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novaquery/internal/repl"
)

func newShellCmd(a *app) *cobra.Command {
	var histPath string
	var histMax int
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive SQL shell on an in-memory database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db := a.open()
			defer func() { _ = db.Close() }()

			h := repl.NewHistory(histPath)
			_ = h.Load(histMax)
			sh := &repl.Shell{Exec: db.Exec, Tables: db.Tables, History: h}
			banner := fmt.Sprintf("novaquery shell (%d memory blocks)", db.MemoryBlocks())
			return repl.Run(cmd.Context(), sh, banner)
		},
	}
	cmd.Flags().StringVar(&histPath, "history", repl.DefaultHistoryPath(), "history file path")
	cmd.Flags().IntVar(&histMax, "history-max", 2000, "max history lines loaded into memory")
	return cmd
}
