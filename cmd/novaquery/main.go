package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novaquery"
	"github.com/tuannm99/novaquery/internal"
	"github.com/tuannm99/novaquery/internal/log"
)

// app is the state shared by the subcommands once flags and config are read.
type app struct {
	cfgPath      string
	memoryBlocks int
	logLevel     string

	cfg *internal.NovaQueryConfig
	log *slog.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := internal.LoadConfig(a.cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("memory-blocks") {
		cfg.Memory.Blocks = a.memoryBlocks
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = log.Configure(cfg.Log)
	return nil
}

func (a *app) open() *novaquery.DB {
	return novaquery.Open(novaquery.Options{MemoryBlocks: a.cfg.Memory.Blocks, Logger: a.log})
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "novaquery",
		Short:         "A teaching relational engine with external sort and join",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "path to a YAML config file")
	pf.IntVar(&a.memoryBlocks, "memory-blocks", 10, "buffer capacity in blocks")
	pf.StringVar(&a.logLevel, "log-level", "info", "debug|info|warn|error")

	root.AddCommand(newShellCmd(a), newExecCmd(a), newServeCmd(a))
	return root
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
