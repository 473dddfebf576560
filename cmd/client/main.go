package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tuannm99/novaquery/internal/repl"
	"github.com/tuannm99/novaquery/internal/sql/executor"
	"github.com/tuannm99/novaquery/sqlclient"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8866", "server address")
		timeout    = flag.Duration("timeout", 3*time.Second, "dial timeout")
		rwTimeout  = flag.Duration("rw-timeout", 0, "per-statement read/write timeout (0 = none)")
		histPath   = flag.String("history", repl.DefaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
		oneShotSQL = flag.String("c", "", "execute one SQL and exit (must end with ';')")
	)
	flag.Parse()

	cli, err := sqlclient.Dial(*addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = cli.Close() }()
	cli.SetRWTimeout(*rwTimeout)

	// one-shot mode
	if strings.TrimSpace(*oneShotSQL) != "" {
		res, err := cli.Exec(*oneShotSQL)
		if err != nil {
			executor.FormatError(os.Stderr, err)
			os.Exit(1)
		}
		executor.FormatTable(os.Stdout, res)
		return
	}

	h := repl.NewHistory(*histPath)
	_ = h.Load(*histMax)
	sh := &repl.Shell{Exec: cli.ExecContext, History: h}
	if err := repl.Run(context.Background(), sh, fmt.Sprintf("connected to %s", *addr)); err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
}
