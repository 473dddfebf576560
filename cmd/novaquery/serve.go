package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novaquery/server/novaquerywire"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, adminAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one shared database over the wire protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := novaquerywire.ServerConfig{
				Addr:      a.cfg.Server.Addr,
				AdminAddr: a.cfg.Server.AdminAddr,
				MaxConns:  a.cfg.Server.MaxConns,
				Logger:    a.log,
			}
			if cmd.Flags().Changed("addr") {
				sc.Addr = addr
			}
			if cmd.Flags().Changed("admin-addr") {
				sc.AdminAddr = adminAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db := a.open()
			defer func() { _ = db.Close() }()
			return novaquerywire.Run(ctx, sc, db)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "wire protocol listen address (overrides server.addr)")
	cmd.Flags().StringVar(&adminAddr, "admin-addr", "", "admin HTTP listen address, empty disables (overrides server.admin_addr)")
	return cmd
}
