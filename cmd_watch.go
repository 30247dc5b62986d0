package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/prefs"
	"github.com/soocke/leafscan-go/ui/tui"
)

func newWatchCommand(g *globals) *cobra.Command {
	var connect bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Terminal dashboard with keyboard control",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			// The alternate screen owns stdout; keep logs out of it.
			e.logger = newLoggerTo(io.Discard, levelFor(e.cfg.Debug))
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			e.startDebug(ctx)

			address, port := e.cfg.DeviceAddress, e.cfg.DevicePort
			var store session.DeviceStore
			if st, err := prefs.Default(); err == nil {
				store = st
				if d, ok, _ := st.LastDevice(); ok {
					address, port = d.Address, d.Port
				}
			}
			client := e.rigClient()
			ctrl := session.New(client, store, e.cfg, e.logger)
			defer ctrl.Close()
			if connect {
				ctrl.Connect(address, port)
			}
			return tui.Run(ctrl, address, port)
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "Connect to the last device on start")
	return cmd
}
