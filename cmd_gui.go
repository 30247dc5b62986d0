package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/soocke/leafscan-go/app"
)

func newGUICommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop controller (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(g)
		},
	}
}

func runGUI(g *globals) error {
	e, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.startDebug(ctx)
	app.NewApp("Leafscan", 1100, 760, e.cfg, e.cfgPath, e.logger).Start()
	return nil
}
