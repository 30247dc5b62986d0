package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/leafscan-go/config"
	"github.com/soocke/leafscan-go/debug"
)

var version = "dev"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	debug      bool
	apiURL     string
}

// env is what a subcommand runs with after flags were resolved.
type env struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
}

func main() {
	if err := newRootCommand(&globals{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leafscan",
		Short: "Leafscan - plant disease scanner controller",
		Long: `Leafscan drives a pan/tilt camera rig through its control backend: it
connects the device, runs auto-scans, shows the live feed with detection
overlays and collects disease classifications with treatment advice.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGUI(g)
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/leafscan/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Debug logging and runtime stats")
	rootCmd.PersistentFlags().StringVar(&g.apiURL, "api-url", "", "Backend base URL, overrides the config file")

	rootCmd.AddCommand(newGUICommand(g))
	rootCmd.AddCommand(newWatchCommand(g))
	rootCmd.AddCommand(newStatusCommand(g))
	rootCmd.AddCommand(newConnectCommand(g))
	rootCmd.AddCommand(newDisconnectCommand(g))
	rootCmd.AddCommand(newMotorCommand(g))
	rootCmd.AddCommand(newHoldCommand(g))
	rootCmd.AddCommand(newPositionCommand(g))
	rootCmd.AddCommand(newScanCommand(g))
	rootCmd.AddCommand(newDetectCommand(g))
	rootCmd.AddCommand(newSimCommand(g))
	return rootCmd
}

// load resolves the config file and the logger. A missing file yields the
// defaults; a broken one is reported and the defaults are used.
func (g *globals) load() (*env, error) {
	path := g.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	cfg.Debug = cfg.Debug || g.debug
	logger := NewLogger(levelFor(cfg.Debug))
	if err != nil {
		logger.Warn("config load failed, using defaults", "path", path, "error", err)
	}
	if g.apiURL != "" {
		cfg.APIURL = g.apiURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &env{cfg: cfg, cfgPath: path, logger: logger}, nil
}

// startDebug runs the runtime loggers while ctx is alive.
func (e *env) startDebug(ctx context.Context) {
	if !e.cfg.Debug {
		return
	}
	debug.StartGoroutineLogger(ctx, 5*time.Second, e.logger)
	debug.StartMemLogger(ctx, 10*time.Second, e.logger)
}
