package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/rig"
	"github.com/soocke/leafscan-go/domain/session"
	"github.com/soocke/leafscan-go/prefs"
)

// client builds a backend client and a context bounded by the configured
// request timeout, if any.
func (e *env) client(parent context.Context) (*rig.Client, context.Context, context.CancelFunc) {
	c := e.rigClient()
	if d := e.cfg.RequestTimeout(); d > 0 {
		ctx, cancel := context.WithTimeout(parent, d)
		return c, ctx, cancel
	}
	ctx, cancel := context.WithCancel(parent)
	return c, ctx, cancel
}

func (e *env) rigClient() *rig.Client {
	return rig.NewClient(e.cfg.APIURL, &http.Client{Timeout: e.cfg.RequestTimeout()}, e.logger)
}

func newStatusCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the backend's device and scan status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:    %s\n", c.BaseURL())
			if st.Connected {
				fmt.Fprintf(out, "device:     connected (%s)\n", st.IPAddress)
			} else {
				fmt.Fprintln(out, "device:     disconnected")
			}
			fmt.Fprintf(out, "scan state: %s\n", st.ScanState)
			fmt.Fprintf(out, "detector:   %s\n", loaded(st.YoloLoaded))
			fmt.Fprintf(out, "classifier: %s\n", loaded(st.VisionEngineLoaded))
			fmt.Fprintf(out, "results:    %s\n", humanize.Comma(int64(st.ScanResultsCount)))
			return nil
		},
	}
}

func loaded(ok bool) string {
	if ok {
		return "loaded"
	}
	return "not loaded"
}

func newConnectCommand(g *globals) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "connect <address>",
		Short: "Connect the backend to a device and remember it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if err := c.Connect(ctx, args[0], port); err != nil {
				return err
			}
			if st, err := prefs.Default(); err == nil {
				if err := st.SaveDevice(prefs.Device{Address: args[0], Port: port}); err != nil {
					e.logger.Warn("save last device", "error", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s:%d\n", args[0], port)
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 80, "Device port")
	return cmd
}

func newDisconnectCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the backend from its device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if err := c.Disconnect(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "disconnected")
			return nil
		},
	}
}

func newMotorCommand(g *globals) *cobra.Command {
	var step int
	cmd := &cobra.Command{
		Use:       "motor <direction>",
		Short:     "Send one motor command (up, down, left, right, center, stop), or home, preset and rail control",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "left", "right", "center", "stop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			dir, err := rig.ParseDirection(args[0])
			if err != nil {
				return err
			}
			if step <= 0 {
				step = e.cfg.StepDegrees
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			return c.Motor(ctx, rig.MotorCommand{Direction: dir, Step: step, Speed: e.cfg.RailSpeed})
		},
	}
	cmd.Flags().IntVar(&step, "step", 0, "Step in degrees (default from config)")
	cmd.AddCommand(newHomeCommand(g), newPresetCommand(g), newRailCommand(g))
	return cmd
}

func newPositionCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "position [pan tilt]",
		Short: "Print the servo angles, or move both servos to pan and tilt (0-180)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or pan and tilt")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if len(args) == 2 {
				pan, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("pan: %w", err)
				}
				tilt, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("tilt: %w", err)
				}
				if err := c.SetPosition(ctx, protocol.Position{Pan: pan, Tilt: tilt}); err != nil {
					return err
				}
			}
			pos, err := c.Position(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pan %d° tilt %d°\n", pos.Pan, pos.Tilt)
			return nil
		},
	}
}

func newHoldCommand(g *globals) *cobra.Command {
	var hold time.Duration
	cmd := &cobra.Command{
		Use:   "hold <direction>",
		Short: "Repeat a motor command for a fixed duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			dir, err := rig.ParseDirection(args[0])
			if err != nil {
				return err
			}
			c := e.rigClient()
			ctrl := session.New(c, nil, e.cfg, e.logger)
			defer ctrl.Close()
			if !waitSnapshot(cmd.Context(), ctrl, 5*time.Second, func(s session.Snapshot) bool { return s.Connected }) {
				return fmt.Errorf("device not connected")
			}
			ctrl.StartHold(dir)
			select {
			case <-time.After(hold):
			case <-cmd.Context().Done():
			}
			ctrl.StopHold()
			if s := ctrl.Snapshot(); s.LastError != "" {
				return fmt.Errorf("%s", s.LastError)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&hold, "for", time.Second, "How long to hold")
	return cmd
}

// waitSnapshot waits until cond holds for the controller's snapshot.
func waitSnapshot(ctx context.Context, ctrl *session.Controller, timeout time.Duration, cond func(session.Snapshot) bool) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if cond(ctrl.Snapshot()) {
			return true
		}
		select {
		case <-ctrl.Updates():
		case <-deadline.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func newHomeCommand(g *globals) *cobra.Command {
	var rail, panTilt bool
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Home the pan/tilt servos to 90/90 and the rail to center",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if !rail && !panTilt {
				rail, panTilt = true, true
			}
			if !rail {
				err = c.HomePanTilt(ctx)
			} else {
				err = c.HomeAll(ctx, rig.HomeOptions{Rail: rail, PanTilt: panTilt})
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "homed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&rail, "rail", false, "Home the rail (default both)")
	cmd.Flags().BoolVar(&panTilt, "pan-tilt", false, "Home the pan/tilt servos (default both)")
	return cmd
}

func newPresetCommand(g *globals) *cobra.Command {
	names := make([]string, 0, len(rig.Presets()))
	for _, p := range rig.Presets() {
		names = append(names, string(p))
	}
	return &cobra.Command{
		Use:       "preset <name>",
		Short:     "Move the camera to a named preset position",
		Long:      "Move the camera to a named preset position: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			p, err := rig.ParsePreset(args[0])
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if err := c.MoveToPreset(ctx, p); err != nil {
				return err
			}
			pos, err := c.Position(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: pan %d° tilt %d°\n", p, pos.Pan, pos.Tilt)
			return nil
		},
	}
}

func newRailCommand(g *globals) *cobra.Command {
	var speed int
	cmd := &cobra.Command{
		Use:       "rail [left|right|stop]",
		Short:     "Print the rail state, or drive the rail one stride or stop it",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"left", "right", "stop"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if len(args) == 1 {
				dir, err := rig.ParseDirection(args[0])
				if err != nil {
					return err
				}
				if speed <= 0 {
					speed = e.cfg.RailSpeed
				}
				if dir == rig.Stop {
					err = c.StopRail(ctx)
				} else {
					err = c.MoveRail(ctx, dir, speed)
				}
				if err != nil {
					return err
				}
			}
			st, err := c.Rail(ctx)
			if err != nil {
				return err
			}
			state := "stopped"
			if st.Moving {
				state = fmt.Sprintf("moving %s at %d", st.Direction, st.Speed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rail %d%% %s\n", st.Position, state)
			return nil
		},
	}
	cmd.Flags().IntVar(&speed, "speed", 0, "Rail speed 0-255 (default from config)")
	return cmd
}
