package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/soocke/leafscan-go/domain/protocol"
	"github.com/soocke/leafscan-go/domain/rig"
)

func newScanCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start or stop the auto-scan",
	}
	var (
		model      string
		confidence float64
	)
	start := &cobra.Command{
		Use:   "start",
		Short: "Start the raster auto-scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			opts := rig.ScanOptions{ModelType: protocol.Model(e.cfg.ModelType), DetectionConfidence: e.cfg.DetectionConfidence}
			if model != "" {
				opts.ModelType = protocol.Model(strings.ToLower(model))
			}
			if confidence > 0 {
				opts.DetectionConfidence = confidence
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if err := c.StartScan(ctx, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "auto-scan started (%s, threshold %s)\n", opts.ModelType.Label(), humanize.FtoaWithDigits(opts.DetectionConfidence, 2))
			return nil
		},
	}
	start.Flags().StringVar(&model, "model", "", "Classification model: mobilenet or resnet (default from config)")
	start.Flags().Float64Var(&confidence, "confidence", 0, "Leaf detection threshold 0.1-1.0 (default from config)")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the auto-scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			if err := c.StopScan(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "auto-scan stopped")
			return nil
		},
	}
	cmd.AddCommand(start, stop)
	return cmd
}

func newDetectCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Run one leaf detection on the current frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			c, ctx, cancel := e.client(cmd.Context())
			defer cancel()
			res, err := c.Detect(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d detection(s) in %s ms\n", len(res.Detections), humanize.FtoaWithDigits(res.InferenceTimeMs, 1))
			for i, d := range res.Detections {
				fmt.Fprintf(out, "  %d. %.0f%% at [%.0f %.0f %.0f %.0f]\n", i+1, d.Confidence*100, d.X1, d.Y1, d.X2, d.Y2)
			}
			return nil
		},
	}
}
