package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/leafscan-go/rigsim"
)

func newSimCommand(g *globals) *cobra.Command {
	var (
		listen   string
		camera   string
		rect     []int
		noYolo   bool
		fast     bool
		refusing []string
	)
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run a simulated control backend with a virtual rig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.load()
			if err != nil {
				return err
			}
			opts := rigsim.Options{}
			if fast {
				opts = rigsim.FastOptions()
			}
			opts.Logger = e.logger
			opts.DetectorMissing = noYolo
			opts.Unreachable = refusing
			switch camera {
			case "synthetic":
			case "screen":
				var r image.Rectangle
				if len(rect) == 4 {
					r = image.Rect(rect[0], rect[1], rect[2], rect[3])
				} else if len(rect) != 0 {
					return fmt.Errorf("--rect needs x0,y0,x1,y1")
				}
				opts.Camera = rigsim.NewScreenCamera(r, e.logger)
			default:
				return fmt.Errorf("unknown camera %q (synthetic or screen)", camera)
			}

			sim := rigsim.New(opts)
			defer sim.Close()
			srv := &http.Server{Addr: listen, Handler: sim.Handler(), ReadHeaderTimeout: 5 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			e.startDebug(ctx)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			e.logger.Info("simulator listening", "addr", listen, "camera", camera)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			sim.Close()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8000", "Listen address")
	cmd.Flags().StringVar(&camera, "camera", "synthetic", "Frame source: synthetic or screen")
	cmd.Flags().IntSliceVar(&rect, "rect", nil, "Screen region x0,y0,x1,y1 for the screen camera")
	cmd.Flags().BoolVar(&noYolo, "no-detector", false, "Report the detection model as not loaded")
	cmd.Flags().BoolVar(&fast, "fast", false, "Shorten every scan delay")
	cmd.Flags().StringSliceVar(&refusing, "unreachable", nil, "Device addresses that refuse connections")
	return cmd
}
