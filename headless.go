package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/session"
	"github.com/pthm-cable/rainglass/telemetry"
)

// runHeadless opens the effect over the page and steps it without a window.
// Frames are stamped at the target frame rate, so runs with the same seed
// produce the same output however fast the machine is.
func runHeadless(cfg *config.Config, opts runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	region := overlayRect(opts.page.Rect.Dx(), opts.page.Rect.Dy(), cfg)
	s := session.New(cfg, session.Options{
		Provider: capture.NewImageProvider(opts.page),
		Region:   region,
		Output:   opts.output,
		LogStats: opts.logStats,
	})
	defer s.Close()

	if err := s.SetOpen(ctx, true); err != nil {
		slog.Warn("running without background", "error", err)
	}
	if cfg.TestMode {
		s.Start()
	}
	if opts.snapshot != nil {
		n := s.Restore(opts.snapshot)
		slog.Info("restored snapshot", "droplets", n, "frame", opts.snapshot.Frame)
	}

	slog.Info("starting headless run",
		"seed", cfg.Seed,
		"test_mode", cfg.TestMode,
		"region", region.String(),
		"max_frames", opts.maxFrames,
		"realtime", opts.realtime,
	)

	var err error
	if opts.realtime {
		err = runRealtime(ctx, s, cfg, opts.maxFrames)
	} else {
		err = runStepped(ctx, s, cfg, opts)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	st := s.Stats()
	slog.Info("headless run finished", "frame", st.Frame, "droplets", st.Droplets, "sim_time", st.SimTime)

	if opts.snapshotDir != "" {
		path, err := telemetry.SaveSnapshot(s.Snapshot(), opts.snapshotDir)
		if err != nil {
			return err
		}
		slog.Info("saved snapshot", "path", path)
	}
	return nil
}

// runStepped drives frames back to back with synthetic timestamps.
func runStepped(ctx context.Context, s *session.Session, cfg *config.Config, opts runOptions) error {
	interval := time.Duration(cfg.Derived.FrameInterval * float64(time.Second))
	start := time.Now()

	for i := 0; opts.maxFrames <= 0 || i < opts.maxFrames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Frame(start.Add(time.Duration(i) * interval)); err != nil {
			if errors.Is(err, session.ErrStopped) {
				return nil
			}
			return err
		}
		if opts.framesDir != "" && (i+1)%opts.frameEvery == 0 {
			if err := dumpFrame(opts.framesDir, i+1, s.Canvas()); err != nil {
				return err
			}
		}
	}
	slog.Info("max frames reached", "frames", opts.maxFrames)
	return nil
}

// runRealtime paces frames with a wall-clock ticker, as a display would.
func runRealtime(ctx context.Context, s *session.Session, cfg *config.Config, maxFrames int) error {
	interval := time.Duration(cfg.Derived.FrameInterval * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frames := make(chan time.Time)
	go func() {
		defer close(frames)
		for i := 0; maxFrames <= 0 || i < maxFrames; i++ {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				select {
				case frames <- now:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return s.Run(ctx, frames)
}

// dumpFrame writes a composited frame as frame_<n>.png.
func dumpFrame(dir string, n int, img *image.RGBA) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame_%06d.png", n))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}
