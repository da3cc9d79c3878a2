package main

import (
	"flag"
	"image"
	"log/slog"
	"os"

	"golang.org/x/image/draw"

	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/telemetry"
)

// runOptions carries the CLI settings shared by both hosts.
type runOptions struct {
	page        *image.RGBA
	output      *telemetry.OutputManager
	logStats    bool
	maxFrames   int
	realtime    bool
	framesDir   string
	frameEvery  int
	snapshot    *telemetry.Snapshot
	snapshotDir string
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	background := flag.String("background", "", "Page image (PNG or JPEG) behind the overlay (empty = built-in test card)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	testMode := flag.Bool("test-mode", false, "Deterministic visuals; opening does not start the animation")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	realtime := flag.Bool("realtime", false, "Pace headless frames with a wall-clock ticker")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	framesDir := flag.String("frames-dir", "", "Directory for PNG frame dumps")
	frameEvery := flag.Int("frame-every", 60, "Dump every Nth frame to -frames-dir")
	snapshotPath := flag.String("snapshot", "", "Restore droplets from a snapshot file")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *testMode {
		cfg.TestMode = true
	}

	page, err := loadPage(*background)
	if err != nil {
		slog.Error("failed to load background", "error", err)
		os.Exit(1)
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	var snap *telemetry.Snapshot
	if *snapshotPath != "" {
		snap, err = telemetry.LoadSnapshot(*snapshotPath)
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
	}

	opts := runOptions{
		page:        page,
		output:      output,
		logStats:    *logStats,
		maxFrames:   *maxFrames,
		realtime:    *realtime,
		framesDir:   *framesDir,
		frameEvery:  max(*frameEvery, 1),
		snapshot:    snap,
		snapshotDir: *snapshotDir,
	}

	if *headless {
		if err := runHeadless(cfg, opts); err != nil {
			slog.Error("headless run failed", "error", err)
			os.Exit(1)
		}
		return
	}
	runWindowed(cfg, opts)
}

// loadPage decodes the page image, or renders the test card when path is
// empty.
func loadPage(path string) (*image.RGBA, error) {
	if path == "" {
		return capture.TestCard(1024, 720), nil
	}
	p, err := capture.LoadImageProvider(path)
	if err != nil {
		return nil, err
	}
	src := p.Page()
	b := src.Bounds()
	page := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(page, page.Rect, src, b.Min, draw.Src)
	return page, nil
}

// overlayRect centers the configured canvas on a page of the given size,
// shrinking it to leave a margin when the page is too small.
func overlayRect(pageW, pageH int, cfg *config.Config) image.Rectangle {
	const margin = 20
	w := max(1, min(int(cfg.Canvas.Width), pageW-2*margin))
	h := max(1, min(int(cfg.Canvas.Height), pageH-2*margin))
	x := max(0, (pageW-w)/2)
	y := max(0, (pageH-h)/2)
	return image.Rect(x, y, x+w, y+h)
}
