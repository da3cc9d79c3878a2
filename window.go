package main

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/rainglass/capture"
	"github.com/pthm-cable/rainglass/config"
	"github.com/pthm-cable/rainglass/session"
	"github.com/pthm-cable/rainglass/telemetry"
	"github.com/pthm-cable/rainglass/ui"
)

const (
	maxWindowWidth  = 1280
	maxWindowHeight = 800
	panelWidth      = 220
)

// host is the windowed demo: the page fills the window and the effect
// sits in a centered overlay above it.
type host struct {
	cfg     *config.Config
	opts    runOptions
	session *session.Session
	region  image.Rectangle

	page     *ui.Presenter
	overlay  *ui.Presenter
	hud      *ui.HUD
	perf     *ui.PerfPanel
	panel    *ui.ControlsPanel
	bindings *ui.Bindings
	state    ui.ControlState

	faulted bool
}

func runWindowed(cfg *config.Config, opts runOptions) {
	w := min(opts.page.Rect.Dx(), maxWindowWidth)
	h := min(opts.page.Rect.Dy(), maxWindowHeight)

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(w), int32(h), "Rain on Glass")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Driver.TargetFPS))

	region := overlayRect(w, h, cfg)
	s := session.New(cfg, session.Options{
		Provider: capture.NewImageProvider(opts.page),
		Region:   region,
		Output:   opts.output,
		LogStats: opts.logStats,
	})
	defer s.Close()

	hst := &host{
		cfg:      cfg,
		opts:     opts,
		session:  s,
		region:   region,
		page:     ui.NewPresenter(),
		overlay:  ui.NewPresenter(),
		hud:      ui.NewHUD(),
		perf:     ui.NewPerfPanel(int32(w)-200, int32(h)-150),
		panel:    ui.NewControlsPanel(int32(w)-panelWidth-10, 10, panelWidth),
		bindings: ui.NewBindings(),
		state:    ui.NewControlState(s.Config()),
	}
	defer hst.page.Unload()
	defer hst.overlay.Unload()
	hst.page.Update(opts.page)

	hst.setOpen(true)
	if opts.snapshot != nil {
		n := s.Restore(opts.snapshot)
		slog.Info("restored snapshot", "droplets", n, "frame", opts.snapshot.Frame)
	}

	for !rl.WindowShouldClose() {
		hst.handleResize()
		for _, action := range hst.bindings.Pressed() {
			hst.do(action)
		}

		hst.frame()

		rl.BeginDrawing()
		hst.draw()
		rl.EndDrawing()

		if opts.maxFrames > 0 && s.Stats().Frame >= uint64(opts.maxFrames) {
			break
		}
	}
}

func (h *host) frame() {
	err := h.session.Frame(time.Now())
	switch {
	case err == nil:
		h.session.RecordPresent()
		h.faulted = false
	case errors.Is(err, session.ErrStopped):
	default:
		if !h.faulted {
			slog.Error("frame failed", "error", err)
			h.faulted = true
		}
	}
	h.overlay.Update(h.session.Canvas())
}

func (h *host) draw() {
	rl.ClearBackground(rl.Black)
	h.page.Draw(rl.Rectangle{
		Width:  float32(h.opts.page.Rect.Dx()),
		Height: float32(h.opts.page.Rect.Dy()),
	})

	st := h.session.Stats()
	if st.Open {
		h.overlay.Draw(rl.Rectangle{
			X:      float32(h.region.Min.X),
			Y:      float32(h.region.Min.Y),
			Width:  float32(h.region.Dx()),
			Height: float32(h.region.Dy()),
		})
	}

	h.hud.Draw(ui.HUDData{
		Title:         "Rain on Glass",
		Droplets:      st.Droplets,
		MaxDroplets:   h.cfg.Spawn.MaxPopulation,
		Frame:         st.Frame,
		SimTime:       st.SimTime,
		FPS:           rl.GetFPS(),
		Open:          st.Open,
		Paused:        st.Paused,
		HasBackground: st.HasBackground,
		Width:         st.Width,
		Height:        st.Height,
	})
	if h.panel.IsVisible() {
		h.perf.Draw(h.session.Perf())
	}

	h.handleEvents(h.panel.Draw(&h.state))
	h.hud.DrawControls(int32(rl.GetScreenHeight()), h.bindings.Legend())
}

func (h *host) handleEvents(ev ui.ControlEvents) {
	if !ev.Any() {
		return
	}
	if ev.MenuToggled {
		h.setOpen(h.state.MenuOpen)
	}
	if ev.PauseToggled {
		h.setPaused(h.state.Paused)
	}
	if ev.SettingsChanged {
		h.session.Tune(h.state.Apply)
	}
	if ev.BackgroundChanged {
		h.recapture()
	}
	if ev.Snapshot {
		h.saveSnapshot()
	}
}

func (h *host) do(action ui.Action) {
	switch action {
	case ui.ActionToggleMenu:
		h.setOpen(!h.state.MenuOpen)
	case ui.ActionTogglePause:
		h.setPaused(!h.state.Paused)
	case ui.ActionTogglePanel:
		h.panel.Toggle()
	case ui.ActionRecapture:
		h.recapture()
	case ui.ActionSnapshot:
		h.saveSnapshot()
	case ui.ActionScreenshot:
		dir := h.opts.framesDir
		if dir == "" {
			dir = "frames"
		}
		st := h.session.Stats()
		if err := dumpFrame(dir, int(st.Frame), h.session.Canvas()); err != nil {
			slog.Error("failed to save frame", "error", err)
		}
	}
}

func (h *host) setOpen(open bool) {
	h.state.MenuOpen = open
	h.state.Paused = false
	if err := h.session.SetOpen(context.Background(), open); err != nil {
		slog.Warn("capture failed, raining without background", "error", err)
	}
}

// setPaused pauses or resumes. In test mode opening does not animate, so
// the first resume starts the effect.
func (h *host) setPaused(paused bool) {
	h.state.Paused = paused
	st := h.session.Stats()
	switch {
	case paused:
		h.session.Pause()
	case st.Open && !st.Running:
		h.session.Start()
	default:
		h.session.Resume()
	}
}

func (h *host) recapture() {
	if err := h.session.Recapture(context.Background()); err != nil {
		slog.Warn("re-capture failed", "error", err)
	}
}

func (h *host) saveSnapshot() {
	dir := h.opts.snapshotDir
	if dir == "" {
		dir = "snapshots"
	}
	path, err := telemetry.SaveSnapshot(h.session.Snapshot(), dir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("saved snapshot", "path", path)
}

// handleResize keeps the overlay centered and lays the panels out again.
func (h *host) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, ht := rl.GetScreenWidth(), rl.GetScreenHeight()
	r := overlayRect(w, ht, h.cfg)
	h.session.Move(float64(r.Min.X), float64(r.Min.Y))
	h.session.Resize(float64(r.Dx()), float64(r.Dy()), h.cfg.Canvas.DPR)
	if r.Size() == h.region.Size() && r != h.region {
		// Same size, new position: Resize does not re-capture.
		h.recapture()
	}
	h.region = r

	h.panel.SetPosition(int32(w)-panelWidth-10, 10)
	h.perf.SetPosition(int32(w)-200, int32(ht)-150)
}
