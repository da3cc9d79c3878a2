package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/rainglass/systems"
)

var (
	// ErrStopped is returned by Frame when the driver is not running.
	ErrStopped = errors.New("session: driver stopped")

	// ErrFrameFault wraps a panic recovered from a frame. The driver stops
	// and stays stopped until Start is called again.
	ErrFrameFault = errors.New("session: frame fault")
)

// Scene is what the driver animates: one Tick then one Render per frame.
type Scene interface {
	Tick(dt float64)
	Render()
	Reset()
}

// Driver runs the per-frame loop: clamped delta time, simulation tick,
// render. It only advances while running and not paused. All methods are
// safe for concurrent use; scene calls are serialized by the driver lock.
type Driver struct {
	mu    sync.Mutex
	scene Scene
	maxDT float64

	running bool
	paused  bool
	last    time.Time
	fault   error
}

// NewDriver creates a stopped driver for scene.
func NewDriver(scene Scene, maxDT float64) *Driver {
	return &Driver{scene: scene, maxDT: maxDT}
}

// Start begins animating. The first frame after Start has a zero delta.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	d.paused = false
	d.last = time.Time{}
	d.fault = nil
}

// Stop halts the loop and resets the scene. Safe to call repeatedly.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.paused = false
	d.last = time.Time{}
	d.scene.Reset()
}

// Pause freezes the scene in place without clearing it.
func (d *Driver) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		d.paused = true
	}
}

// Resume continues after Pause. Time spent paused is not simulated.
func (d *Driver) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	d.last = time.Time{}
}

// Running reports whether the driver is started.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Paused reports whether the driver is paused.
func (d *Driver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Err returns the fault that stopped the driver, if any.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fault
}

// Do runs fn under the driver lock, between frames.
func (d *Driver) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Frame advances one frame at wall time now. It returns ErrStopped when
// not running. A panic inside the frame stops the driver and is returned
// wrapped in ErrFrameFault.
func (d *Driver) Frame(now time.Time) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrStopped
	}
	if d.paused {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			d.running = false
			d.fault = fmt.Errorf("%w: %v", ErrFrameFault, r)
			err = d.fault
			slog.Error("frame fault", "panic", r)
		}
	}()

	var dt float64
	if !d.last.IsZero() {
		dt = now.Sub(d.last).Seconds()
	}
	d.last = now

	d.scene.Tick(systems.ClampDT(dt, d.maxDT))
	d.scene.Render()
	return nil
}

// Run calls Frame for every time received on frames. It returns nil when
// frames is closed or the driver stops, the fault when a frame faults, and
// the context error on cancellation. Nothing is scheduled after it returns.
func (d *Driver) Run(ctx context.Context, frames <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-frames:
			if !ok {
				return nil
			}
			if err := d.Frame(now); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				return err
			}
		}
	}
}
