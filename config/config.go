// Package config provides configuration loading and validation for the effect.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ReferenceFPS is the frame rate that per-frame tunables (gravity, damping,
// velocities) are expressed against.
const ReferenceFPS = 60.0

// Config holds all effect configuration parameters.
type Config struct {
	Canvas       CanvasConfig       `yaml:"canvas"`
	Physics      PhysicsConfig      `yaml:"physics"`
	Spawn        SpawnConfig        `yaml:"spawn"`
	Trail        TrailConfig        `yaml:"trail"`
	Condensation CondensationConfig `yaml:"condensation"`
	Render       RenderConfig       `yaml:"render"`
	Driver       DriverConfig       `yaml:"driver"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// TestMode freezes randomness and suspends animation so frames can be
	// compared pixel for pixel.
	TestMode bool  `yaml:"test_mode"`
	Seed     int64 `yaml:"seed"`

	// Derived values computed after validation
	Derived DerivedConfig `yaml:"-"`
}

// CanvasConfig holds overlay canvas dimensions in CSS pixels.
type CanvasConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	DPR      float64 `yaml:"dpr"`
	MaxDPR   float64 `yaml:"max_dpr"`  // Device pixel ratio cap for high-DPI displays
	Circular bool    `yaml:"circular"` // Mask the canvas to the inscribed circle
}

// PhysicsConfig holds droplet physics parameters. Forces and velocities are
// per reference frame.
type PhysicsConfig struct {
	Gravity             float64 `yaml:"gravity"`
	WindX               float64 `yaml:"wind_x"`
	WindY               float64 `yaml:"wind_y"`
	Gust                float64 `yaml:"gust"`                  // Noise-driven wind modulation amplitude
	AdhesionBase        float64 `yaml:"adhesion_base"`         // Base stickiness (fraction of velocity lost per frame)
	AdhesionJitter      float64 `yaml:"adhesion_jitter"`       // Random stickiness spread on spawn
	ResistanceBase      float64 `yaml:"resistance_base"`       // Max random-motion resistance force
	HorizontalDamping   float64 `yaml:"horizontal_damping"`    // Per-frame vx retention
	Meander             float64 `yaml:"meander"`               // vx per unit |vy| per unit shift
	ShiftRange          float64 `yaml:"shift_range"`           // Max |shift| bias
	MotionIntervalMin   float64 `yaml:"motion_interval_min"`   // Seconds between random-motion impulses
	MotionIntervalMax   float64 `yaml:"motion_interval_max"`
	MaxDT               float64 `yaml:"max_dt"`                // Tick delta clamp in seconds
	EvaporationRate     float64 `yaml:"evaporation_rate"`      // Mass lost per second
	OffscreenMargin     float64 `yaml:"offscreen_margin"`      // Device px below the bottom edge before removal
	Collisions          bool    `yaml:"collisions"`
	MergeDistance       float64 `yaml:"merge_distance"`        // Fraction of summed radii
	MergeBoost          float64 `yaml:"merge_boost"`           // Velocity multiplier after merge
	MergeAdhesionFactor float64 `yaml:"merge_adhesion_factor"` // Stickiness multiplier after merge
	GridCellSize        float64 `yaml:"grid_cell_size"`
	StaticSpeedEnter    float64 `yaml:"static_speed_enter"` // Below: irregular static outline
	StaticSpeedExit     float64 `yaml:"static_speed_exit"`  // Above: teardrop outline
	StretchSpeed        float64 `yaml:"stretch_speed"`      // vy giving one unit of extra stretch
	MaxStretch          float64 `yaml:"max_stretch"`
}

// SpawnTier is one droplet size category with its own spawn rate.
type SpawnTier struct {
	Name      string  `yaml:"name"`
	Rate      float64 `yaml:"rate"` // Droplets per second
	MinRadius float64 `yaml:"min_radius"`
	MaxRadius float64 `yaml:"max_radius"`
	Anywhere  bool    `yaml:"anywhere"` // Spawn anywhere on the glass instead of above the top edge
}

// SpawnConfig holds droplet spawning parameters.
type SpawnConfig struct {
	MaxPopulation int         `yaml:"max_population"`
	Tiers         []SpawnTier `yaml:"tiers"`
}

// TrailConfig holds trail buffer parameters.
type TrailConfig struct {
	Enabled                 bool    `yaml:"enabled"`
	DistanceMin             float64 `yaml:"distance_min"` // Multiples of the droplet radius
	DistanceMax             float64 `yaml:"distance_max"`
	Width                   float64 `yaml:"width"` // Stroke width as a fraction of the radius
	Intensity               float64 `yaml:"intensity"`
	ChildChance             float64 `yaml:"child_chance"`
	ChildPopulationFraction float64 `yaml:"child_population_fraction"` // Children only spawn below this share of the cap
	ChildShrinkRate         float64 `yaml:"child_shrink_rate"`         // Mass lost per second
	Decay                   float64 `yaml:"decay"`                     // Fraction erased per second
	Diffuse                 float64 `yaml:"diffuse"`                   // Diffusion strength per second
	Opacity                 float64 `yaml:"opacity"`
}

// CondensationConfig holds condensation sparkle parameters.
type CondensationConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Density   float64 `yaml:"density"` // Batch probability per second
	Batch     int     `yaml:"batch"`
	MaxPoints int     `yaml:"max_points"`
	LifeMin   float64 `yaml:"life_min"`
	LifeMax   float64 `yaml:"life_max"`
	RadiusMin float64 `yaml:"radius_min"`
	RadiusMax float64 `yaml:"radius_max"`
}

// RenderConfig holds compositor parameters.
type RenderConfig struct {
	BlurStrength            float64 `yaml:"blur_strength"`
	BlurStrategy            string  `yaml:"blur_strategy"` // "box" or "mip"
	MipLevels               int     `yaml:"mip_levels"`
	Saturation              float64 `yaml:"saturation"`
	Fog                     bool    `yaml:"fog"`
	FogStrength             float64 `yaml:"fog_strength"`
	RefractionOffset        float64 `yaml:"refraction_offset"`        // Fraction of the radius
	RefractionMagnification float64 `yaml:"refraction_magnification"` // > 1
	Miniature               bool    `yaml:"miniature"`
	MiniatureScale          float64 `yaml:"miniature_scale"`
	MiniatureRotate         bool    `yaml:"miniature_rotate"`
	HighlightStrength       float64 `yaml:"highlight_strength"`
	VignetteStrength        float64 `yaml:"vignette_strength"`
	SmudgeChance            float64 `yaml:"smudge_chance"`
}

// DriverConfig holds frame driver parameters.
type DriverConfig struct {
	TargetFPS      int     `yaml:"target_fps"`
	ResizeDebounce float64 `yaml:"resize_debounce"` // Seconds
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds
	PerfWindow  int     `yaml:"perf_window"`  // Frames
}

// DerivedConfig holds computed values derived from the validated config.
type DerivedConfig struct {
	DPR           float64 // Canvas.DPR capped by Canvas.MaxDPR
	PixelWidth    int     // Canvas width in device pixels
	PixelHeight   int     // Canvas height in device pixels
	TotalRate     float64 // Sum of tier spawn rates
	ChildCap      int     // Population below which trail children may spawn
	FrameInterval float64 // Seconds per target frame
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.Validate()
	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

func defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Validate clamps every tunable into its valid range. Non-finite values and
// negatives where a positive value is required fall back to the embedded
// default. Derived values are recomputed afterwards. Call again after
// changing fields by hand.
func (c *Config) Validate() {
	def, err := defaults()
	if err != nil {
		// Embedded defaults are compiled in; a parse failure is a build defect.
		panic(err)
	}

	cv, dv := &c.Canvas, &def.Canvas
	cv.Width = positive(cv.Width, dv.Width)
	cv.Height = positive(cv.Height, dv.Height)
	cv.MaxDPR = positive(cv.MaxDPR, dv.MaxDPR)
	cv.DPR = positive(cv.DPR, dv.DPR)

	p, dp := &c.Physics, &def.Physics
	p.Gravity = nonNegative(p.Gravity, dp.Gravity)
	p.WindX = finite(p.WindX, dp.WindX)
	p.WindY = finite(p.WindY, dp.WindY)
	p.Gust = nonNegative(p.Gust, dp.Gust)
	p.AdhesionBase = clamp(nonNegative(p.AdhesionBase, dp.AdhesionBase), 0, 0.95)
	p.AdhesionJitter = clamp(nonNegative(p.AdhesionJitter, dp.AdhesionJitter), 0, 0.5)
	p.ResistanceBase = nonNegative(p.ResistanceBase, dp.ResistanceBase)
	p.HorizontalDamping = clamp(nonNegative(p.HorizontalDamping, dp.HorizontalDamping), 0, 1)
	p.Meander = nonNegative(p.Meander, dp.Meander)
	p.ShiftRange = nonNegative(p.ShiftRange, dp.ShiftRange)
	p.MotionIntervalMin = positive(p.MotionIntervalMin, dp.MotionIntervalMin)
	p.MotionIntervalMax = positive(p.MotionIntervalMax, dp.MotionIntervalMax)
	if p.MotionIntervalMax < p.MotionIntervalMin {
		p.MotionIntervalMax = p.MotionIntervalMin
	}
	p.MaxDT = clamp(positive(p.MaxDT, dp.MaxDT), 0.001, 0.25)
	p.EvaporationRate = nonNegative(p.EvaporationRate, dp.EvaporationRate)
	p.OffscreenMargin = nonNegative(p.OffscreenMargin, dp.OffscreenMargin)
	p.MergeDistance = clamp(positive(p.MergeDistance, dp.MergeDistance), 0.05, 2)
	p.MergeBoost = clamp(positive(p.MergeBoost, dp.MergeBoost), 1, 3)
	p.MergeAdhesionFactor = clamp(positive(p.MergeAdhesionFactor, dp.MergeAdhesionFactor), 0, 1)
	p.GridCellSize = positive(p.GridCellSize, dp.GridCellSize)
	p.StaticSpeedEnter = nonNegative(p.StaticSpeedEnter, dp.StaticSpeedEnter)
	p.StaticSpeedExit = nonNegative(p.StaticSpeedExit, dp.StaticSpeedExit)
	if p.StaticSpeedExit < p.StaticSpeedEnter {
		p.StaticSpeedExit = p.StaticSpeedEnter
	}
	p.StretchSpeed = positive(p.StretchSpeed, dp.StretchSpeed)
	p.MaxStretch = math.Max(1, finite(p.MaxStretch, dp.MaxStretch))

	s := &c.Spawn
	if s.MaxPopulation < 0 {
		s.MaxPopulation = def.Spawn.MaxPopulation
	}
	if s.Tiers == nil {
		s.Tiers = def.Spawn.Tiers
	}
	for i := range s.Tiers {
		t := &s.Tiers[i]
		t.Rate = nonNegative(t.Rate, 0)
		t.MinRadius = positive(t.MinRadius, 1)
		t.MaxRadius = positive(t.MaxRadius, t.MinRadius)
		if t.MaxRadius < t.MinRadius {
			t.MaxRadius = t.MinRadius
		}
	}

	t, dt := &c.Trail, &def.Trail
	t.DistanceMin = positive(t.DistanceMin, dt.DistanceMin)
	t.DistanceMax = positive(t.DistanceMax, dt.DistanceMax)
	if t.DistanceMax < t.DistanceMin {
		t.DistanceMax = t.DistanceMin
	}
	t.Width = positive(t.Width, dt.Width)
	t.Intensity = clamp(nonNegative(t.Intensity, dt.Intensity), 0, 1)
	t.ChildChance = clamp(nonNegative(t.ChildChance, dt.ChildChance), 0, 1)
	t.ChildPopulationFraction = clamp(nonNegative(t.ChildPopulationFraction, dt.ChildPopulationFraction), 0, 1)
	t.ChildShrinkRate = nonNegative(t.ChildShrinkRate, dt.ChildShrinkRate)
	t.Decay = clamp(nonNegative(t.Decay, dt.Decay), 0, 1)
	t.Diffuse = nonNegative(t.Diffuse, dt.Diffuse)
	t.Opacity = clamp(nonNegative(t.Opacity, dt.Opacity), 0, 1)

	cd, dcd := &c.Condensation, &def.Condensation
	cd.Density = nonNegative(cd.Density, dcd.Density)
	if cd.Batch < 0 {
		cd.Batch = dcd.Batch
	}
	if cd.MaxPoints < 0 {
		cd.MaxPoints = dcd.MaxPoints
	}
	cd.LifeMin = positive(cd.LifeMin, dcd.LifeMin)
	cd.LifeMax = positive(cd.LifeMax, dcd.LifeMax)
	if cd.LifeMax < cd.LifeMin {
		cd.LifeMax = cd.LifeMin
	}
	cd.RadiusMin = positive(cd.RadiusMin, dcd.RadiusMin)
	cd.RadiusMax = positive(cd.RadiusMax, dcd.RadiusMax)
	if cd.RadiusMax < cd.RadiusMin {
		cd.RadiusMax = cd.RadiusMin
	}

	r, dr := &c.Render, &def.Render
	r.BlurStrength = nonNegative(r.BlurStrength, 0)
	if r.BlurStrategy != "box" && r.BlurStrategy != "mip" {
		r.BlurStrategy = dr.BlurStrategy
	}
	if r.MipLevels < 0 || r.MipLevels > 8 {
		r.MipLevels = dr.MipLevels
	}
	r.Saturation = clamp(nonNegative(r.Saturation, dr.Saturation), 0, 2)
	r.FogStrength = clamp(nonNegative(r.FogStrength, dr.FogStrength), 0, 1)
	r.RefractionOffset = finite(r.RefractionOffset, dr.RefractionOffset)
	r.RefractionMagnification = math.Max(1, finite(r.RefractionMagnification, dr.RefractionMagnification))
	r.MiniatureScale = clamp(positive(r.MiniatureScale, dr.MiniatureScale), 0.01, 1)
	r.HighlightStrength = clamp(nonNegative(r.HighlightStrength, dr.HighlightStrength), 0, 1)
	r.VignetteStrength = clamp(nonNegative(r.VignetteStrength, dr.VignetteStrength), 0, 1)
	r.SmudgeChance = clamp(nonNegative(r.SmudgeChance, dr.SmudgeChance), 0, 1)

	if c.Driver.TargetFPS <= 0 {
		c.Driver.TargetFPS = def.Driver.TargetFPS
	}
	c.Driver.ResizeDebounce = nonNegative(c.Driver.ResizeDebounce, def.Driver.ResizeDebounce)
	c.Telemetry.StatsWindow = positive(c.Telemetry.StatsWindow, def.Telemetry.StatsWindow)
	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = def.Telemetry.PerfWindow
	}

	c.computeDerived()
}

// computeDerived calculates values derived from validated config.
func (c *Config) computeDerived() {
	c.Derived.DPR = math.Min(c.Canvas.DPR, c.Canvas.MaxDPR)
	c.Derived.PixelWidth = int(math.Round(c.Canvas.Width * c.Derived.DPR))
	c.Derived.PixelHeight = int(math.Round(c.Canvas.Height * c.Derived.DPR))

	c.Derived.TotalRate = 0
	for _, t := range c.Spawn.Tiers {
		c.Derived.TotalRate += t.Rate
	}
	c.Derived.ChildCap = int(float64(c.Spawn.MaxPopulation) * c.Trail.ChildPopulationFraction)
	c.Derived.FrameInterval = 1.0 / float64(c.Driver.TargetFPS)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func nonNegative(v, fallback float64) float64 {
	v = finite(v, fallback)
	if v < 0 {
		return fallback
	}
	return v
}

func positive(v, fallback float64) float64 {
	v = finite(v, fallback)
	if v <= 0 {
		return fallback
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
