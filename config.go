package seam

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Geometry holds the device dimensions and resource values the animations
// read. All lengths are in pixels.
type Geometry struct {
	WidthPx                 float64 `yaml:"width_px"`
	HeightPx                float64 `yaml:"height_px"`
	StartingSurfaceIconSize float64 `yaml:"starting_surface_icon_size"`
	WindowCornerRadius      float64 `yaml:"window_corner_radius"`
	TaskCornerRadius        float64 `yaml:"task_corner_radius"`
	MaxShadowRadius         float64 `yaml:"max_shadow_radius"`
	MinDisplacement         float64 `yaml:"min_displacement_px"`
	ClosingWindowTransY     float64 `yaml:"closing_window_trans_y"`
	RoundedCorners          bool    `yaml:"rounded_corners"`
	MultiWindow             bool    `yaml:"multi_window"`
	OverviewThumbnail       Rect    `yaml:"overview_thumbnail"`
}

// ScreenBounds returns the full-screen rectangle.
func (g Geometry) ScreenBounds() Rect {
	return Rect{Width: g.WidthPx, Height: g.HeightPx}
}

// Timings holds every duration used by the built-in animations.
type Timings struct {
	AppLaunch           time.Duration `yaml:"app_launch"`
	AppLaunchCurved     time.Duration `yaml:"app_launch_curved"`
	AppLaunchAlpha      time.Duration `yaml:"app_launch_alpha"`
	AppLaunchAlphaDelay time.Duration `yaml:"app_launch_alpha_delay"`
	DownScaleFactor     float64       `yaml:"down_scale_factor"`
	NavFadeIn           time.Duration `yaml:"nav_fade_in"`
	NavFadeOut          time.Duration `yaml:"nav_fade_out"`
	RecentsLaunch       time.Duration `yaml:"recents_launch"`
	Closing             time.Duration `yaml:"closing"`
	ClosingAlphaDelay   time.Duration `yaml:"closing_alpha_delay"`
	ClosingAlpha        time.Duration `yaml:"closing_alpha"`
	StatusBarTransition time.Duration `yaml:"status_bar_transition"`
	StatusBarPreDelay   time.Duration `yaml:"status_bar_pre_delay"`
	DoubleTapTimeout    time.Duration `yaml:"double_tap_timeout"`
	Frame               time.Duration `yaml:"frame"`
}

// Down scales d by DownScaleFactor, used for downward launches.
func (t Timings) Down(d time.Duration) time.Duration {
	return time.Duration(float64(d) * t.DownScaleFactor)
}

// StatusBarDelay returns how long the status bar waits before animating
// during a transition of length d.
func (t Timings) StatusBarDelay(d time.Duration) time.Duration {
	return d - t.StatusBarTransition - t.StatusBarPreDelay
}

// namedDuration is a duration with the config key it came from.
type namedDuration struct {
	name string
	d    time.Duration
}

// selectable returns every duration a transition adapter can be created
// with, in a fixed order.
func (t Timings) selectable() []namedDuration {
	return []namedDuration{
		{"app_launch", t.AppLaunch},
		{"app_launch (down)", t.Down(t.AppLaunch)},
		{"recents_launch", t.RecentsLaunch},
		{"closing", t.Closing},
	}
}

// Config is the engine configuration.
type Config struct {
	Geometry              Geometry `yaml:"geometry"`
	Timings               Timings  `yaml:"timings"`
	PresentationCacheSize int      `yaml:"presentation_cache_size"`
	RotationPolicy        string   `yaml:"rotation_policy"`
	Debug                 bool     `yaml:"debug"`
}

// ValidationError reports the config path that failed validation.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DefaultConfig returns a configuration for a 1080x2340 phone-sized display.
func DefaultConfig() Config {
	return Config{
		Geometry: Geometry{
			WidthPx:                 1080,
			HeightPx:                2340,
			StartingSurfaceIconSize: 108,
			WindowCornerRadius:      44,
			TaskCornerRadius:        28,
			MaxShadowRadius:         22,
			MinDisplacement:         270,
			ClosingWindowTransY:     120,
			RoundedCorners:          true,
			OverviewThumbnail:       Rect{X: 162, Y: 468, Width: 756, Height: 1638},
		},
		Timings: Timings{
			AppLaunch:           500 * time.Millisecond,
			AppLaunchCurved:     250 * time.Millisecond,
			AppLaunchAlpha:      50 * time.Millisecond,
			AppLaunchAlphaDelay: 25 * time.Millisecond,
			DownScaleFactor:     0.8,
			NavFadeIn:           266 * time.Millisecond,
			NavFadeOut:          133 * time.Millisecond,
			RecentsLaunch:       336 * time.Millisecond,
			Closing:             250 * time.Millisecond,
			ClosingAlphaDelay:   25 * time.Millisecond,
			ClosingAlpha:        125 * time.Millisecond,
			StatusBarTransition: 120 * time.Millisecond,
			StatusBarPreDelay:   96 * time.Millisecond,
			DoubleTapTimeout:    300 * time.Millisecond,
			Frame:               16 * time.Millisecond,
		},
		PresentationCacheSize: 5,
		RotationPolicy:        RotationMaxMagnitude.String(),
	}
}

// LoadConfig reads and validates the YAML file at path. Missing keys keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are an error.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	g := c.Geometry
	if g.WidthPx <= 0 || g.HeightPx <= 0 {
		return &ValidationError{Path: "geometry", Err: fmt.Errorf("width_px and height_px must be > 0")}
	}
	if g.StartingSurfaceIconSize <= 0 {
		return &ValidationError{Path: "geometry.starting_surface_icon_size", Err: fmt.Errorf("must be > 0")}
	}
	if g.WindowCornerRadius < 0 || g.TaskCornerRadius < 0 || g.MaxShadowRadius < 0 {
		return &ValidationError{Path: "geometry", Err: fmt.Errorf("radii must be >= 0")}
	}
	if g.MinDisplacement < 0 {
		return &ValidationError{Path: "geometry.min_displacement_px", Err: fmt.Errorf("must be >= 0")}
	}

	t := c.Timings
	if t.DownScaleFactor <= 0 || t.DownScaleFactor > 1 {
		return &ValidationError{Path: "timings.down_scale_factor", Err: fmt.Errorf("must be in (0, 1]")}
	}
	if t.AppLaunch <= 0 || t.RecentsLaunch <= 0 || t.Closing <= 0 {
		return &ValidationError{Path: "timings", Err: fmt.Errorf("app_launch, recents_launch and closing must be > 0")}
	}
	if t.NavFadeIn > t.AppLaunch {
		return &ValidationError{Path: "timings.nav_fade_in", Err: fmt.Errorf("must not exceed app_launch")}
	}
	if t.Frame <= 0 {
		return &ValidationError{Path: "timings.frame", Err: fmt.Errorf("must be > 0")}
	}
	if t.DoubleTapTimeout < 0 {
		return &ValidationError{Path: "timings.double_tap_timeout", Err: fmt.Errorf("must be >= 0")}
	}
	for _, nd := range t.selectable() {
		if delay := t.StatusBarDelay(nd.d); delay < 0 {
			return &ValidationError{
				Path: "timings",
				Err:  fmt.Errorf("status bar delay for %s (%v) is negative: %v", nd.name, nd.d, delay),
			}
		}
	}

	if c.PresentationCacheSize <= 0 {
		return &ValidationError{Path: "presentation_cache_size", Err: fmt.Errorf("must be > 0")}
	}
	if _, err := ParseRotationPolicy(c.RotationPolicy); err != nil {
		return &ValidationError{Path: "rotation_policy", Err: err}
	}
	return nil
}

// Rotation returns the parsed rotation policy.
func (c Config) Rotation() RotationPolicy {
	p, _ := ParseRotationPolicy(c.RotationPolicy)
	return p
}
