package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/sensorsim/internal/drive"
	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
)

// DefaultConfigPath is the path to the canonical simulation defaults file.
const DefaultConfigPath = "config/sim.defaults.json"

// SimConfig is the root simulation configuration. Every field is optional;
// the Get* accessors and the component projections fall back to the
// built-in defaults for anything left unset.
type SimConfig struct {
	Lidar LidarSection `json:"lidar"`
	Drive DriveSection `json:"drive"`

	// Scheduler
	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "10ms"
	Duration     *string `json:"duration,omitempty"`      // duration string like "5s"
}

// LidarSection configures the scanning sensor.
type LidarSection struct {
	FrameID                *string  `json:"frame_id,omitempty"`
	NSamplesPerScan        *int     `json:"n_samples_per_scan,omitempty"`
	ScanFrequency          *float64 `json:"scan_frequency,omitempty"`
	StartAngle             *float64 `json:"start_angle,omitempty"`
	FOVHorizontal          *float64 `json:"fov_horizontal,omitempty"`
	MinRange               *float64 `json:"min_range,omitempty"`
	MaxRange               *float64 `json:"max_range,omitempty"`
	IntensityReflective    *float64 `json:"intensity_reflective,omitempty"`
	IntensityNonReflective *float64 `json:"intensity_non_reflective,omitempty"`
	IntensityMin           *float64 `json:"intensity_min,omitempty"`
	IntensityMax           *float64 `json:"intensity_max,omitempty"`
	WithNoise              *bool    `json:"with_noise,omitempty"`
	PositionNoiseStdDev    *float64 `json:"position_noise_stddev,omitempty"`
	IntensityNoiseStdDev   *float64 `json:"intensity_noise_stddev,omitempty"`
	NoiseSeed              *uint64  `json:"noise_seed,omitempty"`
	Dispatch               *string  `json:"dispatch,omitempty"` // "sync" or "async"
	Workers                *int     `json:"workers,omitempty"`
	ShowLidarRays          *bool    `json:"show_lidar_rays,omitempty"`
	ShowLidarRayMisses     *bool    `json:"show_lidar_ray_misses,omitempty"`
}

// DriveSection configures the differential drive and its odometry.
type DriveSection struct {
	WheelRadius         *float64 `json:"wheel_radius,omitempty"`
	WheelSeparationHalf *float64 `json:"wheel_separation_half,omitempty"`
	MaxForce            *float64 `json:"max_force,omitempty"`
	WithNoise           *bool    `json:"with_noise,omitempty"`
	PositionNoiseStdDev *float64 `json:"position_noise_stddev,omitempty"`
	NoiseSeed           *uint64  `json:"noise_seed,omitempty"`
	FrameID             *string  `json:"frame_id,omitempty"`
	ChildFrameID        *string  `json:"child_frame_id,omitempty"`
}

// EmptySimConfig returns a SimConfig with all fields unset.
func EmptySimConfig() *SimConfig {
	return &SimConfig{}
}

// LoadSimConfig loads a SimConfig from a JSON file. The file must have a
// .json extension and be at most 1MB. Omitted fields keep their defaults.
func LoadSimConfig(path string) (*SimConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySimConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. It panics if the
// file cannot be loaded and is intended for test setup.
func MustLoadDefaultConfig() *SimConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/sensors/lidar/
	}
	for _, path := range candidates {
		if cfg, err := LoadSimConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the scheduler durations and both component projections.
func (c *SimConfig) Validate() error {
	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %s", d)
		}
	}
	if c.Duration != nil && *c.Duration != "" {
		if _, err := time.ParseDuration(*c.Duration); err != nil {
			return fmt.Errorf("invalid duration '%s': %w", *c.Duration, err)
		}
	}
	if err := c.LidarConfig().Validate(); err != nil {
		return err
	}
	return c.DriveConfig().Validate()
}

// GetTickInterval returns the scheduler tick or the 10ms default.
func (c *SimConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 10 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil || d <= 0 {
		return 10 * time.Millisecond
	}
	return d
}

// GetDuration returns the simulated run length or the 5s default.
func (c *SimConfig) GetDuration() time.Duration {
	if c.Duration == nil || *c.Duration == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.Duration)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setUint64(dst *uint64, src *uint64) {
	if src != nil {
		*dst = *src
	}
}

// LidarConfig projects the lidar section over lidar.DefaultConfig.
func (c *SimConfig) LidarConfig() lidar.Config {
	l := c.Lidar
	out := lidar.DefaultConfig()
	setString(&out.FrameID, l.FrameID)
	setInt(&out.NSamplesPerScan, l.NSamplesPerScan)
	setFloat(&out.ScanFrequency, l.ScanFrequency)
	setFloat(&out.StartAngle, l.StartAngle)
	setFloat(&out.FOVHorizontal, l.FOVHorizontal)
	setFloat(&out.MinRange, l.MinRange)
	setFloat(&out.MaxRange, l.MaxRange)
	setFloat(&out.IntensityReflective, l.IntensityReflective)
	setFloat(&out.IntensityNonReflective, l.IntensityNonReflective)
	setFloat(&out.IntensityMin, l.IntensityMin)
	setFloat(&out.IntensityMax, l.IntensityMax)
	setBool(&out.WithNoise, l.WithNoise)
	setFloat(&out.PositionNoiseStdDev, l.PositionNoiseStdDev)
	setFloat(&out.IntensityNoiseStdDev, l.IntensityNoiseStdDev)
	setUint64(&out.NoiseSeed, l.NoiseSeed)
	if l.Dispatch != nil {
		out.Dispatch = lidar.Dispatch(*l.Dispatch)
	}
	setInt(&out.Workers, l.Workers)
	setBool(&out.ShowLidarRays, l.ShowLidarRays)
	setBool(&out.ShowLidarRayMisses, l.ShowLidarRayMisses)
	return out
}

// DriveConfig projects the drive section over drive.DefaultConfig.
func (c *SimConfig) DriveConfig() drive.Config {
	d := c.Drive
	out := drive.DefaultConfig()
	setFloat(&out.WheelRadius, d.WheelRadius)
	setFloat(&out.WheelSeparationHalf, d.WheelSeparationHalf)
	setFloat(&out.MaxForce, d.MaxForce)
	setBool(&out.WithNoise, d.WithNoise)
	setFloat(&out.PositionNoiseStdDev, d.PositionNoiseStdDev)
	setUint64(&out.NoiseSeed, d.NoiseSeed)
	setString(&out.FrameID, d.FrameID)
	setString(&out.ChildFrameID, d.ChildFrameID)
	return out
}
