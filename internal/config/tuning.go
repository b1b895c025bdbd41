package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/trackfit/internal/fit/l3retina"
	"github.com/banshee-data/trackfit/internal/fit/l4tracks"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/trackfit.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ViewTuning overrides the grid of one fit view. Unset fields keep the
// built-in operating point of that view.
type ViewTuning struct {
	PBins        *int     `json:"pbins,omitempty" yaml:"pbins,omitempty"`
	QBins        *int     `json:"qbins,omitempty" yaml:"qbins,omitempty"`
	PMin         *float64 `json:"pmin,omitempty" yaml:"pmin,omitempty"`
	PMax         *float64 `json:"pmax,omitempty" yaml:"pmax,omitempty"`
	QMin         *float64 `json:"qmin,omitempty" yaml:"qmin,omitempty"`
	QMax         *float64 `json:"qmax,omitempty" yaml:"qmax,omitempty"`
	Sigma        *float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`
	MinWeight    *float64 `json:"min_weight,omitempty" yaml:"min_weight,omitempty"`
	UseHitErrors *bool    `json:"use_hit_errors,omitempty" yaml:"use_hit_errors,omitempty"`
}

// apply returns base with the set fields of v replaced. A nil v returns
// base unchanged.
func (v *ViewTuning) apply(base l3retina.Config) l3retina.Config {
	if v == nil {
		return base
	}
	setInt(&base.PBins, v.PBins)
	setInt(&base.QBins, v.QBins)
	setFloat(&base.PMin, v.PMin)
	setFloat(&base.PMax, v.PMax)
	setFloat(&base.QMin, v.QMin)
	setFloat(&base.QMax, v.QMax)
	setFloat(&base.Sigma, v.Sigma)
	setFloat(&base.MinWeight, v.MinWeight)
	if v.UseHitErrors != nil {
		base.UseHitErrors = *v.UseHitErrors
	}
	return base
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// TuningConfig is the root fitter configuration. The hypothesis of each view
// is fixed by its position (zr or uv) and cannot be overridden.
type TuningConfig struct {
	ZR *ViewTuning `json:"zr,omitempty" yaml:"zr,omitempty"`
	UV *ViewTuning `json:"uv,omitempty" yaml:"uv,omitempty"`

	BField            *float64 `json:"b_field,omitempty" yaml:"b_field,omitempty"` // Tesla
	MaxTracksPerRoad  *int     `json:"max_tracks_per_road,omitempty" yaml:"max_tracks_per_road,omitempty"`
	MaxTracksPerEvent *int     `json:"max_tracks_per_event,omitempty" yaml:"max_tracks_per_event,omitempty"`

	// Runner params
	Workers       *int `json:"workers,omitempty" yaml:"workers,omitempty"`
	ProgressEvery *int `json:"progress_every,omitempty" yaml:"progress_every,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a .json, .yaml or .yml file.
// Fields omitted from the file fall back to the Get* defaults, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/fit/*/
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the runner params and the resulting fitter configuration.
// Fitter errors wrap l3retina.ErrConfigInvalid.
func (c *TuningConfig) Validate() error {
	if c.MaxTracksPerEvent != nil && *c.MaxTracksPerEvent < 0 {
		return fmt.Errorf("max_tracks_per_event must be non-negative, got %d", *c.MaxTracksPerEvent)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must be non-negative, got %d", *c.ProgressEvery)
	}
	return c.FitConfig().Validate()
}

// FitConfig resolves the fitter configuration. Callers validate it, or go
// through l4tracks.NewFitter which does.
func (c *TuningConfig) FitConfig() l4tracks.Config {
	return l4tracks.Config{
		ZR:               c.GetZR(),
		UV:               c.GetUV(),
		BField:           c.GetBField(),
		MaxTracksPerRoad: c.GetMaxTracksPerRoad(),
	}
}

// GetZR returns the R-Z grid configuration.
func (c *TuningConfig) GetZR() l3retina.Config {
	return c.ZR.apply(l3retina.DefaultZRConfig())
}

// GetUV returns the conformal-view grid configuration.
func (c *TuningConfig) GetUV() l3retina.Config {
	return c.UV.apply(l3retina.DefaultUVConfig())
}

// GetBField returns the solenoid field in Tesla or the default.
func (c *TuningConfig) GetBField() float64 {
	if c.BField == nil {
		return l4tracks.DefaultConfig().BField
	}
	return *c.BField
}

// GetMaxTracksPerRoad returns the max_tracks_per_road value or the default.
func (c *TuningConfig) GetMaxTracksPerRoad() int {
	if c.MaxTracksPerRoad == nil {
		return l4tracks.DefaultConfig().MaxTracksPerRoad
	}
	return *c.MaxTracksPerRoad
}

// GetMaxTracksPerEvent returns the max_tracks_per_event value or the
// default, 0 (unlimited).
func (c *TuningConfig) GetMaxTracksPerEvent() int {
	if c.MaxTracksPerEvent == nil {
		return 0
	}
	return *c.MaxTracksPerEvent
}

// GetWorkers returns the worker count or 0, meaning one per CPU.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetProgressEvery returns the progress interval or the default.
func (c *TuningConfig) GetProgressEvery() int {
	if c.ProgressEvery == nil {
		return 5000
	}
	return *c.ProgressEvery
}
