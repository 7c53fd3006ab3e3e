package config

import (
	"encoding/json"
	"fmt"
)

// Dimensions are the working dimensions images are normalized to before any
// template-relative processing.
type Dimensions struct {
	ProcessingWidth  int `json:"processing_width"`
	ProcessingHeight int `json:"processing_height"`
}

// ThresholdParams tune the mark classifier.
//
// MinJump is the minimum darkness gap, walking a field's bubbles sorted by
// darkness, that separates unmarked from marked. The global thresholds are
// absolute intensity cutoffs (0 = black, 255 = white) bounding the relative
// method: a bubble lighter than GlobalThresholdWhite is never marked, one
// darker than GlobalThresholdBlack is never unmarked.
type ThresholdParams struct {
	MinJump              float64 `json:"MIN_JUMP"`
	GlobalThresholdWhite float64 `json:"GLOBAL_THRESHOLD_WHITE"`
	GlobalThresholdBlack float64 `json:"GLOBAL_THRESHOLD_BLACK"`
}

// Outputs controls diagnostic verbosity. Level 0 is silent; higher levels
// enable progressively chattier debug logging in the pipeline.
type Outputs struct {
	ShowImageLevel int `json:"show_image_level"`
}

// Config is the full processing configuration. Construct with Default or
// Parse; never mutate after the pipeline has been built around it.
type Config struct {
	Dimensions      Dimensions      `json:"dimensions"`
	ThresholdParams ThresholdParams `json:"threshold_params"`
	Outputs         Outputs         `json:"outputs"`
}

// Default returns the stock configuration: A4-at-150dpi working dimensions
// and the classic threshold defaults.
func Default() Config {
	return Config{
		Dimensions: Dimensions{
			ProcessingWidth:  1240,
			ProcessingHeight: 1754,
		},
		ThresholdParams: ThresholdParams{
			MinJump:              10,
			GlobalThresholdWhite: 200,
			GlobalThresholdBlack: 100,
		},
		Outputs: Outputs{ShowImageLevel: 0},
	}
}

// Parse overlays a JSON config document on the defaults. A nil or empty
// document yields Default unchanged. The result is validated.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config JSON: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot work
// with.
func (c Config) Validate() error {
	if c.Dimensions.ProcessingWidth <= 0 || c.Dimensions.ProcessingHeight <= 0 {
		return fmt.Errorf("config: processing dimensions must be positive, got %dx%d",
			c.Dimensions.ProcessingWidth, c.Dimensions.ProcessingHeight)
	}
	tp := c.ThresholdParams
	if tp.MinJump <= 0 {
		return fmt.Errorf("config: MIN_JUMP must be positive, got %v", tp.MinJump)
	}
	if tp.GlobalThresholdBlack < 0 || tp.GlobalThresholdWhite > 255 {
		return fmt.Errorf("config: global thresholds must lie in [0, 255], got black=%v white=%v",
			tp.GlobalThresholdBlack, tp.GlobalThresholdWhite)
	}
	if tp.GlobalThresholdBlack > tp.GlobalThresholdWhite {
		return fmt.Errorf("config: GLOBAL_THRESHOLD_BLACK (%v) must not exceed GLOBAL_THRESHOLD_WHITE (%v)",
			tp.GlobalThresholdBlack, tp.GlobalThresholdWhite)
	}
	return nil
}
