package omr

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/scansheet/omr-decoder/internal/classify"
	"github.com/scansheet/omr-decoder/internal/config"
	"github.com/scansheet/omr-decoder/internal/consistency"
	"github.com/scansheet/omr-decoder/internal/decode"
	"github.com/scansheet/omr-decoder/internal/preprocess"
	"github.com/scansheet/omr-decoder/internal/template"
)

// Engine runs the decoding pipeline against one resolved template and
// config. Construct with NewEngine; never mutate afterwards.
type Engine struct {
	tpl    *template.Template
	cfg    config.Config
	marker image.Image
	log    *slog.Logger
}

// EngineOptions carries the optional engine inputs.
type EngineOptions struct {
	// MarkerData is the raw marker reference image, required when the
	// template declares the CropOnMarkers preprocessor.
	MarkerData []byte

	// Logger receives pipeline diagnostics; nil disables logging.
	Logger *slog.Logger
}

// NewEngine builds an engine around an already-resolved template and
// validated config. The marker image, if supplied, is decoded once here.
func NewEngine(tpl *template.Template, cfg config.Config, opts EngineOptions) (*Engine, error) {
	if tpl == nil {
		return nil, fmt.Errorf("engine: template is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{tpl: tpl, cfg: cfg, log: opts.Logger}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if len(opts.MarkerData) > 0 {
		marker, err := preprocess.DecodeGray(opts.MarkerData)
		if err != nil {
			return nil, fmt.Errorf("marker image: %w", err)
		}
		e.marker = marker
	}

	return e, nil
}

// Template returns the engine's resolved template.
func (e *Engine) Template() *template.Template { return e.tpl }

// ProcessOptions selects per-run behaviors.
type ProcessOptions struct {
	// AutoAlign enables the bounded geometric correction after marker
	// cropping.
	AutoAlign bool

	// IncludeImage requests the annotated overlay in the output.
	IncludeImage bool
}

// Output is everything one pipeline run produces.
type Output struct {
	// Result is the decoded answer map and metadata.
	Result *decode.Result `json:"result"`

	// Overlay is the annotated sheet; nil unless requested.
	Overlay *decode.OverlayResult `json:"overlay,omitempty"`

	// Warnings lists preprocessing fallbacks (marker not found,
	// auto-align rejected). A non-empty list is not a failure.
	Warnings []string `json:"warnings,omitempty"`
}

// Process runs the full pipeline on one image.
func (e *Engine) Process(raw []byte, opts ProcessOptions) (*Output, error) {
	start := time.Now()

	aligned, err := preprocess.Apply(raw, e.tpl, e.cfg, preprocess.Options{
		AutoAlign: opts.AutoAlign,
		Marker:    e.marker,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range aligned.Warnings {
		e.log.Warn("preprocess fallback", "stage", w.Stage, "detail", w.Detail)
	}

	fields := classify.Classify(aligned.Image, e.tpl, e.cfg)
	result := decode.Decode(fields, e.tpl, time.Since(start))

	out := &Output{Result: result, Warnings: aligned.WarningStrings()}
	if opts.IncludeImage {
		overlay, err := decode.Overlay(aligned.Image, fields)
		if err != nil {
			return nil, fmt.Errorf("overlay: %w", err)
		}
		out.Overlay = overlay
	}

	e.log.Debug("image processed",
		"fields", len(fields),
		"multi_marked", result.MultiMarkedCount,
		"elapsed", result.Elapsed,
	)
	return out, nil
}

// Repeat runs the pipeline `runs` times sequentially on the identical
// input and reports per-question determinism. The run count must lie in
// [consistency.MinRuns, consistency.MaxRuns].
func (e *Engine) Repeat(ctx context.Context, raw []byte, opts ProcessOptions, runs int) (*consistency.Report, error) {
	// The overlay is irrelevant to the agreement analysis; skip the
	// rendering cost on every run.
	opts.IncludeImage = false

	return consistency.Analyze(ctx, func(run int) (*decode.Result, error) {
		out, err := e.Process(raw, opts)
		if err != nil {
			e.log.Warn("repeat run failed", "run", run, "error", err)
			return nil, err
		}
		return out.Result, nil
	}, runs)
}
