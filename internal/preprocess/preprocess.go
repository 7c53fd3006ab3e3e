package preprocess

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/scansheet/omr-decoder/internal/config"
	"github.com/scansheet/omr-decoder/internal/template"
)

// CropOnMarkers is the preprocessor name that enables marker-based
// cropping, matching the template vocabulary.
const CropOnMarkers = "CropOnMarkers"

// AlignmentWarning is a recoverable geometric-estimation problem. It rides
// on the Aligned result rather than failing the pipeline: the image is
// still processed, with fallback framing.
type AlignmentWarning struct {
	// Stage names the estimation that degraded: "marker" or "auto-align".
	Stage string `json:"stage"`

	// Detail is a human-readable description.
	Detail string `json:"detail"`
}

func (w AlignmentWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Stage, w.Detail)
}

// Options selects the optional preprocessing behaviors for one run.
type Options struct {
	// AutoAlign enables the bounded rotation correction after cropping.
	AutoAlign bool

	// Marker is the decoded marker reference image; required when the
	// template declares CropOnMarkers.
	Marker image.Image
}

// Aligned is the preprocessed image, normalized to the template's page
// dimensions.
type Aligned struct {
	// Image is grayscale, exactly PageWidth x PageHeight.
	Image *image.Gray

	// SourceWidth, SourceHeight are the dimensions of the raw input.
	SourceWidth  int
	SourceHeight int

	// Warnings lists the estimation fallbacks taken, empty on a clean run.
	Warnings []AlignmentWarning
}

// Apply runs the full preprocessing stage on raw image bytes.
//
// The image is decoded to grayscale, rescaled to the configured working
// dimensions, cropped on markers when the template asks for it and the
// localization is confident, optionally auto-aligned within the correction
// envelope, and finally rescaled to the template page dimensions.
//
// The only error returned is ImageDecodeError; every geometric problem
// degrades to a warning on the result.
func Apply(raw []byte, tpl *template.Template, cfg config.Config, opts Options) (*Aligned, error) {
	src, err := DecodeGray(raw)
	if err != nil {
		return nil, err
	}

	out := &Aligned{
		SourceWidth:  src.Bounds().Dx(),
		SourceHeight: src.Bounds().Dy(),
	}

	working := resizeGray(src, cfg.Dimensions.ProcessingWidth, cfg.Dimensions.ProcessingHeight)

	current := working
	cropApplied := false

	if pp := tpl.PreProcessor(CropOnMarkers); pp != nil {
		switch {
		case opts.Marker == nil:
			out.warn("marker", "CropOnMarkers configured but no marker image supplied; using full-image rescale")
		default:
			mOpts := markerOptionsFrom(pp)
			located := locateMarkers(working, opts.Marker, mOpts)
			if located.Confidence < mOpts.minMatchingThreshold {
				out.warn("marker", fmt.Sprintf(
					"marker confidence %.3f below threshold %.3f; using full-image rescale",
					located.Confidence, mOpts.minMatchingThreshold))
			} else if located.Crop.Dx() < 2 || located.Crop.Dy() < 2 {
				out.warn("marker", "degenerate marker crop region; using full-image rescale")
			} else {
				current = toGray(imaging.Crop(working, located.Crop))
				cropApplied = true

				if opts.AutoAlign {
					aligned, applied, reason := autoAlign(current, located.Corners, located.Crop)
					if applied {
						current = aligned
					} else {
						out.warn("auto-align", reason)
					}
				}
			}
		}
	}

	if opts.AutoAlign && !cropApplied {
		out.warn("auto-align", "requires marker localization; skipped")
	}

	out.Image = resizeGray(current, tpl.PageWidth, tpl.PageHeight)
	return out, nil
}

func (a *Aligned) warn(stage, detail string) {
	a.Warnings = append(a.Warnings, AlignmentWarning{Stage: stage, Detail: detail})
}

// WarningStrings renders the warnings for transport layers that carry
// plain strings.
func (a *Aligned) WarningStrings() []string {
	if len(a.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(a.Warnings))
	for i, w := range a.Warnings {
		out[i] = w.String()
	}
	return out
}
