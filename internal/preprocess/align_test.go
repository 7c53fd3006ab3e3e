package preprocess

import (
	"image"
	"math"
	"testing"
)

func TestEstimateRigid_Identity(t *testing.T) {
	pts := [][2]float64{{0, 0}, {100, 0}, {0, 100}, {100, 100}}

	fit, err := estimateRigid(pts, pts)
	if err != nil {
		t.Fatalf("estimateRigid failed: %v", err)
	}

	if math.Abs(fit.ThetaDeg) > 1e-6 || math.Abs(fit.Tx) > 1e-6 || math.Abs(fit.Ty) > 1e-6 {
		t.Errorf("identity fit: got theta=%v tx=%v ty=%v", fit.ThetaDeg, fit.Tx, fit.Ty)
	}
	if !fit.withinEnvelope() {
		t.Error("identity fit should be within envelope")
	}
}

func TestEstimateRigid_Translation(t *testing.T) {
	src := [][2]float64{{0, 0}, {100, 0}, {0, 100}, {100, 100}}
	dst := make([][2]float64, len(src))
	for i, p := range src {
		dst[i] = [2]float64{p[0] + 5, p[1] - 3}
	}

	fit, err := estimateRigid(src, dst)
	if err != nil {
		t.Fatalf("estimateRigid failed: %v", err)
	}

	if math.Abs(fit.Tx-5) > 1e-6 || math.Abs(fit.Ty+3) > 1e-6 {
		t.Errorf("translation: got tx=%v ty=%v, want 5,-3", fit.Tx, fit.Ty)
	}
	if math.Abs(fit.ThetaDeg) > 1e-6 {
		t.Errorf("rotation: got %v, want 0", fit.ThetaDeg)
	}
	if !fit.withinEnvelope() {
		t.Error("small translation should be within envelope")
	}
}

func TestEstimateRigid_Rotation(t *testing.T) {
	theta := 10.0 * math.Pi / 180
	src := [][2]float64{{0, 0}, {100, 0}, {0, 100}, {100, 100}}
	dst := make([][2]float64, len(src))
	for i, p := range src {
		dst[i] = [2]float64{
			p[0]*math.Cos(theta) - p[1]*math.Sin(theta),
			p[0]*math.Sin(theta) + p[1]*math.Cos(theta),
		}
	}

	fit, err := estimateRigid(src, dst)
	if err != nil {
		t.Fatalf("estimateRigid failed: %v", err)
	}

	if math.Abs(fit.ThetaDeg-10) > 0.01 {
		t.Errorf("rotation: got %v, want 10", fit.ThetaDeg)
	}
	// A 10 degree correction exceeds the envelope and must be rejected.
	if fit.withinEnvelope() {
		t.Error("10 degree rotation should be outside the envelope")
	}
}

func TestEstimateRigid_TooFewPoints(t *testing.T) {
	if _, err := estimateRigid([][2]float64{{0, 0}}, [][2]float64{{1, 1}}); err == nil {
		t.Error("expected error for a single correspondence")
	}
	if _, err := estimateRigid([][2]float64{{0, 0}, {1, 1}}, [][2]float64{{1, 1}}); err == nil {
		t.Error("expected error for mismatched point counts")
	}
}

func TestAutoAlign_RejectsLargeCorrection(t *testing.T) {
	img := whiteGray(100, 100)
	crop := image.Rect(0, 0, 100, 100)

	// Corner pose rotated far beyond the envelope.
	theta := 20.0 * math.Pi / 180
	var corners [4][2]float64
	ideal := [][2]float64{{0, 0}, {100, 0}, {0, 100}, {100, 100}}
	for i, p := range ideal {
		corners[i] = [2]float64{
			p[0]*math.Cos(theta) - p[1]*math.Sin(theta),
			p[0]*math.Sin(theta) + p[1]*math.Cos(theta),
		}
	}

	out, applied, reason := autoAlign(img, corners, crop)
	if applied {
		t.Error("large correction should be rejected")
	}
	if reason == "" {
		t.Error("rejection should carry a reason")
	}
	if out != img {
		t.Error("rejected correction must pass the image through unmodified")
	}
}

func TestAutoAlign_AcceptsCleanPose(t *testing.T) {
	img := whiteGray(100, 100)
	crop := image.Rect(0, 0, 100, 100)
	corners := [4][2]float64{{0, 0}, {100, 0}, {0, 100}, {100, 100}}

	out, applied, reason := autoAlign(img, corners, crop)
	if !applied {
		t.Errorf("clean pose should be accepted, got reason %q", reason)
	}
	if out.Bounds() != img.Bounds() {
		t.Errorf("bounds changed: %v", out.Bounds())
	}
}
