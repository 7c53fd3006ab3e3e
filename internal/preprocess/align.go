package preprocess

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"gonum.org/v1/gonum/mat"
)

// Auto-alignment correction envelope. Estimates beyond these bounds are
// treated as estimation failures and rejected rather than applied.
const (
	maxAlignAngleDeg = 2.5
	maxAlignShiftPx  = 15.0
)

// rigid is a rotation-plus-translation estimate mapping observed points
// onto their expected pose.
type rigid struct {
	ThetaDeg float64
	Tx, Ty   float64
}

// withinEnvelope reports whether the correction is small enough to trust.
func (r rigid) withinEnvelope() bool {
	return math.Abs(r.ThetaDeg) <= maxAlignAngleDeg &&
		math.Abs(r.Tx) <= maxAlignShiftPx &&
		math.Abs(r.Ty) <= maxAlignShiftPx
}

// estimateRigid solves, in the least-squares sense, for the rotation and
// translation carrying src onto dst:
//
//	x' = c*x - s*y + tx
//	y' = s*x + c*y + ty
//
// Each correspondence contributes two rows to the linear system in
// (c, s, tx, ty); the rotation angle is atan2(s, c). At least two
// correspondences are required.
func estimateRigid(src, dst [][2]float64) (rigid, error) {
	if len(src) != len(dst) || len(src) < 2 {
		return rigid{}, fmt.Errorf("need at least 2 point pairs, got %d/%d", len(src), len(dst))
	}

	n := len(src)
	a := mat.NewDense(2*n, 4, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		x, y := src[i][0], src[i][1]
		a.SetRow(2*i, []float64{x, -y, 1, 0})
		a.SetRow(2*i+1, []float64{y, x, 0, 1})
		b.SetVec(2*i, dst[i][0])
		b.SetVec(2*i+1, dst[i][1])
	}

	var qr mat.QR
	qr.Factorize(a)

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return rigid{}, fmt.Errorf("rigid fit: %w", err)
	}

	c, s := x.AtVec(0), x.AtVec(1)
	return rigid{
		ThetaDeg: math.Atan2(s, c) * 180 / math.Pi,
		Tx:       x.AtVec(2),
		Ty:       x.AtVec(3),
	}, nil
}

// autoAlign estimates the residual rotation of the cropped sheet from the
// marker-corner correspondences and applies it when the correction lies
// within the envelope.
//
// corners are the located marker centers (TL, TR, BL, BR) in pre-crop
// coordinates; the expected pose puts them exactly at the corners of the
// crop rectangle. Returns the possibly corrected image, whether a
// correction was applied, and a human-readable reason when it was not.
func autoAlign(cropped *image.Gray, corners [4][2]float64, crop image.Rectangle) (*image.Gray, bool, string) {
	w := float64(crop.Dx())
	h := float64(crop.Dy())

	src := make([][2]float64, 4)
	for i, c := range corners {
		src[i] = [2]float64{c[0] - float64(crop.Min.X), c[1] - float64(crop.Min.Y)}
	}
	dst := [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}}

	fit, err := estimateRigid(src, dst)
	if err != nil {
		return cropped, false, fmt.Sprintf("pose estimation failed: %v", err)
	}
	if !fit.withinEnvelope() {
		return cropped, false, fmt.Sprintf(
			"estimated correction out of bounds (angle %.2f°, shift %.1f,%.1f px)",
			fit.ThetaDeg, fit.Tx, fit.Ty)
	}

	// Sub-tenth-degree rotations are below the resampling noise floor;
	// skip the warp but count the alignment as done.
	if math.Abs(fit.ThetaDeg) < 0.1 {
		return cropped, true, ""
	}

	rotated := transform.Rotate(cropped, fit.ThetaDeg, &transform.RotationOptions{ResizeBounds: false})
	return toGray(rotated), true, ""
}
