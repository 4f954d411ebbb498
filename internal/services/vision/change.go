package vision

import (
	"fmt"
	"image"
	"image/color"

	"snapdedup/internal/services/dedup"

	"gocv.io/x/gocv"
)

const (
	// DiffThreshold is the per-pixel intensity change that counts as a difference.
	DiffThreshold = 45
	// DilateIterations widens changed regions so nearby changes merge into one contour.
	DilateIterations = 2
)

// Mask blacks out frame borders, in percent of the frame size. Camera overlays
// such as timestamps live there and would otherwise count as change.
type Mask struct {
	Left, Top, Right, Bottom int
}

var DefaultMask = Mask{Left: 5, Top: 10, Right: 5, Bottom: 0}

func (m Mask) rects(width, height int) []image.Rectangle {
	xMin := m.Left * width / 100
	xMax := width - m.Right*width/100
	yMin := m.Top * height / 100
	yMax := height - m.Bottom*height/100

	var rects []image.Rectangle
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, xMin, height),
		image.Rect(0, 0, width, yMin),
		image.Rect(xMax, 0, width, height),
		image.Rect(0, yMax, width, height),
	} {
		if !r.Empty() {
			rects = append(rects, r)
		}
	}
	return rects
}

// Preprocess converts frame to grayscale, applies the configured Gaussian blurs in
// order and blacks out the mask area.
func (s *Service) Preprocess(frame dedup.Frame) (dedup.Representation, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	if err := gocv.CvtColor(f.mat, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return nil, fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	for _, radius := range s.blurRadii {
		if err := gocv.GaussianBlur(gray, &gray, image.Pt(radius, radius), 0, 0, gocv.BorderDefault); err != nil {
			gray.Close()
			return nil, fmt.Errorf("failed to blur with radius %d: %w", radius, err)
		}
	}

	for _, rect := range s.mask.rects(gray.Cols(), gray.Rows()) {
		if err := gocv.Rectangle(&gray, rect, color.RGBA{}, -1); err != nil {
			gray.Close()
			return nil, fmt.Errorf("failed to draw mask: %w", err)
		}
	}

	return &Representation{mat: gray}, nil
}

// Compare returns the total area of the changed regions between two representations
// of the same size. Regions smaller than the minimum contour area are ignored.
func (s *Service) Compare(a, b dedup.Representation) (float64, error) {
	ra, err := asRepresentation(a)
	if err != nil {
		return 0, err
	}
	rb, err := asRepresentation(b)
	if err != nil {
		return 0, err
	}
	if ra.mat.Rows() != rb.mat.Rows() || ra.mat.Cols() != rb.mat.Cols() {
		return 0, fmt.Errorf("cannot compare %dx%d with %dx%d", ra.mat.Cols(), ra.mat.Rows(), rb.mat.Cols(), rb.mat.Rows())
	}

	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(ra.mat, rb.mat, &diff); err != nil {
		return 0, fmt.Errorf("failed to compute absolute difference: %w", err)
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	for i := 0; i < DilateIterations; i++ {
		if err := gocv.Dilate(thresh, &thresh, kernel); err != nil {
			return 0, fmt.Errorf("failed to dilate: %w", err)
		}
	}

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	score := 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area < float64(s.minContourArea) {
			continue
		}
		score += area
	}
	return score, nil
}
