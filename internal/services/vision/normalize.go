package vision

import (
	"fmt"
	"image"

	"snapdedup/internal/model"
	"snapdedup/internal/services/dedup"

	"gocv.io/x/gocv"
)

// Interpolation is used for every resize so that scores are reproducible.
const Interpolation = gocv.InterpolationLinear

// Resize returns src unchanged (ok == false) when it already has the target size,
// otherwise a new resized matrix.
func Resize(src gocv.Mat, target model.Size) (gocv.Mat, bool, error) {
	if src.Cols() == target.Width && src.Rows() == target.Height {
		return src, false, nil
	}

	dst := gocv.NewMat()
	if err := gocv.Resize(src, &dst, image.Pt(target.Width, target.Height), 0, 0, Interpolation); err != nil {
		dst.Close()
		return gocv.Mat{}, false, fmt.Errorf("failed to resize to %s: %w", target, err)
	}
	return dst, true, nil
}

// Equalize equalizes the histogram of the luma channel of a BGR image and
// returns the result as a new BGR matrix.
func Equalize(src gocv.Mat) (gocv.Mat, error) {
	ycrcb := gocv.NewMat()
	defer ycrcb.Close()
	if err := gocv.CvtColor(src, &ycrcb, gocv.ColorBGRToYCrCb); err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image to YCrCb: %w", err)
	}

	channels := gocv.Split(ycrcb)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	if err := gocv.EqualizeHist(channels[0], &channels[0]); err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to equalize luma: %w", err)
	}
	if err := gocv.Merge(channels, &ycrcb); err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to merge channels: %w", err)
	}

	dst := gocv.NewMat()
	if err := gocv.CvtColor(ycrcb, &dst, gocv.ColorYCrCbToBGR); err != nil {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("failed to convert image to BGR: %w", err)
	}
	return dst, nil
}

// Normalize resizes frame to target and equalizes it when enabled. When neither
// step applies, frame itself is returned.
func (s *Service) Normalize(frame dedup.Frame, target model.Size) (dedup.Frame, error) {
	f, err := asFrame(frame)
	if err != nil {
		return nil, err
	}

	resized, created, err := Resize(f.mat, target)
	if err != nil {
		return nil, err
	}
	if !s.equalize {
		if !created {
			return frame, nil
		}
		return NewFrame(resized), nil
	}

	equalized, err := Equalize(resized)
	if created {
		resized.Close()
	}
	if err != nil {
		return nil, err
	}
	return NewFrame(equalized), nil
}
