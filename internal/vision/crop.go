package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// CropCaptchaRegion cuts the region of a full login-page screenshot where
// the portal renders its CAPTCHA: 40-70% of the width, 50-60% of the height.
// It is the fallback when the CAPTCHA element itself cannot be captured.
func CropCaptchaRegion(screenshot []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	region := image.Rect(
		bounds.Min.X+w*40/100,
		bounds.Min.Y+h*50/100,
		bounds.Min.X+w*70/100,
		bounds.Min.Y+h*60/100,
	)

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	src, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("screenshot image type %T does not support cropping", img)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, src.SubImage(region)); err != nil {
		return nil, fmt.Errorf("failed to encode cropped region: %w", err)
	}
	return out.Bytes(), nil
}
