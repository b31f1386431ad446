package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renderPage draws a synthetic page with a red block where the portal
// renders its CAPTCHA, so the crop can be checked by color.
func renderPage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	captchaRegion := image.Rect(w*40/100, h*50/100, w*70/100, h*60/100)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if image.Pt(x, y).In(captchaRegion) {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCropCaptchaRegion(t *testing.T) {
	screenshot := renderPage(t, 1024, 768)

	cropped, err := CropCaptchaRegion(screenshot)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(cropped))
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 1024*30/100, bounds.Dx())
	assert.Equal(t, 768*10/100, bounds.Dy())

	// The center of the crop must be inside the red block.
	center := img.At(bounds.Min.X+bounds.Dx()/2, bounds.Min.Y+bounds.Dy()/2)
	r, g, b, _ := center.RGBA()
	assert.True(t, r > g && r > b, "crop center should land on the challenge region")
}

func TestCropCaptchaRegion_SmallViewport(t *testing.T) {
	screenshot := renderPage(t, 100, 80)

	cropped, err := CropCaptchaRegion(screenshot)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(cropped))
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestCropCaptchaRegion_RejectsNonPNG(t *testing.T) {
	_, err := CropCaptchaRegion([]byte("definitely not a png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
