package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/testutil"
)

func darkSquare() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := range 40 {
		for x := range 40 {
			v := uint8(200)
			if x >= 17 && x < 23 && y >= 17 && y < 23 {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestThresholdParams_Normalize(t *testing.T) {
	got := ThresholdParams{Blur: 4, BlockSize: 1, Offset: -2, Closing: -1}.Normalize()
	assert.Equal(t, ThresholdParams{Blur: 5, BlockSize: 3, Offset: 0, Closing: 0}, got)

	assert.Equal(t, DefaultThresholdParams(), DefaultThresholdParams().Normalize())
}

func TestBinarize_MarksDarkDetail(t *testing.T) {
	mask := Binarize(darkSquare(), DefaultThresholdParams())
	require.Equal(t, image.Rect(0, 0, 40, 40), mask.Bounds())

	assert.Equal(t, uint8(255), mask.GrayAt(20, 20).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(0), mask.GrayAt(37, 5).Y)

	for _, v := range mask.Pix {
		assert.Contains(t, []uint8{0, 255}, v)
	}
}

func TestBinarize_UniformImageIsEmpty(t *testing.T) {
	mask := Binarize(testutil.Solid(16, 16, color.RGBA{R: 90, G: 90, B: 90, A: 255}), DefaultThresholdParams())
	for _, v := range mask.Pix {
		require.Equal(t, uint8(0), v)
	}
}

func TestToGray_OffsetBounds(t *testing.T) {
	src := testutil.Gradient(10, 4).SubImage(image.Rect(5, 1, 10, 4))
	gray := ToGray(src)
	assert.Equal(t, image.Rect(0, 0, 5, 3), gray.Bounds())
	assert.Equal(t, testutil.Gradient(10, 4).GrayAt(5, 1), gray.GrayAt(0, 0))
}

func TestClosing_FillsPinhole(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := range mask.Pix {
		mask.Pix[i] = 255
	}
	mask.SetGray(2, 2, color.Gray{Y: 0})

	closed := erode(dilate(mask))
	assert.Equal(t, uint8(255), closed.GrayAt(2, 2).Y)

	opened := erode(mask)
	assert.Equal(t, uint8(0), opened.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(255), opened.GrayAt(4, 0).Y)
}
