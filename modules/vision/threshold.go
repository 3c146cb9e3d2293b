package vision

import (
	"image"
	"image/draw"
)

// ThresholdParams controls Binarize
type ThresholdParams struct {
	Blur      int // box blur size, odd
	BlockSize int // adaptive neighbourhood, odd and at least 3
	Offset    int // subtracted from the local mean
	Closing   int // morphological closing passes
}

// DefaultThresholdParams returns the settings a new binarize module starts with
func DefaultThresholdParams() ThresholdParams {
	return ThresholdParams{Blur: 3, BlockSize: 25, Offset: 15, Closing: 0}
}

// Normalize clamps the parameters and rounds even sizes up to the next odd
// value.
func (p ThresholdParams) Normalize() ThresholdParams {
	p.Blur = oddAtLeast(p.Blur, 1)
	p.BlockSize = oddAtLeast(p.BlockSize, 3)
	p.Offset = max(p.Offset, 0)
	p.Closing = max(p.Closing, 0)
	return p
}

func oddAtLeast(v, floor int) int {
	v = max(v, floor)
	if v%2 == 0 {
		v++
	}
	return v
}

// ToGray converts img to 8-bit grayscale. A *image.Gray is copied.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Binarize marks dark detail: a pixel is 255 when it is not brighter than
// the mean of its BlockSize neighbourhood minus Offset, and 0 otherwise.
func Binarize(img image.Image, p ThresholdParams) *image.Gray {
	p = p.Normalize()
	gray := ToGray(img)
	if p.Blur > 1 {
		gray = boxBlur(gray, p.Blur/2)
	}

	sums := newIntegral(gray)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	r := p.BlockSize / 2
	mask := image.NewGray(gray.Rect)
	for y := range h {
		for x := range w {
			mean := sums.mean(x-r, y-r, x+r, y+r)
			if int(gray.Pix[y*gray.Stride+x]) <= mean-p.Offset {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}

	for range p.Closing {
		mask = erode(dilate(mask))
	}
	return mask
}

type integral struct {
	w, h int
	sum  []int
}

func newIntegral(g *image.Gray) integral {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	in := integral{w: w, h: h, sum: make([]int, (w+1)*(h+1))}
	for y := range h {
		row := 0
		for x := range w {
			row += int(g.Pix[y*g.Stride+x])
			in.sum[(y+1)*(w+1)+x+1] = in.sum[y*(w+1)+x+1] + row
		}
	}
	return in
}

// mean averages the inclusive rectangle, clipped to the image
func (in integral) mean(x0, y0, x1, y1 int) int {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, in.w-1), min(y1, in.h-1)
	stride := in.w + 1
	total := in.sum[(y1+1)*stride+x1+1] - in.sum[y0*stride+x1+1] - in.sum[(y1+1)*stride+x0] + in.sum[y0*stride+x0]
	return total / ((x1 - x0 + 1) * (y1 - y0 + 1))
}

func boxBlur(g *image.Gray, r int) *image.Gray {
	sums := newIntegral(g)
	out := image.NewGray(g.Rect)
	for y := range sums.h {
		for x := range sums.w {
			out.Pix[y*out.Stride+x] = uint8(sums.mean(x-r, y-r, x+r, y+r))
		}
	}
	return out
}

// morph applies a 3x3 max (dilate) or min (erode) filter
func morph(g *image.Gray, keep func(a, b uint8) uint8) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(g.Rect)
	for y := range h {
		for x := range w {
			v := g.Pix[y*g.Stride+x]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					v = keep(v, g.Pix[ny*g.Stride+nx])
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

func dilate(g *image.Gray) *image.Gray {
	return morph(g, func(a, b uint8) uint8 { return max(a, b) })
}

func erode(g *image.Gray) *image.Gray {
	return morph(g, func(a, b uint8) uint8 { return min(a, b) })
}
