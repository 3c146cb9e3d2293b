package testutil

import (
	"image"
	"image/color"
)

// Gradient returns a w x h gray image whose value rises left to right from 0
// to 255.
func Gradient(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 0
			if w > 1 {
				v = x * 255 / (w - 1)
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

// Solid returns a w x h RGBA image filled with c
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// Checker returns a w x h gray image of size x size squares alternating
// between 0 and 255, starting dark at the origin.
func Checker(w, h, size int) *image.Gray {
	if size < 1 {
		size = 1
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/size+y/size)%2 == 1 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// TestTexts contains plain text payload values
var TestTexts = []string{
	"hello",
	"Hello world",
	"",
	"multi\nline",
}

// TestCommands contains command dictionaries as sent by a command sender
var TestCommands = []map[string]any{
	{"cmd": "set_voltage", "value": 3.3},
	{"cmd": "output", "enabled": true},
	{"cmd": "ping"},
}
