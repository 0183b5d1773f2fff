package images

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ToNRGBA returns a 4-channel straight-alpha copy of img anchored at the
// origin. Sources without an alpha channel come out fully opaque, and faint
// pixels keep their colour since nothing is premultiplied. The result never
// aliases the source pixels.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// HasAlpha reports whether a colour model can carry transparency.
func HasAlpha(m color.Model) bool {
	switch m {
	case color.GrayModel, color.Gray16Model, color.YCbCrModel, color.CMYKModel:
		return false
	}
	return true
}

// IsOpaque reports whether every pixel of img has full alpha.
func IsOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
