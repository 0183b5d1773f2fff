//go:build gocv

package images

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func init() {
	resamplers[ResamplerGoCV] = func() Resampler { return gocvResampler{} }
}

// gocvResampler hands the raster to OpenCV. Only built with -tags gocv since it
// needs the OpenCV shared libraries.
type gocvResampler struct{}

func (gocvResampler) Name() ResamplerName { return ResamplerGoCV }

// Resample interpolates premultiplied RGBA so transparent pixels carry no
// colour weight. OpenCV treats the four channels independently.
func (gocvResampler) Resample(src *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if err := validateTarget(src, width, height); err != nil {
		return nil, err
	}

	premul := toRGBA(src)
	mat, err := gocv.NewMatFromBytes(premul.Rect.Dy(), premul.Rect.Dx(), gocv.MatTypeCV8UC4, premul.Pix)
	if err != nil {
		return nil, errors.Wrap(err, "convert raster to mat")
	}
	defer mat.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.Resize(mat, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationLanczos4)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	if n := copy(out.Pix, dst.ToBytes()); n != len(out.Pix) {
		return nil, errors.Errorf("opencv returned %d bytes, want %d", n, len(out.Pix))
	}
	clampToAlpha(out)

	return imaging.Clone(out), nil
}

// toRGBA draws src into a fresh premultiplied RGBA anchored at the origin.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
