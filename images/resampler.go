package images

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// ResamplerName identifies a resampling backend.
type ResamplerName string

// Resampling backends. The kernel backends share the built-in separable
// resampler; the rest hand the raster to a third-party library.
const (
	// ResamplerLanczos is the built-in separable Lanczos (a=3) kernel.
	ResamplerLanczos ResamplerName = "lanczos"
	// ResamplerMitchell is the built-in Mitchell-Netravali (B=C=1/3) kernel.
	ResamplerMitchell ResamplerName = "mitchell"
	// ResamplerBicubic is the built-in Catmull-Rom style bicubic kernel.
	ResamplerBicubic ResamplerName = "bicubic"
	// ResamplerBilinear is the built-in triangle kernel.
	ResamplerBilinear ResamplerName = "bilinear"
	// ResamplerNearest copies the nearest source pixel.
	ResamplerNearest ResamplerName = "nearest"
	// ResamplerNFNT uses github.com/nfnt/resize with Lanczos3.
	ResamplerNFNT ResamplerName = "nfnt"
	// ResamplerImaging uses github.com/disintegration/imaging with Lanczos.
	ResamplerImaging ResamplerName = "imaging"
	// ResamplerCatmullRom uses golang.org/x/image/draw with Catmull-Rom.
	ResamplerCatmullRom ResamplerName = "catmullrom"
	// ResamplerGoCV uses OpenCV's INTER_LANCZOS4 (requires the gocv build tag).
	ResamplerGoCV ResamplerName = "gocv"
)

// DefaultResampler is used when no backend is configured.
const DefaultResampler = ResamplerLanczos

// ErrEmptySource is returned when asked to resample a zero-area raster.
var ErrEmptySource = errors.New("source image has zero width or height")

// Resampler produces a resized copy of a normalized raster. Implementations
// must not modify src and must be deterministic.
type Resampler interface {
	// Name returns the backend identifier.
	Name() ResamplerName
	// Resample returns a new width x height raster derived from src.
	Resample(src *image.NRGBA, width, height int) (*image.NRGBA, error)
}

// resamplers holds the constructors of every backend compiled into the binary.
var resamplers = map[ResamplerName]func() Resampler{
	ResamplerLanczos:    func() Resampler { return KernelResampler{Filter: LanczosFilter} },
	ResamplerMitchell:   func() Resampler { return KernelResampler{Filter: MitchellNetravaliFilter} },
	ResamplerBicubic:    func() Resampler { return KernelResampler{Filter: BicubicFilter} },
	ResamplerBilinear:   func() Resampler { return KernelResampler{Filter: BilinearFilter} },
	ResamplerNearest:    func() Resampler { return KernelResampler{Filter: NearestNeighborFilter} },
	ResamplerNFNT:       func() Resampler { return nfntResampler{} },
	ResamplerImaging:    func() Resampler { return imagingResampler{} },
	ResamplerCatmullRom: func() Resampler { return catmullRomResampler{} },
}

// NewResampler returns the backend registered under name. An empty name
// selects DefaultResampler.
//
// Arguments:
// - name: The backend identifier.
//
// Returns:
// - The backend.
// - An error if no backend with that name is compiled in.
func NewResampler(name ResamplerName) (Resampler, error) {
	if name == "" {
		name = DefaultResampler
	}
	ctor, ok := resamplers[name]
	if !ok {
		return nil, errors.Errorf("unknown resampler %q (available: %v)", name, AvailableResamplers())
	}
	return ctor(), nil
}

// AvailableResamplers lists the compiled-in backends in sorted order.
func AvailableResamplers() []ResamplerName {
	names := make([]ResamplerName, 0, len(resamplers))
	for name := range resamplers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// validateTarget rejects empty sources and non-positive targets.
func validateTarget(src *image.NRGBA, width, height int) error {
	if src == nil || src.Bounds().Empty() {
		return ErrEmptySource
	}
	if width <= 0 || height <= 0 {
		return errors.Errorf("invalid target dimensions %dx%d", width, height)
	}
	return nil
}

// asNRGBA returns img as an origin-anchored *image.NRGBA, copying only when needed.
func asNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	return imaging.Clone(img)
}

// KernelResampler runs the built-in separable kernel resampler.
type KernelResampler struct {
	Filter ResampleFilter
}

// Name implements Resampler.
func (k KernelResampler) Name() ResamplerName {
	return ResamplerName(k.Filter.String())
}

// Resample implements Resampler.
func (k KernelResampler) Resample(src *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if err := validateTarget(src, width, height); err != nil {
		return nil, err
	}
	return Resize(src, width, height, k.Filter), nil
}

type nfntResampler struct{}

func (nfntResampler) Name() ResamplerName { return ResamplerNFNT }

// Resample hands src to nfnt, which works in premultiplied RGBA and
// returns *image.RGBA for NRGBA input.
func (nfntResampler) Resample(src *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if err := validateTarget(src, width, height); err != nil {
		return nil, err
	}
	out := resize.Resize(uint(width), uint(height), src, resize.Lanczos3)
	if out == image.Image(src) {
		// nfnt hands back its input when no scaling is needed.
		return imaging.Clone(src), nil
	}
	return asNRGBA(out), nil
}

type imagingResampler struct{}

func (imagingResampler) Name() ResamplerName { return ResamplerImaging }

func (imagingResampler) Resample(src *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if err := validateTarget(src, width, height); err != nil {
		return nil, err
	}
	return asNRGBA(imaging.Resize(src, width, height, imaging.Lanczos)), nil
}

type catmullRomResampler struct{}

func (catmullRomResampler) Name() ResamplerName { return ResamplerCatmullRom }

func (catmullRomResampler) Resample(src *image.NRGBA, width, height int) (*image.NRGBA, error) {
	if err := validateTarget(src, width, height); err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), xdraw.Src, nil)
	clampToAlpha(dst)
	return imaging.Clone(dst), nil
}

// clampToAlpha caps every colour channel at its pixel's alpha. Cubic filters
// overshoot near hard edges and can leave invalid premultiplied values.
func clampToAlpha(img *image.RGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		for c := 0; c < 3; c++ {
			if img.Pix[i+c] > a {
				img.Pix[i+c] = a
			}
		}
	}
}
