package images

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// ResampleFilter defines the resampling algorithm used for image scaling.
type ResampleFilter int

const (
	// NearestNeighborFilter uses nearest-neighbor interpolation (fastest, lowest quality).
	NearestNeighborFilter ResampleFilter = iota
	// BilinearFilter uses bilinear interpolation (fast, good quality).
	BilinearFilter
	// BicubicFilter uses bicubic interpolation (slower, better quality).
	BicubicFilter
	// LanczosFilter uses Lanczos resampling with a=3 (slowest, best quality).
	LanczosFilter
	// MitchellNetravaliFilter uses Mitchell-Netravali cubic filter (balanced).
	MitchellNetravaliFilter
)

// String returns the filter name.
func (f ResampleFilter) String() string {
	switch f {
	case NearestNeighborFilter:
		return "nearest"
	case BilinearFilter:
		return "bilinear"
	case BicubicFilter:
		return "bicubic"
	case LanczosFilter:
		return "lanczos"
	case MitchellNetravaliFilter:
		return "mitchell"
	default:
		return "unknown"
	}
}

// kernel represents a resampling kernel function.
type kernel struct {
	// Support is the radius of the kernel in source pixels at scale 1.
	Support float64
	// At evaluates the kernel at distance x.
	At func(x float64) float64
}

// kernels maps each filter type to its kernel function.
var kernels = map[ResampleFilter]kernel{
	NearestNeighborFilter: {
		Support: 0.5,
		At: func(x float64) float64 {
			if math.Abs(x) < 0.5 {
				return 1.0
			}
			return 0.0
		},
	},
	BilinearFilter: {
		Support: 1.0,
		At: func(x float64) float64 {
			// Triangle function.
			x = math.Abs(x)
			if x < 1.0 {
				return 1.0 - x
			}
			return 0.0
		},
	},
	BicubicFilter: {
		Support: 2.0,
		At: func(x float64) float64 {
			// Catmull-Rom (B=0, C=0.5).
			x = math.Abs(x)
			if x < 1.0 {
				return (1.5*x-2.5)*x*x + 1.0
			}
			if x < 2.0 {
				return ((-0.5*x+2.5)*x-4.0)*x + 2.0
			}
			return 0.0
		},
	},
	LanczosFilter: {
		Support: 3.0,
		At: func(x float64) float64 {
			if x == 0.0 {
				return 1.0
			}
			x = math.Abs(x)
			if x >= 3.0 {
				return 0.0
			}
			// sinc(x) * sinc(x/3)
			pix := math.Pi * x
			return (math.Sin(pix) / pix) * (math.Sin(pix/3.0) / (pix / 3.0))
		},
	},
	MitchellNetravaliFilter: {
		Support: 2.0,
		At: func(x float64) float64 {
			// B=1/3, C=1/3.
			x = math.Abs(x)
			if x < 1.0 {
				return ((1.16666666666667*x-2.0)*x)*x + 0.888888888888889
			}
			if x < 2.0 {
				return ((-0.388888888888889*x+2.0)*x-3.333333333333333)*x + 1.777777777777778
			}
			return 0.0
		},
	},
}

// Contribution represents a single source pixel's contribution to an output pixel.
type Contribution struct {
	// pixel is the source pixel index along the resized axis.
	pixel int
	// weight is the normalized contribution weight.
	weight float64
}

// Resize performs separable image resizing using the specified resampling filter,
// processing the horizontal and vertical axes independently. Samples are weighted
// by their alpha so transparent pixels do not bleed colour into the result, and
// the output keeps straight (non-premultiplied) colour.
//
// Arguments:
// - img: The source image to resize.
// - width: The target width in pixels.
// - height: The target height in pixels.
// - filter: The resampling filter to use for interpolation.
//
// Returns:
// - A new *image.NRGBA of exactly width x height. A non-positive target or an
// empty source yields an empty image.
//
// @example
// icon := Resize(src, 256, 256, LanczosFilter)
func Resize(img image.Image, width, height int, filter ResampleFilter) *image.NRGBA {
	if width <= 0 || height <= 0 || img.Bounds().Empty() {
		return image.NewNRGBA(image.Rectangle{})
	}

	src := ToNRGBA(img)
	bounds := src.Bounds()

	// Same size: hand back the normalized copy so callers always own the result.
	if bounds.Dx() == width && bounds.Dy() == height {
		return src
	}

	if filter == NearestNeighborFilter {
		return ResizeNearestNeighbor(src, width, height)
	}

	intermediate := image.NewNRGBA(image.Rect(0, 0, width, bounds.Dy()))
	ResizeHorizontal(src, intermediate, filter)

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	ResizeVertical(intermediate, dst, filter)

	return dst
}

// ResizeNearestNeighbor performs fast nearest-neighbor resizing.
//
// Arguments:
// - src: The source image.
// - width: Target width.
// - height: Target height.
//
// Returns:
// - The resized image using nearest-neighbor sampling.
func ResizeNearestNeighbor(src *image.NRGBA, width, height int) *image.NRGBA {
	bounds := src.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	xRatio := float64(srcWidth) / float64(width)
	yRatio := float64(srcHeight) / float64(height)

	Parallel(height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			srcY := int((float64(y) + 0.5) * yRatio)
			if srcY >= srcHeight {
				srcY = srcHeight - 1
			}
			for x := 0; x < width; x++ {
				srcX := int((float64(x) + 0.5) * xRatio)
				if srcX >= srcWidth {
					srcX = srcWidth - 1
				}
				si := src.PixOffset(bounds.Min.X+srcX, bounds.Min.Y+srcY)
				di := dst.PixOffset(x, y)
				copy(dst.Pix[di:di+4], src.Pix[si:si+4])
			}
		}
	})

	return dst
}

// contributions pre-computes, for every destination index along one axis, the
// normalized weights of the source indices that feed it.
//
// Arguments:
// - srcSize: Source length along the axis.
// - dstSize: Destination length along the axis.
// - k: Kernel to evaluate.
//
// Returns:
// - One weight list per destination index.
func contributions(srcSize, dstSize int, k kernel) [][]Contribution {
	scale := float64(srcSize) / float64(dstSize)

	// When downsampling the kernel is stretched so every source pixel is covered.
	filterScale := math.Max(scale, 1.0)
	support := k.Support * filterScale

	out := make([][]Contribution, dstSize)

	for i := 0; i < dstSize; i++ {
		center := (float64(i) + 0.5) * scale

		lo := int(math.Floor(center - support))
		hi := int(math.Ceil(center + support))
		if lo < 0 {
			lo = 0
		}
		if hi >= srcSize {
			hi = srcSize - 1
		}

		var weights []Contribution
		var sum float64

		for s := lo; s <= hi; s++ {
			// Distance between the pixel centre and the sample centre.
			distance := math.Abs(float64(s) - center + 0.5)
			weight := k.At(distance / filterScale)
			if weight != 0 {
				weights = append(weights, Contribution{pixel: s, weight: weight})
				sum += weight
			}
		}

		// A tiny source can leave every tap on a zero crossing; fall back to the
		// nearest pixel so the output never goes transparent.
		if len(weights) == 0 || sum == 0 {
			nearest := int(center)
			if nearest >= srcSize {
				nearest = srcSize - 1
			}
			weights = []Contribution{{pixel: nearest, weight: 1}}
			sum = 1
		}

		// Normalize weights to sum to 1.0 so flat regions keep their value.
		for j := range weights {
			weights[j].weight /= sum
		}

		out[i] = weights
	}

	return out
}

// ResizeHorizontal performs the horizontal pass of separable filtering.
//
// Arguments:
// - src: Source image.
// - dst: Destination image (target width, same height as source).
// - filter: Resampling filter to use.
//
// Returns:
// - None (modifies dst in-place).
//
// @example
// intermediate := image.NewNRGBA(image.Rect(0, 0, newWidth, srcHeight))
// ResizeHorizontal(src, intermediate, LanczosFilter)
func ResizeHorizontal(src *image.NRGBA, dst *image.NRGBA, filter ResampleFilter) {
	srcBounds := src.Bounds()
	dstWidth := dst.Bounds().Dx()
	height := srcBounds.Dy()

	table := contributions(srcBounds.Dx(), dstWidth, kernels[filter])

	Parallel(height, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			for x := 0; x < dstWidth; x++ {
				var r, g, b, a float64
				for _, c := range table[x] {
					i := src.PixOffset(srcBounds.Min.X+c.pixel, srcBounds.Min.Y+y)
					aw := float64(src.Pix[i+3]) * c.weight
					r += float64(src.Pix[i+0]) * aw
					g += float64(src.Pix[i+1]) * aw
					b += float64(src.Pix[i+2]) * aw
					a += aw
				}
				storeStraight(dst, x, y, r, g, b, a)
			}
		}
	})
}

// ResizeVertical performs the vertical pass of separable filtering.
//
// Arguments:
// - src: Source image (typically the output of the horizontal pass).
// - dst: Destination image (must have the final dimensions).
// - filter: Resampling filter to use.
//
// Returns:
// - None (modifies dst in-place).
func ResizeVertical(src *image.NRGBA, dst *image.NRGBA, filter ResampleFilter) {
	srcBounds := src.Bounds()
	dstHeight := dst.Bounds().Dy()
	width := dst.Bounds().Dx()

	table := contributions(srcBounds.Dy(), dstHeight, kernels[filter])

	Parallel(width, func(partStart, partEnd int) {
		for x := partStart; x < partEnd; x++ {
			for y := 0; y < dstHeight; y++ {
				var r, g, b, a float64
				for _, c := range table[y] {
					i := src.PixOffset(srcBounds.Min.X+x, srcBounds.Min.Y+c.pixel)
					aw := float64(src.Pix[i+3]) * c.weight
					r += float64(src.Pix[i+0]) * aw
					g += float64(src.Pix[i+1]) * aw
					b += float64(src.Pix[i+2]) * aw
					a += aw
				}
				storeStraight(dst, x, y, r, g, b, a)
			}
		}
	})
}

// storeStraight divides alpha-weighted colour sums by the accumulated alpha and
// writes the rounded, clamped result into dst. Pixels whose alpha rounds to
// zero are stored fully transparent.
func storeStraight(dst *image.NRGBA, x, y int, r, g, b, a float64) {
	i := dst.PixOffset(x, y)
	a8 := uint8(Clamp(a, 0, 255) + 0.5)
	if a8 == 0 {
		dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 0, 0, 0, 0
		return
	}

	inv := 1 / a
	dst.Pix[i+0] = uint8(Clamp(r*inv, 0, 255) + 0.5)
	dst.Pix[i+1] = uint8(Clamp(g*inv, 0, 255) + 0.5)
	dst.Pix[i+2] = uint8(Clamp(b*inv, 0, 255) + 0.5)
	dst.Pix[i+3] = a8
}

// Clamp restricts a value to the specified range [min, max].
//
// Arguments:
// - value: The value to Clamp.
// - min: Minimum allowed value.
// - max: Maximum allowed value.
//
// Returns:
// - The clamped value within [min, max].
//
// @example
// clamped := Clamp(300.5, 0, 255) // Returns 255
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Parallel splits [0, dataSize) into one contiguous partition per usable CPU
// (GOMAXPROCS) and runs fn on each in its own goroutine, returning once all
// partitions are done. Partitions never overlap, so callers that write only
// inside their partition produce the same bytes whatever the CPU count.
//
// Arguments:
// - dataSize: The size of the data to process.
// - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	numGoroutines := runtime.GOMAXPROCS(0)

	// Small inputs are not worth the goroutine overhead.
	if dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize

		// Last partition gets any remaining data.
		if i == numGoroutines-1 {
			partEnd = dataSize
		}

		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}

	wg.Wait()
}
