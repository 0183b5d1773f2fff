// Package converter turns a single source image into a multi-resolution
// Windows icon file.
//
// The pipeline is linear: decode the source, normalize it to 4-channel NRGBA,
// resample one variant per entry of images.IconSizes (each from the normalized
// raster, never from a previous variant), encode all variants into one ICO
// container and store it at the destination with an atomic rename.
package converter

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-icon/ico"
	"github.com/nvr-ai/go-icon/images"
	"github.com/nvr-ai/go-icon/profiler"
)

// DefaultFileMode is the permission of newly written icons.
const DefaultFileMode os.FileMode = 0o644

// Options configures a Converter. The zero value is valid.
type Options struct {
	// Resampler selects the resampling backend, images.DefaultResampler when empty.
	Resampler images.ResamplerName
	// Encoding selects the container layout, ico.EncodingPNG when empty.
	Encoding ico.EntryEncoding
	// FileMode is the permission of the written file, DefaultFileMode when zero.
	FileMode os.FileMode
	// Timer receives per-stage timings when set.
	Timer *profiler.Timer
	// Logger receives one line per stage when set.
	Logger *log.Logger
}

// Converter runs the icon pipeline with fixed options.
type Converter struct {
	opts      Options
	resampler images.Resampler
}

// New validates opts and builds a Converter.
//
// Arguments:
// - opts: Converter options.
//
// Returns:
// - *Converter: The converter.
// - error: An error if the resampler or encoding is unknown.
func New(opts Options) (*Converter, error) {
	if opts.Encoding == "" {
		opts.Encoding = ico.EncodingPNG
	}
	if !opts.Encoding.Valid() {
		return nil, errors.Errorf("unknown entry encoding %q", opts.Encoding)
	}
	if opts.FileMode == 0 {
		opts.FileMode = DefaultFileMode
	}

	r, err := images.NewResampler(opts.Resampler)
	if err != nil {
		return nil, err
	}

	return &Converter{opts: opts, resampler: r}, nil
}

// Convert reads src and writes a six-entry icon to dst with default options.
//
// Arguments:
// - src: Path of a readable, decodable image.
// - dst: Path of the icon to create or replace. Its directory must exist.
//
// Returns:
// - error: A *Error of kind KindDecode, KindResize or KindWrite on failure.
func Convert(src, dst string) error {
	c, err := New(Options{})
	if err != nil {
		return err
	}
	return c.Convert(src, dst)
}

// Resampler returns the backend in use.
func (c *Converter) Resampler() images.Resampler {
	return c.resampler
}

// Convert reads src and writes a six-entry icon to dst. Nothing is created at
// dst unless the whole container was produced.
func (c *Converter) Convert(src, dst string) error {
	done := c.stage("decode")
	img, format, err := images.Load(src)
	done()
	if err != nil {
		return newError(KindDecode, src, err, "load source")
	}
	c.logf("decoded %s as %s (%dx%d, alpha channel: %t)",
		src, format, img.Bounds().Dx(), img.Bounds().Dy(), images.HasAlpha(img.ColorModel()))

	return c.ConvertImage(img, dst)
}

// ConvertImage runs the pipeline from an already decoded raster.
func (c *Converter) ConvertImage(img image.Image, dst string) error {
	var buf bytes.Buffer
	if err := c.Encode(img, &buf); err != nil {
		if ce, ok := err.(*Error); ok && ce.Path == "" && ce.Kind == KindWrite {
			ce.Path = dst
		}
		return err
	}

	done := c.stage("write")
	err := writeFileAtomic(dst, buf.Bytes(), c.opts.FileMode)
	done()
	if err != nil {
		return newError(KindWrite, dst, err, "store icon")
	}
	c.logf("wrote %s (%d bytes)", dst, buf.Len())

	return nil
}

// Encode normalizes img, builds every variant and writes the container to w.
func (c *Converter) Encode(img image.Image, w io.Writer) error {
	variants, err := c.Variants(img)
	if err != nil {
		return err
	}

	list := make([]image.Image, len(variants))
	for i, v := range variants {
		list[i] = v
	}

	done := c.stage("encode")
	err = ico.Encode(w, list, c.opts.Encoding)
	done()
	if err != nil {
		return newError(KindWrite, "", err, "encode icon")
	}

	return nil
}

// Variants returns one NRGBA raster per entry of images.IconSizes, in that
// order. Each variant is resampled from the same normalized copy of img.
func (c *Converter) Variants(img image.Image) ([]*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, newError(KindResize, "", images.ErrEmptySource, "normalize source")
	}

	done := c.stage("normalize")
	src := images.ToNRGBA(img)
	done()

	variants := make([]*image.NRGBA, 0, len(images.IconSizes))
	for _, size := range images.IconSizes {
		done := c.stage(fmt.Sprintf("resize/%dx%d", size.Width, size.Height))
		v, err := c.resampler.Resample(src, size.Width, size.Height)
		done()
		if err != nil {
			return nil, newError(KindResize, "", err, fmt.Sprintf("resize to %s", size))
		}
		if v.Bounds() != size.Rect() {
			err := errors.Errorf("%s returned %v", c.resampler.Name(), v.Bounds())
			return nil, newError(KindResize, "", err, fmt.Sprintf("resize to %s", size))
		}
		variants = append(variants, v)
	}

	return variants, nil
}

func (c *Converter) stage(name string) func() {
	return c.opts.Timer.StartOperation(name)
}

func (c *Converter) logf(format string, args ...interface{}) {
	if c.opts.Logger != nil {
		c.opts.Logger.Printf(format, args...)
	}
}
