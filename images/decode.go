package images

import (
	"bufio"
	"bytes"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/webp" // register WebP
)

// Format represents a source image format the converter can read.
type Format string

// Format constants.
const (
	FormatUnknown Format = ""
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatWebP    Format = "webp"
	FormatSVG     Format = "svg"
)

// sniffLen is how many leading bytes DetectFormat looks at.
const sniffLen = 512

var extensionFormats = map[string]Format{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".gif":  FormatGIF,
	".bmp":  FormatBMP,
	".webp": FormatWebP,
	".svg":  FormatSVG,
}

// DetectFormat guesses the format of a source from its leading bytes, falling
// back to the file extension of name.
//
// Arguments:
// - name: File name or path, only the extension is used.
// - head: The first bytes of the file (up to 512 are inspected).
//
// Returns:
// - Format: The detected format, FormatUnknown when nothing matches.
func DetectFormat(name string, head []byte) Format {
	switch {
	case bytes.HasPrefix(head, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case bytes.HasPrefix(head, []byte("\xff\xd8")):
		return FormatJPEG
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return FormatGIF
	case bytes.HasPrefix(head, []byte("BM")):
		return FormatBMP
	case len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WEBP":
		return FormatWebP
	}

	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if bytes.Contains(bytes.ToLower(head), []byte("<svg")) {
		return FormatSVG
	}

	return extensionFormats[strings.ToLower(filepath.Ext(name))]
}

// Load opens and decodes the image at path.
//
// Arguments:
// - path: Location of the source image.
//
// Returns:
// - image.Image: The decoded raster.
// - Format: The format the source was read as.
// - error: An error if the file cannot be opened or decoded.
func Load(path string) (image.Image, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FormatUnknown, errors.Wrap(err, "open source image")
	}
	defer f.Close()

	return Decode(f, path)
}

// Decode reads a raster or SVG image from r. Raster formats honour EXIF
// orientation. SVG documents are rasterized so the long edge matches the
// largest icon size.
//
// Arguments:
// - r: The encoded image.
// - name: File name used as a format hint when the content is ambiguous.
//
// Returns:
// - image.Image: The decoded raster.
// - Format: The format the source was read as.
// - error: An error if the data is not a supported image.
func Decode(r io.Reader, name string) (image.Image, Format, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, FormatUnknown, errors.Wrap(err, "read source image")
	}

	format := DetectFormat(name, head)
	if format == FormatSVG {
		img, err := RasterizeSVG(br, LargestIconSize().Width)
		if err != nil {
			return nil, format, err
		}
		return img, format, nil
	}

	img, err := imaging.Decode(br, imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, errors.Wrap(err, "decode source image")
	}

	return img, format, nil
}

// RasterizeSVG renders an SVG document onto a transparent canvas whose long
// edge is size pixels, keeping the document's aspect ratio.
//
// Arguments:
// - r: The SVG document.
// - size: Long edge of the output raster in pixels.
//
// Returns:
// - *image.RGBA: The rendered raster.
// - error: An error if the document cannot be parsed.
func RasterizeSVG(r io.Reader, size int) (*image.RGBA, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid raster size %d", size)
	}

	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse svg")
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = float64(size), float64(size)
	}

	scale := float64(size) / math.Max(w, h)
	outW := int(math.Max(1, math.Round(w*scale)))
	outH := int(math.Max(1, math.Round(h*scale)))

	icon.SetTarget(0, 0, float64(outW), float64(outH))

	img := image.NewRGBA(image.Rect(0, 0, outW, outH))
	scanner := rasterx.NewScannerGV(outW, outH, img, img.Bounds())
	raster := rasterx.NewDasher(outW, outH, scanner)
	icon.Draw(raster, 1.0)

	return img, nil
}
