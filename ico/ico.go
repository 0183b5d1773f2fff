// Package ico reads and writes Windows icon (.ico) containers.
//
// An icon file is a small directory followed by one payload per image. Each
// directory entry records the image's width and height so the shell can pick
// the variant closest to the size it is about to draw. Payloads are either PNG
// streams or device-independent bitmaps with a 1-bit transparency mask.
package ico

import (
	"fmt"
	"image"
)

// MaxDimension is the largest edge length an icon entry can describe.
const MaxDimension = 256

const (
	headerSize = 6
	entrySize  = 16

	// resourceIcon is the ICONDIR type for icons (2 would be a cursor).
	resourceIcon = 1

	bitCount = 32
)

// pngSignature prefixes every PNG-compressed payload.
var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// EntryEncoding selects the container layout written by Encode.
type EntryEncoding string

// Container layouts.
const (
	// EncodingPNG stores every entry as a 32-bit RGBA PNG stream.
	EncodingPNG EntryEncoding = "png"
	// EncodingAuto stores the 256px entry as PNG and smaller ones as bitmaps
	// with an AND mask, which is what older Windows shells expect.
	EncodingAuto EntryEncoding = "auto"
)

// Valid reports whether e is a known layout.
func (e EntryEncoding) Valid() bool {
	switch e {
	case EncodingPNG, EncodingAuto:
		return true
	}
	return false
}

// PayloadFormat is how a single entry is stored inside the container.
type PayloadFormat string

// Payload formats.
const (
	PayloadPNG PayloadFormat = "png"
	PayloadBMP PayloadFormat = "bmp"
)

// header is the ICONDIR structure.
type header struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

// dirEntry is the ICONDIRENTRY structure.
type dirEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	Size       uint32
	Offset     uint32
}

// Entry is one image inside an icon container.
type Entry struct {
	// Width and Height are the dimensions of the decoded payload.
	Width  int
	Height int
	// BitCount is the colour depth recorded in the directory.
	BitCount int
	// Format is the payload format.
	Format PayloadFormat
	// Size is the payload length in bytes.
	Size int
	// Image is the decoded payload.
	Image image.Image
}

// String returns a one-line summary of the entry.
func (e Entry) String() string {
	return fmt.Sprintf("%dx%d %dbpp %s (%d bytes)", e.Width, e.Height, e.BitCount, e.Format, e.Size)
}

// Icon is a decoded icon container.
type Icon struct {
	Entries []Entry
}

// Closest returns the entry a reader would pick for a display of size x size
// pixels: the smallest entry at least that large, or the largest entry.
func (ic *Icon) Closest(size int) (Entry, bool) {
	if len(ic.Entries) == 0 {
		return Entry{}, false
	}
	var best Entry
	found := false
	for _, e := range ic.Entries {
		if e.Width >= size && (!found || e.Width < best.Width) {
			best, found = e, true
		}
	}
	if found {
		return best, true
	}
	best = ic.Entries[0]
	for _, e := range ic.Entries[1:] {
		if e.Width > best.Width {
			best = e
		}
	}
	return best, true
}
