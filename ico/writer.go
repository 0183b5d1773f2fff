package ico

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	goico "github.com/sergeymakinen/go-ico"
)

// Encode writes imgs as a single icon container to w, one directory entry per
// image in the given order. Each image must be between 1 and 256 pixels on
// both edges. The container is built in memory first, so nothing reaches w
// unless every payload encoded.
//
// Arguments:
// - w: Destination of the container bytes.
// - imgs: The variants to embed.
// - enc: Container layout, EncodingPNG when empty.
//
// Returns:
// - An error if an image is out of range or a payload fails to encode.
func Encode(w io.Writer, imgs []image.Image, enc EntryEncoding) error {
	if enc == "" {
		enc = EncodingPNG
	}
	if !enc.Valid() {
		return errors.Errorf("unknown entry encoding %q", enc)
	}
	if len(imgs) == 0 {
		return errors.New("icon needs at least one image")
	}
	if len(imgs) > 0xffff {
		return errors.Errorf("too many images: %d", len(imgs))
	}
	for i, img := range imgs {
		b := img.Bounds()
		if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > MaxDimension || b.Dy() > MaxDimension {
			return errors.Errorf("image %d: dimensions %dx%d outside 1..%d", i, b.Dx(), b.Dy(), MaxDimension)
		}
	}

	var buf bytes.Buffer
	switch enc {
	case EncodingAuto:
		if err := goico.EncodeAll(&buf, imgs); err != nil {
			return errors.Wrap(err, "encode icon")
		}
	default:
		if err := encodePNGIcon(&buf, imgs); err != nil {
			return err
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "write icon")
	}
	return nil
}

// encodePNGIcon lays out a container whose every payload is a PNG stream.
func encodePNGIcon(buf *bytes.Buffer, imgs []image.Image) error {
	payloads := make([][]byte, len(imgs))
	entries := make([]dirEntry, len(imgs))
	offset := headerSize + entrySize*len(imgs)

	for i, img := range imgs {
		width, height := img.Bounds().Dx(), img.Bounds().Dy()
		data, err := encodePNG(img)
		if err != nil {
			return errors.Wrapf(err, "image %d (%dx%d)", i, width, height)
		}

		payloads[i] = data
		entries[i] = dirEntry{
			// 256 does not fit in a byte and is stored as 0.
			Width:    uint8(width % MaxDimension),
			Height:   uint8(height % MaxDimension),
			Planes:   1,
			BitCount: bitCount,
			Size:     uint32(len(data)),
			Offset:   uint32(offset),
		}
		offset += len(data)
	}

	buf.Grow(offset)
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, header{Type: resourceIcon, Count: uint16(len(imgs))})
	for _, e := range entries {
		_ = binary.Write(buf, binary.LittleEndian, e)
	}
	for _, p := range payloads {
		buf.Write(p)
	}
	return nil
}

// fourChannel hides Opaque so the PNG encoder always writes RGBA, matching the
// 32bpp recorded in the directory.
type fourChannel struct {
	*image.NRGBA
}

func (fourChannel) Opaque() bool { return false }

func encodePNG(img image.Image) ([]byte, error) {
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = imaging.Clone(img)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, fourChannel{nrgba}); err != nil {
		return nil, errors.Wrap(err, "encode png payload")
	}
	return buf.Bytes(), nil
}
