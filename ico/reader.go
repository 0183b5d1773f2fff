package ico

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	goico "github.com/sergeymakinen/go-ico"
)

// ErrFormat reports data that is not an icon container.
var ErrFormat = errors.New("ico: invalid format")

// Decode parses an icon container and decodes every payload.
//
// Arguments:
// - r: The container bytes.
//
// Returns:
// - The directory with decoded images, in file order.
// - An error if the data is not a well-formed icon.
func Decode(r io.Reader) (*Icon, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read icon")
	}

	dir, err := readDirectory(data)
	if err != nil {
		return nil, err
	}

	imgs, err := goico.DecodeAll(bytes.NewReader(data))
	if err != nil {
		var fe goico.FormatError
		if errors.As(err, &fe) {
			return nil, errors.Wrap(ErrFormat, fe.Error())
		}
		return nil, errors.Wrap(err, "decode payloads")
	}
	if len(imgs) != len(dir) {
		return nil, errors.Wrapf(ErrFormat, "directory lists %d entries, decoded %d", len(dir), len(imgs))
	}

	icon := &Icon{Entries: make([]Entry, len(dir))}
	for i, de := range dir {
		payload := data[int(de.Offset) : int(de.Offset)+int(de.Size)]
		format := PayloadBMP
		if bytes.HasPrefix(payload, pngSignature) {
			format = PayloadPNG
		}
		b := imgs[i].Bounds()
		icon.Entries[i] = Entry{
			Width:    b.Dx(),
			Height:   b.Dy(),
			BitCount: int(de.BitCount),
			Format:   format,
			Size:     len(payload),
			Image:    imgs[i],
		}
	}

	return icon, nil
}

// readDirectory validates the ICONDIR and every ICONDIRENTRY against the data
// length. Pixel decoding is left to go-ico, which does not expose the
// directory itself.
func readDirectory(data []byte) ([]dirEntry, error) {
	if len(data) < headerSize {
		return nil, errors.Wrap(ErrFormat, "short header")
	}

	var hdr header
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if hdr.Reserved != 0 || hdr.Type != resourceIcon {
		return nil, errors.Wrapf(ErrFormat, "reserved=%d type=%d", hdr.Reserved, hdr.Type)
	}
	if hdr.Count == 0 {
		return nil, errors.Wrap(ErrFormat, "no images")
	}

	dirEnd := headerSize + entrySize*int(hdr.Count)
	if len(data) < dirEnd {
		return nil, errors.Wrap(ErrFormat, "truncated directory")
	}

	entries := make([]dirEntry, hdr.Count)
	if err := binary.Read(bytes.NewReader(data[headerSize:dirEnd]), binary.LittleEndian, entries); err != nil {
		return nil, errors.Wrap(err, "read directory")
	}

	for i, de := range entries {
		start, end := int(de.Offset), int(de.Offset)+int(de.Size)
		if start < dirEnd || end > len(data) || start >= end {
			return nil, errors.Wrapf(ErrFormat, "entry %d: payload %d..%d out of range", i, start, end)
		}
	}

	return entries, nil
}
