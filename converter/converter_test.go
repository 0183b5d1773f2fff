package converter

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	goico "github.com/sergeymakinen/go-ico"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-icon/ico"
	"github.com/nvr-ai/go-icon/images"
	"github.com/nvr-ai/go-icon/profiler"
)

var wantSizes = []int{256, 128, 64, 48, 32, 16}

// writeTestPNG encodes img as PNG at dir/name and returns the path.
func writeTestPNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// createLogo draws a transparent canvas with an opaque disc in the middle.
func createLogo(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	cx, cy, r := w/2, h/2, min(w, h)/3
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, color.NRGBA{R: 30, G: 144, B: 255, A: 255})
			}
		}
	}
	return img
}

// createOpaqueRGB returns an image with no alpha channel in its colour model.
func createOpaqueRGB(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		panic(err)
	}
	return decoded
}

func readIcon(t *testing.T, path string) *ico.Icon {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	icon, err := ico.Decode(f)
	require.NoError(t, err)
	return icon
}

// assertIconSizes checks the six entries in order. The png layout always
// records 32bpp; go-ico drops to 24bpp plus mask for bitmaps without partial
// transparency.
func assertIconSizes(t *testing.T, icon *ico.Icon, enc ico.EntryEncoding) {
	t.Helper()
	require.Len(t, icon.Entries, len(wantSizes))
	for i, e := range icon.Entries {
		assert.Equal(t, wantSizes[i], e.Width, "entry %d width", i)
		assert.Equal(t, wantSizes[i], e.Height, "entry %d height", i)
		assert.Equal(t, image.Rect(0, 0, wantSizes[i], wantSizes[i]), e.Image.Bounds())
		if enc == ico.EncodingAuto {
			assert.Contains(t, []int{24, 32}, e.BitCount, "entry %d", i)
		} else {
			assert.Equal(t, 32, e.BitCount, "entry %d is 4-channel", i)
			assert.Equal(t, ico.PayloadPNG, e.Format, "entry %d", i)
		}
	}
}

// TestConvertProducesSixEntries converts a transparent PNG logo and checks
// every size is present and transparency survives.
func TestConvertProducesSixEntries(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(300, 300))
	dst := filepath.Join(dir, "app.ico")

	require.NoError(t, Convert(src, dst))

	icon := readIcon(t, dst)
	assertIconSizes(t, icon, ico.EncodingPNG)
	for _, e := range icon.Entries {
		_, _, _, a := e.Image.At(0, 0).RGBA()
		assert.Zero(t, a, "%dx%d corner should stay transparent", e.Width, e.Height)
		_, _, _, a = e.Image.At(e.Width/2, e.Height/2).RGBA()
		assert.Equal(t, uint32(0xffff), a, "%dx%d centre should be opaque", e.Width, e.Height)
	}
}

// TestConvertOpaqueSource feeds a source without alpha and expects every
// embedded image to be fully opaque.
func TestConvertOpaqueSource(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "photo.png", createOpaqueRGB(97, 61))
	dst := filepath.Join(dir, "photo.ico")

	require.NoError(t, Convert(src, dst))

	icon := readIcon(t, dst)
	assertIconSizes(t, icon, ico.EncodingPNG)
	for _, e := range icon.Entries {
		assert.True(t, images.IsOpaque(e.Image), "%dx%d should be opaque", e.Width, e.Height)
	}
}

func TestConvertIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(128, 96))
	first := filepath.Join(dir, "first.ico")
	second := filepath.Join(dir, "second.ico")

	require.NoError(t, Convert(src, first))
	require.NoError(t, Convert(src, second))
	require.NoError(t, Convert(src, second))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same input must give byte-identical output")
}

// TestConvertSinglePixel upscales a 1x1 source to every size.
func TestConvertSinglePixel(t *testing.T) {
	dir := t.TempDir()
	pixel := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	pixel.SetNRGBA(0, 0, color.NRGBA{R: 250, G: 100, B: 5, A: 255})
	src := writeTestPNG(t, dir, "dot.png", pixel)
	dst := filepath.Join(dir, "dot.ico")

	require.NoError(t, Convert(src, dst))

	icon := readIcon(t, dst)
	assertIconSizes(t, icon, ico.EncodingPNG)
	for _, e := range icon.Entries {
		got := color.NRGBAModel.Convert(e.Image.At(e.Width-1, e.Height-1)).(color.NRGBA)
		assert.Equal(t, color.NRGBA{R: 250, G: 100, B: 5, A: 255}, got, "%dx%d", e.Width, e.Height)
	}
}

func TestConvertMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.ico")

	err := Convert(filepath.Join(dir, "nope.png"), dst)
	require.Error(t, err)
	assert.True(t, IsDecode(err), "%v", err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.NoFileExists(t, dst)
}

func TestConvertCorruptSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(src, []byte("\x89PNG\r\n\x1a\ngarbage"), 0o644))
	dst := filepath.Join(dir, "out.ico")

	err := Convert(src, dst)
	assert.True(t, IsDecode(err), "%v", err)
	assert.NoFileExists(t, dst)
}

func TestConvertMissingDestinationDirectory(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(32, 32))

	err := Convert(src, filepath.Join(dir, "missing", "out.ico"))
	require.Error(t, err)
	assert.True(t, IsWrite(err), "%v", err)
	assert.ErrorIs(t, err, ErrWrite)
}

// TestConvertDestinationIsDirectory makes the final rename fail and checks the
// directory and its contents are untouched and no temp file is left behind.
func TestConvertDestinationIsDirectory(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(32, 32))
	dst := filepath.Join(dir, "out.ico")
	require.NoError(t, os.Mkdir(dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "keep"), []byte("x"), 0o644))

	err := Convert(src, dst)
	assert.True(t, IsWrite(err), "%v", err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.FileExists(t, filepath.Join(dst, "keep"))
	assertNoTempFiles(t, dir)
}

// TestConvertReadOnlyDirectory checks an existing icon in a read-only directory
// is left byte-for-byte intact.
func TestConvertReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(32, 32))

	outDir := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	dst := filepath.Join(outDir, "app.ico")
	require.NoError(t, os.WriteFile(dst, []byte("previous icon"), 0o644))
	require.NoError(t, os.Chmod(outDir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(outDir, 0o755) })

	err := Convert(src, dst)
	assert.True(t, IsWrite(err), "%v", err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "previous icon", string(data))
	assertNoTempFiles(t, outDir)
}

func TestConvertOverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(40, 40))
	dst := filepath.Join(dir, "app.ico")
	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0o600))

	require.NoError(t, Convert(src, dst))

	assertIconSizes(t, readIcon(t, dst), ico.EncodingPNG)
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, DefaultFileMode, info.Mode().Perm())
	assertNoTempFiles(t, dir)
}

func TestConvertImageEmptyRaster(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "out.ico")
	err = c.ConvertImage(image.NewRGBA(image.Rect(0, 0, 0, 10)), dst)
	require.Error(t, err)
	assert.True(t, IsResize(err), "%v", err)
	assert.ErrorIs(t, err, ErrResize)
	assert.NoFileExists(t, dst)
}

// TestConvertEveryBackendAndEncoding runs the full pipeline through every
// compiled-in resampler with both container layouts.
func TestConvertEveryBackendAndEncoding(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(200, 150))

	for _, name := range images.AvailableResamplers() {
		for _, enc := range []ico.EntryEncoding{ico.EncodingPNG, ico.EncodingAuto} {
			c, err := New(Options{Resampler: name, Encoding: enc})
			require.NoError(t, err)

			dst := filepath.Join(dir, string(name)+"-"+string(enc)+".ico")
			require.NoError(t, c.Convert(src, dst), "%s/%s", name, enc)
			assertIconSizes(t, readIcon(t, dst), enc)
		}
	}
}

// TestConvertReadableByThirdPartyDecoder makes sure an independent ICO reader
// accepts the output.
func TestConvertReadableByThirdPartyDecoder(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(64, 64))
	dst := filepath.Join(dir, "app.ico")
	require.NoError(t, Convert(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)

	img, err := goico.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, wantSizes, img.Bounds().Dx())
}

func TestEncodeToWriter(t *testing.T) {
	c, err := New(Options{Encoding: ico.EncodingAuto})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(createLogo(50, 50), &buf))

	icon, err := ico.Decode(&buf)
	require.NoError(t, err)
	assertIconSizes(t, icon, ico.EncodingAuto)
	assert.Equal(t, ico.PayloadPNG, icon.Entries[0].Format)
	for _, e := range icon.Entries[1:] {
		assert.Equal(t, ico.PayloadBMP, e.Format, "%dx%d", e.Width, e.Height)
	}
}

// TestEncodeSameBytesOnOneCPU encodes the same source with resizing spread
// over eight workers and over one, for both layouts.
func TestEncodeSameBytesOnOneCPU(t *testing.T) {
	prev := runtime.GOMAXPROCS(0)
	t.Cleanup(func() { runtime.GOMAXPROCS(prev) })

	src := createLogo(300, 200)
	encodeWith := func(procs int, enc ico.EntryEncoding) []byte {
		runtime.GOMAXPROCS(procs)
		c, err := New(Options{Encoding: enc})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, c.Encode(src, &buf))
		return buf.Bytes()
	}

	for _, enc := range []ico.EntryEncoding{ico.EncodingPNG, ico.EncodingAuto} {
		many := encodeWith(8, enc)
		one := encodeWith(1, enc)
		assert.Equal(t, many, one, "%s layout differs between 8 and 1 workers", enc)
	}
}

// TestConvertKeepsFaintColour checks a nearly transparent source keeps its
// colour in every embedded image.
func TestConvertKeepsFaintColour(t *testing.T) {
	faint := color.NRGBA{R: 200, G: 120, B: 40, A: 3}
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.SetNRGBA(x, y, faint)
		}
	}

	dir := t.TempDir()
	src := writeTestPNG(t, dir, "faint.png", img)
	dst := filepath.Join(dir, "faint.ico")
	require.NoError(t, Convert(src, dst))

	for _, e := range readIcon(t, dst).Entries {
		got := color.NRGBAModel.Convert(e.Image.At(e.Width/2, e.Height/2)).(color.NRGBA)
		assert.Equal(t, faint, got, "%dx%d", e.Width, e.Height)
	}
}

func TestVariantsAreIndependentCopies(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	src := createLogo(64, 64)
	variants, err := c.Variants(src)
	require.NoError(t, err)
	require.Len(t, variants, len(wantSizes))

	// The 64px variant is a copy of the normalized source, not the source.
	variants[2].Pix[0] = 1
	assert.Zero(t, src.Pix[0])
}

func TestTimerAndLogger(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, "logo.png", createLogo(32, 32))

	var logs bytes.Buffer
	timer := profiler.NewTimer()
	c, err := New(Options{Timer: timer, Logger: log.New(&logs, "", 0)})
	require.NoError(t, err)
	require.NoError(t, c.Convert(src, filepath.Join(dir, "out.ico")))

	var names []string
	for _, s := range timer.Stages() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"decode", "normalize",
		"resize/256x256", "resize/128x128", "resize/64x64",
		"resize/48x48", "resize/32x32", "resize/16x16",
		"encode", "write",
	}, names)
	assert.Contains(t, logs.String(), "decoded")
	assert.Contains(t, logs.String(), "alpha channel: true")
	assert.Contains(t, logs.String(), "wrote")
}

func TestNewRejectsUnknownOptions(t *testing.T) {
	_, err := New(Options{Resampler: "bogus"})
	assert.Error(t, err)

	_, err = New(Options{Encoding: "tiff"})
	assert.Error(t, err)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}
