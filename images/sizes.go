// Package images provides the raster side of icon generation: the fixed set of
// icon sizes, decoding, NRGBA normalization and resampling.
package images

import (
	"fmt"
	"image"
)

// IconSizeName identifies an icon size by the shell role it usually fills.
type IconSizeName string

// Names for the sizes Windows asks an icon for.
const (
	IconSizeJumbo      IconSizeName = "jumbo"
	IconSizeExtraLarge IconSizeName = "extra-large"
	IconSizeLarge      IconSizeName = "large"
	IconSizeMedium     IconSizeName = "medium"
	IconSizeSmall      IconSizeName = "small"
	IconSizeTiny       IconSizeName = "tiny"
)

// IconSize describes one square variant embedded in an icon container.
type IconSize struct {
	Name   IconSizeName `json:"name" yaml:"name"`
	Width  int          `json:"width" yaml:"width"`
	Height int          `json:"height" yaml:"height"`
	// Usage is a short note on where the shell renders this size.
	Usage string `json:"usage" yaml:"usage"`
}

// Rect returns the bounds of a raster of this size anchored at the origin.
func (s IconSize) Rect() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// Pixels returns the number of pixels in a raster of this size.
func (s IconSize) Pixels() int {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return s.Width * s.Height
}

// String returns a human-readable summary of the size.
func (s IconSize) String() string {
	return fmt.Sprintf("%s (%dx%d)", s.Name, s.Width, s.Height)
}

// IconSizes is the ordered set of variants written into every icon. The
// descending order is a convention; readers choose by the per-entry size.
var IconSizes = []IconSize{
	{Name: IconSizeJumbo, Width: 256, Height: 256, Usage: "jumbo explorer view, high-DPI tiles"},
	{Name: IconSizeExtraLarge, Width: 128, Height: 128, Usage: "large explorer view"},
	{Name: IconSizeLarge, Width: 64, Height: 64, Usage: "high-DPI desktop"},
	{Name: IconSizeMedium, Width: 48, Height: 48, Usage: "desktop, medium explorer view"},
	{Name: IconSizeSmall, Width: 32, Height: 32, Usage: "taskbar, alt-tab"},
	{Name: IconSizeTiny, Width: 16, Height: 16, Usage: "title bar, tray, small view"},
}

// LargestIconSize returns the biggest entry of IconSizes.
func LargestIconSize() IconSize {
	largest := IconSizes[0]
	for _, s := range IconSizes[1:] {
		if s.Pixels() > largest.Pixels() {
			largest = s
		}
	}
	return largest
}

// IconSizeByWidth retrieves the entry of IconSizes with the given width.
// It returns the size and true if found, otherwise an empty size and false.
func IconSizeByWidth(width int) (IconSize, bool) {
	for _, s := range IconSizes {
		if s.Width == width {
			return s, true
		}
	}
	return IconSize{}, false
}
