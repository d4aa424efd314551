package texture

import (
	"image"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"golang.org/x/image/draw"
)

// TargetSize returns the upload size of a width x height source on a device with the given
// capabilities: each dimension is divided by the quality divisor, then both are scaled down
// uniformly to fit the device's max texture size. Dimensions never drop below 1.
//
// Parameters:
//   - width: source width in pixels
//   - height: source height in pixels
//   - caps: the device capabilities
//
// Returns:
//   - uint32: target width
//   - uint32: target height
func TargetSize(width, height uint32, caps device.Capabilities) (uint32, uint32) {
	div := caps.TextureQuality.Divisor()
	w, h := max(width/div, 1), max(height/div, 1)

	if limit := caps.MaxTextureSize; limit > 0 && (w > limit || h > limit) {
		if w >= h {
			h = max(uint32(uint64(h)*uint64(limit)/uint64(w)), 1)
			w = limit
		} else {
			w = max(uint32(uint64(w)*uint64(limit)/uint64(h)), 1)
			h = limit
		}
	}
	return w, h
}

// Scale resamples RGBA staging data to width x height with a Catmull-Rom filter.
// The source is returned unchanged when the size already matches.
//
// Parameters:
//   - src: the source pixels
//   - width: target width
//   - height: target height
//
// Returns:
//   - common.TextureStagingData: the resampled pixels
func Scale(src common.TextureStagingData, width, height uint32) common.TextureStagingData {
	if src.Width == width && src.Height == height {
		return src
	}
	in := &image.RGBA{
		Pix:    src.Pixels,
		Stride: int(src.Width) * 4,
		Rect:   image.Rect(0, 0, int(src.Width), int(src.Height)),
	}
	out := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.CatmullRom.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)

	return common.TextureStagingData{
		Pixels: out.Pix,
		Width:  width,
		Height: height,
	}
}
