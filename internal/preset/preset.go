// Package preset maps a candidate video bitrate to a recommended output
// resolution tier. Bitrate-resolution recommendations are taken from
// https://developers.google.com/media/vp9/settings/vod
package preset

type tier struct {
	floorKbps float64
	width     int
	height    int
}

// Tables must stay strictly descending by floor; lookup takes the first
// match.
var tiers30 = []tier{
	{12000, 3840, 2160},
	{6000, 2560, 1440},
	{1800, 1920, 1080},
	{1024, 1280, 720},
	{512, 640, 480},
	{276, 640, 360},
	{150, 320, 240},
	{0, 192, 144},
}

var tiers60 = []tier{
	{18000, 3840, 2160},
	{9000, 2560, 1440},
	{3000, 1920, 1080},
	{1800, 1280, 720},
	{750, 640, 480},
	{276, 640, 360},
	{150, 320, 240},
	{0, 192, 144},
}

// RecommendedHeight returns a suitable resolution tier height (1080, 720,
// etc.) for the given video bitrate and source resolution. A tier is only
// eligible when its nominal frame is no larger than the source frame, so a
// video is never upscaled. When even the lowest tier is larger than the
// source, the source's own short-edge dimension is returned (no downscale).
func RecommendedHeight(bitrateBps int64, srcWidth, srcHeight int, fps float64) int {
	kbps := float64(bitrateBps) / 1000
	srcPixels := srcWidth * srcHeight

	tiers := tiers30
	if fps > 30 {
		tiers = tiers60
	}

	for _, t := range tiers {
		if kbps >= t.floorKbps && srcPixels >= t.width*t.height {
			return t.height
		}
	}

	if srcHeight > srcWidth {
		return srcWidth
	}
	return srcHeight
}
