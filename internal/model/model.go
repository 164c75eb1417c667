package model

import "fmt"

// FpsPolicy controls the framerate ceiling applied to the output.
type FpsPolicy string

const (
	FpsAuto         FpsPolicy = "auto"
	FpsPreferClear  FpsPolicy = "prefer-clear"
	FpsPreferSmooth FpsPolicy = "prefer-smooth"
)

// ParseFpsPolicy validates a user-supplied framerate policy string.
func ParseFpsPolicy(s string) (FpsPolicy, error) {
	switch FpsPolicy(s) {
	case FpsAuto, FpsPreferClear, FpsPreferSmooth:
		return FpsPolicy(s), nil
	}
	return "", fmt.Errorf("invalid framerate policy: %q (valid: auto|prefer-clear|prefer-smooth)", s)
}

// Codec identifies the video codec used for encoding. It is a closed set;
// per-codec encoder names and speed presets live in the encoder package.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecHEVC Codec = "hevc"
	CodecAV1  Codec = "av1"
	CodecVP9  Codec = "vp9"
)

// ParseCodec validates a user-supplied codec string.
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case CodecH264, CodecHEVC, CodecAV1, CodecVP9:
		return Codec(s), nil
	}
	return "", fmt.Errorf("invalid codec: %q (valid: h264|hevc|av1|vp9)", s)
}

// CLIOptions holds user-configurable runtime options as parsed from flags.
type CLIOptions struct {
	OutDir        string // Output directory; empty = alongside each input.
	OutPath       string // Explicit output file path (single input only).
	TargetSizeMiB int
	TolerancePct  int // End size may land this far under target, in percent.
	FpsPolicy     FpsPolicy
	Codec         Codec
	ExtraQuality  bool
	HWAccel       bool
	KeepLogs      bool // Keep per-run two-pass log files for inspection.
	Verbose       bool

	FFmpegPath  string // Optional explicit ffmpeg binary path.
	FFprobePath string // Optional explicit ffprobe binary path.

	NoUI bool // Disable TUI when true
	Jobs int  // Max concurrent jobs for TUI
}

// TargetSpec captures the user's intent for one compression run.
type TargetSpec struct {
	SizeMiB      int
	TolerancePct int
	FpsPolicy    FpsPolicy
	Codec        Codec
	ExtraQuality bool
	HWAccel      bool
}

// TargetBytes returns the target size in bytes.
func (t TargetSpec) TargetBytes() int64 {
	return int64(t.SizeMiB) * 1024 * 1024
}

// VideoProperties is an immutable snapshot of one input file, probed once
// per compression run.
type VideoProperties struct {
	Width      int     // pixels, container orientation
	Height     int     // pixels, container orientation
	FPS        float64 // frames per second
	Duration   float64 // seconds
	FrameCount int64
	Rotation   int // degrees, one of 0, ±90, 180
	SizeBytes  int64
}

// Rotated reports whether display orientation is swapped relative to the
// container frame.
func (v VideoProperties) Rotated() bool {
	return v.Rotation == 90 || v.Rotation == -90
}

// DisplayDims returns width and height as displayed, accounting for
// rotation metadata.
func (v VideoProperties) DisplayDims() (int, int) {
	if v.Rotated() {
		return v.Height, v.Width
	}
	return v.Width, v.Height
}

// Portrait reports whether the video displays taller than wide.
func (v VideoProperties) Portrait() bool {
	w, h := v.DisplayDims()
	return h > w
}

// EncodeSettings is the deriver's output for one attempt.
type EncodeSettings struct {
	VideoBitrate int64 // bits/second
	AudioBitrate int64 // bits/second; one of the crushed or normal values
	Width        int   // encode dimensions, display orientation
	Height       int
	TierHeight   int     // short-edge "Np" value; the resolution-ceiling unit
	FrameRate    float64 // <= 0 means keep the source framerate
	Crushed      bool
	// ResolutionReduced is set when the height was clamped by a previous
	// attempt's ceiling.
	ResolutionReduced bool
}
