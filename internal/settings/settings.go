// Package settings derives concrete encode parameters (bitrates,
// resolution, framerate) for one compression attempt. Derivation is a pure
// function of the target, the source properties, and the attempt state the
// controller threads through; it performs no I/O.
package settings

import (
	"errors"
	"math"

	"vidfit/internal/model"
	"vidfit/internal/preset"
)

const (
	// CrushThresholdBps is the total bitrate below which crush mode
	// activates: the 240p tier floor (150 kbps) plus a good-quality Opus
	// audio bitrate (96 kbps). Below this sum, a normal audio bitrate
	// would force the video below the 240p floor and down to 144p;
	// crushing audio instead can keep the higher tier reachable.
	CrushThresholdBps = (150 + 96) * 1000

	// CrushedAudioBitrate is the Opus bitrate used in crush mode.
	CrushedAudioBitrate = 6_000

	// NormalAudioBitrate is the Opus bitrate used outside crush mode.
	NormalAudioBitrate = 96_000

	// MinVideoBitrate is the absolute floor below which no meaningful
	// image survives and the run must abort.
	MinVideoBitrate = 1_000

	crushFpsCap = 24
	clearFpsCap = 30
	smoothFpsCap = 60
)

// ErrBitrateTooLow signals that the computed video bitrate fell below
// MinVideoBitrate. It is terminal for the whole run: retrying with an
// equal or smaller factor cannot help.
var ErrBitrateTooLow = errors.New("video bitrate too low")

// Tuning holds the empirically-tuned correction constants. Both are
// deliberately configurable rather than hard-coded; see config keys
// overshoot_comp and damping.
type Tuning struct {
	// OvershootComp scales the raw bitrate budget down to counteract
	// container overhead and encoder overshoot tendency.
	OvershootComp float64
	// Damping under-corrects the attempt-to-attempt factor update to
	// avoid oscillating across the target near the tolerance boundary.
	Damping float64
}

// DefaultTuning returns the default correction constants.
func DefaultTuning() Tuning {
	return Tuning{OvershootComp: 0.97, Damping: 0.96}
}

// Input carries everything Derive needs for one attempt.
type Input struct {
	Target model.TargetSpec
	Source model.VideoProperties

	// Factor is the controller's scaling factor, starting at 1.0.
	Factor float64
	// ForceCrush keeps crush mode on once a previous attempt used it.
	ForceCrush bool
	// HeightCeiling, when > 0, caps the tier height; it only ever
	// tightens across attempts.
	HeightCeiling int

	Tuning Tuning
}

// Derive computes the encode settings for one attempt, or ErrBitrateTooLow
// when the budget cannot fit a usable video stream.
func Derive(in Input) (model.EncodeSettings, error) {
	src := in.Source

	targetBits := float64(in.Target.TargetBytes()) * 8
	targetBitrate := int64(math.Round(targetBits / src.Duration * in.Factor * in.Tuning.OvershootComp))

	crushed := crushActive(targetBitrate, in.ForceCrush)

	audioBitrate := int64(NormalAudioBitrate)
	if crushed {
		audioBitrate = CrushedAudioBitrate
	}
	videoBitrate := targetBitrate - audioBitrate
	if videoBitrate < MinVideoBitrate {
		return model.EncodeSettings{}, ErrBitrateTooLow
	}

	tierHeight := 0
	maxFps := 0.0
	switch {
	case crushed:
		maxFps = crushFpsCap
	case in.Target.FpsPolicy == model.FpsPreferClear:
		maxFps = clearFpsCap
	case in.Target.FpsPolicy == model.FpsPreferSmooth:
		maxFps = smoothFpsCap
	default: // auto
		h30 := preset.RecommendedHeight(videoBitrate, src.Width, src.Height, 30)
		h60 := preset.RecommendedHeight(videoBitrate, src.Width, src.Height, 60)
		tierHeight = h30
		if h30 == h60 && h30 >= 720 {
			maxFps = smoothFpsCap
		} else {
			maxFps = clearFpsCap
		}
	}

	keepSourceFps := src.FPS <= maxFps
	outFps := src.FPS
	if !keepSourceFps {
		outFps = maxFps
	}

	if tierHeight == 0 {
		tierHeight = preset.RecommendedHeight(videoBitrate, src.Width, src.Height, outFps)
	}

	reduced := false
	if in.HeightCeiling > 0 && tierHeight > in.HeightCeiling {
		tierHeight = in.HeightCeiling
		reduced = true
	}

	w, h := frameDims(src, tierHeight)

	frameRate := outFps
	if keepSourceFps {
		frameRate = 0 // keep-source sentinel
	}

	return model.EncodeSettings{
		VideoBitrate:      videoBitrate,
		AudioBitrate:      audioBitrate,
		Width:             w,
		Height:            h,
		TierHeight:        tierHeight,
		FrameRate:         frameRate,
		Crushed:           crushed,
		ResolutionReduced: reduced,
	}, nil
}

// crushActive decides crush mode from the total target bitrate. The
// comparison is strictly below threshold: exactly 246000 bps does not
// crush.
func crushActive(targetBitrate int64, force bool) bool {
	return force || targetBitrate < CrushThresholdBps
}

// frameDims scales the source's display frame so its short edge equals
// tierHeight, keeping aspect ratio and rounding the long edge to an even
// pixel count.
func frameDims(src model.VideoProperties, tierHeight int) (int, int) {
	dw, dh := src.DisplayDims()
	if dh <= dw {
		scale := float64(dh) / float64(tierHeight)
		return evenTrunc(float64(dw)/scale + 1), tierHeight
	}
	scale := float64(dw) / float64(tierHeight)
	return tierHeight, evenTrunc(float64(dh)/scale + 1)
}

func evenTrunc(x float64) int {
	return int(x/2) * 2
}
