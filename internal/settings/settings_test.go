package settings

import (
	"errors"
	"testing"

	"vidfit/internal/model"
)

func src1080p60() model.VideoProperties {
	return model.VideoProperties{
		Width:      1920,
		Height:     1080,
		FPS:        60,
		Duration:   60,
		FrameCount: 3600,
		SizeBytes:  200 * 1024 * 1024,
	}
}

// exactTuning removes the overshoot compensation so expected values can be
// computed by hand.
func exactTuning() Tuning {
	return Tuning{OvershootComp: 1.0, Damping: 0.96}
}

func TestDeriveBasic(t *testing.T) {
	in := Input{
		Target: model.TargetSpec{SizeMiB: 10, FpsPolicy: model.FpsAuto},
		Source: src1080p60(),
		Factor: 1.0,
		Tuning: exactTuning(),
	}
	set, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	// 10 MiB * 8 bits / 60 s = 1398101.3 bps total, minus 96 kbps audio
	if set.VideoBitrate != 1398101-96000 {
		t.Errorf("VideoBitrate = %d, want %d", set.VideoBitrate, 1398101-96000)
	}
	if set.AudioBitrate != NormalAudioBitrate {
		t.Errorf("AudioBitrate = %d, want %d", set.AudioBitrate, NormalAudioBitrate)
	}
	// ~1.3 Mbps: 720p on the 30fps table, 480p on the 60fps table, so the
	// heights disagree and auto mode falls back to 30 fps.
	if set.TierHeight != 720 {
		t.Errorf("TierHeight = %d, want 720", set.TierHeight)
	}
	if set.FrameRate != 30 {
		t.Errorf("FrameRate = %g, want 30", set.FrameRate)
	}
	if set.Width != 1280 || set.Height != 720 {
		t.Errorf("dims = %dx%d, want 1280x720", set.Width, set.Height)
	}
	if set.Crushed || set.ResolutionReduced {
		t.Errorf("unexpected flags: crushed=%v reduced=%v", set.Crushed, set.ResolutionReduced)
	}
}

func TestDeriveAutoAllowsSixtyWhenHeightsAgree(t *testing.T) {
	in := Input{
		Target: model.TargetSpec{SizeMiB: 10, FpsPolicy: model.FpsAuto},
		Source: src1080p60(),
		Factor: 2.6, // pushes video bitrate past the 60fps table's 1080p floor
		Tuning: exactTuning(),
	}
	set, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if set.TierHeight != 1080 {
		t.Errorf("TierHeight = %d, want 1080", set.TierHeight)
	}
	// Source is 60 fps and the ceiling is 60, so the source rate is kept.
	if set.FrameRate > 0 {
		t.Errorf("FrameRate = %g, want keep-source sentinel", set.FrameRate)
	}
}

func TestDeriveMonotonicInFactor(t *testing.T) {
	base := Input{
		Target: model.TargetSpec{SizeMiB: 10, FpsPolicy: model.FpsAuto},
		Source: src1080p60(),
		Tuning: DefaultTuning(),
	}
	var prev int64 = -1
	for _, factor := range []float64{0.3, 0.5, 0.8, 1.0, 1.2, 2.0} {
		in := base
		in.Factor = factor
		set, err := Derive(in)
		if err != nil {
			t.Fatalf("Derive(factor=%g) error = %v", factor, err)
		}
		if set.VideoBitrate < prev {
			t.Errorf("factor %g: VideoBitrate %d below previous %d", factor, set.VideoBitrate, prev)
		}
		prev = set.VideoBitrate
	}
}

func TestDeriveNeverUpscales(t *testing.T) {
	sources := []model.VideoProperties{
		{Width: 640, Height: 360, FPS: 25, Duration: 30},
		{Width: 1920, Height: 1080, FPS: 60, Duration: 120},
		{Width: 1080, Height: 1920, FPS: 30, Duration: 45},
		{Width: 1920, Height: 1080, FPS: 30, Duration: 45, Rotation: -90},
	}
	for _, src := range sources {
		for _, mib := range []int{2, 8, 25, 100} {
			in := Input{
				Target: model.TargetSpec{SizeMiB: mib, FpsPolicy: model.FpsAuto},
				Source: src,
				Factor: 1.0,
				Tuning: DefaultTuning(),
			}
			set, err := Derive(in)
			if err != nil {
				continue
			}
			dw, dh := src.DisplayDims()
			if set.Height > dh || set.Width > dw+2 {
				t.Errorf("source %dx%d rot=%d target=%dMiB: output %dx%d upscales",
					src.Width, src.Height, src.Rotation, mib, set.Width, set.Height)
			}
			if set.FrameRate > src.FPS {
				t.Errorf("output framerate %g exceeds source %g", set.FrameRate, src.FPS)
			}
		}
	}
}

func TestDeriveHeightCeilingClamp(t *testing.T) {
	in := Input{
		Target:        model.TargetSpec{SizeMiB: 10, FpsPolicy: model.FpsAuto},
		Source:        src1080p60(),
		Factor:        1.0,
		HeightCeiling: 480,
		Tuning:        exactTuning(),
	}
	set, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if set.TierHeight != 480 {
		t.Errorf("TierHeight = %d, want ceiling 480", set.TierHeight)
	}
	if !set.ResolutionReduced {
		t.Error("ResolutionReduced = false, want true when clamped")
	}
	if set.Width != 854 || set.Height != 480 {
		t.Errorf("dims = %dx%d, want 854x480", set.Width, set.Height)
	}
}

func TestDeriveCeilingAboveRecommendationIsNoop(t *testing.T) {
	in := Input{
		Target:        model.TargetSpec{SizeMiB: 10, FpsPolicy: model.FpsAuto},
		Source:        src1080p60(),
		Factor:        1.0,
		HeightCeiling: 1080,
		Tuning:        exactTuning(),
	}
	set, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if set.ResolutionReduced {
		t.Error("ResolutionReduced = true for a ceiling above the recommendation")
	}
}

func TestDeriveBitrateFloor(t *testing.T) {
	in := Input{
		Target: model.TargetSpec{SizeMiB: 1, FpsPolicy: model.FpsAuto},
		Source: model.VideoProperties{Width: 1920, Height: 1080, FPS: 30, Duration: 10_000},
		Factor: 1.0,
		Tuning: DefaultTuning(),
	}
	_, err := Derive(in)
	if !errors.Is(err, ErrBitrateTooLow) {
		t.Fatalf("Derive() error = %v, want ErrBitrateTooLow", err)
	}
}

func TestCrushBoundary(t *testing.T) {
	tests := []struct {
		bitrate int64
		force   bool
		want    bool
	}{
		{246_000, false, false}, // boundary is strict
		{245_999, false, true},
		{246_001, false, false},
		{1_000_000, false, false},
		{1_000_000, true, true}, // ratchet overrides
	}
	for _, tt := range tests {
		if got := crushActive(tt.bitrate, tt.force); got != tt.want {
			t.Errorf("crushActive(%d, %v) = %v, want %v", tt.bitrate, tt.force, got, tt.want)
		}
	}
}

func TestDeriveCrushCapsFramerate(t *testing.T) {
	// Force crush with an otherwise comfortable budget; the 24 fps cap must
	// win even under prefer-smooth.
	in := Input{
		Target:     model.TargetSpec{SizeMiB: 10, FpsPolicy: model.FpsPreferSmooth},
		Source:     src1080p60(),
		Factor:     1.0,
		ForceCrush: true,
		Tuning:     exactTuning(),
	}
	set, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if !set.Crushed {
		t.Error("Crushed = false with ForceCrush set")
	}
	if set.AudioBitrate != CrushedAudioBitrate {
		t.Errorf("AudioBitrate = %d, want crushed %d", set.AudioBitrate, CrushedAudioBitrate)
	}
	if set.FrameRate != 24 {
		t.Errorf("FrameRate = %g, want 24", set.FrameRate)
	}
}

func TestDerivePolicyCaps(t *testing.T) {
	for _, tt := range []struct {
		policy model.FpsPolicy
		want   float64
	}{
		{model.FpsPreferClear, 30},
		{model.FpsPreferSmooth, 0}, // 60 cap, source is 60: keep-source sentinel
	} {
		in := Input{
			Target: model.TargetSpec{SizeMiB: 10, FpsPolicy: tt.policy},
			Source: src1080p60(),
			Factor: 1.0,
			Tuning: exactTuning(),
		}
		set, err := Derive(in)
		if err != nil {
			t.Fatalf("Derive(%s) error = %v", tt.policy, err)
		}
		if set.FrameRate != tt.want {
			t.Errorf("policy %s: FrameRate = %g, want %g", tt.policy, set.FrameRate, tt.want)
		}
	}
}

func TestDeriveRotatedSourceSwapsDims(t *testing.T) {
	src := model.VideoProperties{Width: 1920, Height: 1080, FPS: 30, Duration: 60, Rotation: -90}
	in := Input{
		Target: model.TargetSpec{SizeMiB: 10, FpsPolicy: model.FpsPreferClear},
		Source: src,
		Factor: 1.0,
		Tuning: exactTuning(),
	}
	set, err := Derive(in)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if set.Width >= set.Height {
		t.Errorf("dims = %dx%d, want portrait orientation for rotated source", set.Width, set.Height)
	}
	if set.Width != set.TierHeight {
		t.Errorf("portrait short edge %d != tier height %d", set.Width, set.TierHeight)
	}
}
