package pipeline

import (
	"context"
	"fmt"

	"vidfit/internal/model"
	"vidfit/internal/settings"
)

// Plan describes what the first encode attempt would do for one input,
// without running ffmpeg. Later attempts adjust from measured sizes, so
// this is a starting point, not a promise.
type Plan struct {
	InputPath  string
	OutputPath string
	Source     model.VideoProperties
	Settings   model.EncodeSettings
	Target     model.TargetSpec

	// AlreadyFits means no encode would run at all.
	AlreadyFits bool
}

// PlanJob probes the input and derives the first attempt's settings.
func (s *Service) PlanJob(ctx context.Context, inputPath string) (Plan, error) {
	src, err := s.prober.Probe(ctx, inputPath)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrProbe, err)
	}

	target := s.target()
	pl := Plan{
		InputPath: inputPath,
		Source:    src,
		Target:    target,
	}

	if src.SizeBytes > 0 && src.SizeBytes <= target.TargetBytes() {
		pl.AlreadyFits = true
		pl.OutputPath = inputPath
		return pl, nil
	}

	outputPath, err := s.resolveOutputPath(inputPath)
	if err != nil {
		return Plan{}, err
	}
	pl.OutputPath = outputPath

	set, err := settings.Derive(settings.Input{
		Target: target,
		Source: src,
		Factor: 1.0,
		Tuning: s.tuning,
	})
	if err != nil {
		return Plan{}, err
	}
	pl.Settings = set
	return pl, nil
}
