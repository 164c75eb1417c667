// Package controller runs the attempt loop for one compression run: derive
// settings, transcode, measure, correct, repeat until the output size lands
// inside the acceptance band or the run becomes terminal.
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vidfit/internal/model"
	"vidfit/internal/settings"
)

// Outcome is the terminal state of one compression run.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// ErrOutputMissing signals that the encoder reported success but the output
// file could not be found when measuring its size.
var ErrOutputMissing = errors.New("output file missing after transcode")

// TranscodeJob describes one two-pass encode of the input at the derived
// settings.
type TranscodeJob struct {
	Attempt      int
	InputPath    string
	OutputPath   string
	LogPath      string // two-pass stats log prefix, unique per run
	Settings     model.EncodeSettings
	Codec        model.Codec
	ExtraQuality bool
	HWAccel      bool
	FrameCount   int64
}

// Transcoder executes a single two-pass encode. On encoder failure the
// returned error carries the encoder's own diagnostic output; it is
// surfaced verbatim. Implementations must honor ctx cancellation by killing
// the underlying process.
type Transcoder interface {
	Transcode(ctx context.Context, job TranscodeJob) error
}

// Callbacks deliver per-attempt information for display. Either field may
// be nil.
type Callbacks struct {
	// OnAttemptStart fires before each transcode with the derived settings.
	OnAttemptStart func(attempt int, set model.EncodeSettings)
	// OnAttemptFail fires when an attempt produced a playable output whose
	// size fell outside the acceptance band and another attempt follows.
	OnAttemptFail func(attempt int, set model.EncodeSettings, outBytes, targetBytes int64)
}

// Job is one full compression run.
type Job struct {
	InputPath  string
	OutputPath string
	LogPath    string
	Target     model.TargetSpec
	Source     model.VideoProperties
	Callbacks  Callbacks
}

// Result is the terminal outcome of Compress.
type Result struct {
	Outcome     Outcome
	OutputBytes int64
	Attempts    int
	// AlreadyFits is set when the source was at or under target and no
	// transcode ran.
	AlreadyFits bool
	Err         error // non-nil only when Outcome == Failed
}

// AttemptState is the mutable state threaded through the attempt loop. All
// three ratchets only ever move in the direction that shrinks the output:
// the factor-independent ceiling and crush flags never relax within a run.
type AttemptState struct {
	Attempt       int
	Factor        float64
	HeightCeiling int // 0 = unset
	ForceCrush    bool
}

// NewAttemptState returns the state for attempt 1 of a fresh run.
func NewAttemptState() AttemptState {
	return AttemptState{Factor: 1.0}
}

// TightenCeiling lowers the resolution ceiling to h. It never raises an
// existing ceiling.
func (s *AttemptState) TightenCeiling(h int) {
	if s.HeightCeiling == 0 || h < s.HeightCeiling {
		s.HeightCeiling = h
	}
}

// ApplyCorrection updates the scaling factor from the observed percentage
// of target. Damping intentionally under-corrects so alternating attempts
// do not oscillate across the target.
func (s *AttemptState) ApplyCorrection(percentOfTarget, damping float64) {
	s.Factor *= damping * (100 / percentOfTarget)
}

// Controller drives compression runs against a Transcoder.
type Controller struct {
	transcoder Transcoder
	tuning     settings.Tuning
}

// New returns a Controller using the given transcoder and tuning constants.
func New(t Transcoder, tuning settings.Tuning) *Controller {
	return &Controller{transcoder: t, tuning: tuning}
}

// Compress runs the attempt loop to completion. It never returns an error
// value alongside a success or cancellation: hard errors are carried in
// Result.Err with Outcome == Failed so callers present them uniformly.
func (c *Controller) Compress(ctx context.Context, job Job) Result {
	targetBytes := job.Target.TargetBytes()

	if job.Source.SizeBytes > 0 && job.Source.SizeBytes <= targetBytes {
		return Result{Outcome: Succeeded, OutputBytes: job.Source.SizeBytes, AlreadyFits: true}
	}

	st := NewAttemptState()
	for {
		if ctx.Err() != nil {
			return Result{Outcome: Cancelled, Attempts: st.Attempt}
		}

		set, err := settings.Derive(settings.Input{
			Target:        job.Target,
			Source:        job.Source,
			Factor:        st.Factor,
			ForceCrush:    st.ForceCrush,
			HeightCeiling: st.HeightCeiling,
			Tuning:        c.tuning,
		})
		if err != nil {
			return Result{
				Outcome:  Failed,
				Attempts: st.Attempt,
				Err:      fmt.Errorf("attempt %d: %w", st.Attempt+1, err),
			}
		}
		st.Attempt++

		if job.Callbacks.OnAttemptStart != nil {
			job.Callbacks.OnAttemptStart(st.Attempt, set)
		}

		terr := c.transcoder.Transcode(ctx, TranscodeJob{
			Attempt:      st.Attempt,
			InputPath:    job.InputPath,
			OutputPath:   job.OutputPath,
			LogPath:      job.LogPath,
			Settings:     set,
			Codec:        job.Target.Codec,
			ExtraQuality: job.Target.ExtraQuality,
			HWAccel:      job.Target.HWAccel,
			FrameCount:   job.Source.FrameCount,
		})
		if ctx.Err() != nil {
			return Result{Outcome: Cancelled, Attempts: st.Attempt}
		}
		if terr != nil {
			return Result{Outcome: Failed, Attempts: st.Attempt, Err: terr}
		}

		fi, serr := os.Stat(job.OutputPath)
		if serr != nil {
			return Result{
				Outcome:  Failed,
				Attempts: st.Attempt,
				Err:      fmt.Errorf("%w: %s", ErrOutputMissing, job.OutputPath),
			}
		}
		outBytes := fi.Size()
		percent := 100 * float64(outBytes) / float64(targetBytes)

		tolerance := float64(job.Target.TolerancePct)
		if percent >= 100-tolerance && percent <= 100 {
			return Result{Outcome: Succeeded, OutputBytes: outBytes, Attempts: st.Attempt}
		}

		// An undershoot at a ceiling-clamped resolution cannot be improved
		// by another attempt at the same resolution; accept it.
		if percent < 100 && set.ResolutionReduced {
			return Result{Outcome: Succeeded, OutputBytes: outBytes, Attempts: st.Attempt}
		}

		if job.Callbacks.OnAttemptFail != nil {
			job.Callbacks.OnAttemptFail(st.Attempt, set, outBytes, targetBytes)
		}

		// Past half the target, this resolution is as high as any later
		// attempt may go; a taller frame would likely overshoot.
		if percent > 50 {
			st.TightenCeiling(set.TierHeight)
		}
		if set.Crushed {
			st.ForceCrush = true
		}
		st.ApplyCorrection(percent, c.tuning.Damping)
	}
}
