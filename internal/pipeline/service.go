// Package pipeline provides planning and orchestration for a compression run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"vidfit/internal/controller"
	"vidfit/internal/dirs"
	"vidfit/internal/encoder"
	"vidfit/internal/model"
	"vidfit/internal/probe"
	"vidfit/internal/progress"
	"vidfit/internal/settings"
	"vidfit/internal/util"
	"vidfit/internal/util/format"
)

// Service orchestrates the probe → compress → finalize workflow for one
// input file.
type Service struct {
	ffmpegPath  string
	ffprobePath string
	opts        model.CLIOptions
	tuning      settings.Tuning
	runner      util.CmdRunner
	reporter    progress.Reporter
	jobID       string
	prober      probe.Prober
	transcoder  controller.Transcoder
}

// ErrProbe marks failures while reading an input's properties, so callers
// can distinguish "could not read the file" from "could not shrink it".
var ErrProbe = errors.New("probe")

// Option configures a Service.
type Option func(*Service)

// WithFFmpegPath sets the ffmpeg binary path.
func WithFFmpegPath(p string) Option {
	return func(s *Service) {
		s.ffmpegPath = p
	}
}

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(p string) Option {
	return func(s *Service) {
		s.ffprobePath = p
	}
}

// WithCLIOptions sets the CLI options used for planning and execution.
func WithCLIOptions(o model.CLIOptions) Option {
	return func(s *Service) {
		s.opts = o
	}
}

// WithTuning overrides the correction constants of the attempt loop.
func WithTuning(t settings.Tuning) Option {
	return func(s *Service) {
		s.tuning = t
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithReporter attaches a progress reporter (used by TUI).
func WithReporter(rp progress.Reporter) Option {
	return func(s *Service) {
		s.reporter = rp
	}
}

// WithJobID sets the job ID associated with reporter events.
func WithJobID(id string) Option {
	return func(s *Service) {
		s.jobID = id
	}
}

// WithProber injects a custom prober (useful for testing).
func WithProber(p probe.Prober) Option {
	return func(s *Service) {
		s.prober = p
	}
}

// WithTranscoder injects a custom transcoder (useful for testing).
func WithTranscoder(t controller.Transcoder) Option {
	return func(s *Service) {
		s.transcoder = t
	}
}

// NewService constructs a new Service with the provided options.
// It applies sensible defaults for missing components.
func NewService(opts ...Option) *Service {
	s := &Service{}
	for _, o := range opts {
		o(s)
	}
	if s.runner == nil {
		s.runner = util.NewDefaultRunner()
	}
	if s.tuning == (settings.Tuning{}) {
		s.tuning = settings.DefaultTuning()
	}
	if s.prober == nil {
		s.prober = &probe.FFprobe{Path: s.ffprobePath, Runner: s.runner}
	}
	if s.transcoder == nil {
		s.transcoder = &encoder.FFmpeg{
			Path:     s.ffmpegPath,
			Runner:   s.runner,
			Reporter: s.reporter,
			JobID:    s.jobID,
			Verbose:  s.opts.Verbose,
		}
	}
	return s
}

// Result returns the outcome of RunJob.
type Result struct {
	InputPath   string
	OutputPath  string
	Bytes       int64
	Attempts    int
	AlreadyFits bool
	Cancelled   bool
	LogDir      string // set only when logs were kept
}

// RunJob executes the full pipeline for a single input file.
// It never prints; when a Reporter is present, it emits progress and a
// final Result. A cancelled run returns Cancelled=true with a nil error.
func (s *Service) RunJob(ctx context.Context, inputPath string) (Result, error) {
	var res Result
	res.InputPath = inputPath

	if s.ffmpegPath == "" {
		return res, s.fail(inputPath, fmt.Errorf("ffmpeg path is required"))
	}
	if _, err := os.Stat(inputPath); err != nil {
		return res, s.fail(inputPath, fmt.Errorf("input: %w", err))
	}

	s.emitUpdate(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageProbing,
		Percent: -1,
		Message: "Reading video properties",
	})

	src, err := s.prober.Probe(ctx, inputPath)
	if err != nil {
		return res, s.fail(inputPath, fmt.Errorf("%w: %w", ErrProbe, err))
	}

	outputPath, err := s.resolveOutputPath(inputPath)
	if err != nil {
		return res, s.fail(inputPath, err)
	}
	res.OutputPath = outputPath

	logDir, logPath, err := makeLogDir()
	if err != nil {
		return res, s.fail(inputPath, fmt.Errorf("log dir: %w", err))
	}
	defer func() {
		if !s.opts.KeepLogs {
			_ = os.RemoveAll(logDir)
		}
	}()
	if s.opts.KeepLogs {
		res.LogDir = logDir
	}

	ctrl := controller.New(s.transcoder, s.tuning)
	cres := ctrl.Compress(ctx, controller.Job{
		InputPath:  inputPath,
		OutputPath: outputPath,
		LogPath:    logPath,
		Target:     s.target(),
		Source:     src,
		Callbacks: controller.Callbacks{
			OnAttemptStart: s.onAttemptStart,
			OnAttemptFail:  s.onAttemptFail,
		},
	})

	res.Attempts = cres.Attempts
	switch cres.Outcome {
	case controller.Cancelled:
		res.Cancelled = true
		return res, nil
	case controller.Failed:
		return res, s.fail(inputPath, cres.Err)
	}

	res.Bytes = cres.OutputBytes
	res.AlreadyFits = cres.AlreadyFits
	if cres.AlreadyFits {
		res.OutputPath = inputPath
	}
	s.emitSaved(res)
	return res, nil
}

// resolveOutputPath picks the output file location: an explicit -o path
// wins; otherwise the file lands next to the input (or in OutDir) as
// "<name> (compressed).mp4", never clobbering an existing file.
func (s *Service) resolveOutputPath(inputPath string) (string, error) {
	if s.opts.OutPath != "" {
		if err := util.EnsureDir(filepath.Dir(s.opts.OutPath)); err != nil {
			return "", fmt.Errorf("ensure output dir: %w", err)
		}
		return s.opts.OutPath, nil
	}

	base := filepath.Base(inputPath)
	root := base[:len(base)-len(filepath.Ext(base))]
	dir := filepath.Dir(inputPath)
	if s.opts.OutDir != "" {
		dir = s.opts.OutDir
		if err := util.EnsureDir(dir); err != nil {
			return "", fmt.Errorf("ensure output dir: %w", err)
		}
	}
	return util.UniquePath(filepath.Join(dir, root+" (compressed).mp4")), nil
}

// makeLogDir creates a unique directory for this run's two-pass stats logs
// so parallel jobs never trample each other's state.
func makeLogDir() (dir, logPath string, err error) {
	base, err := dirs.TempBaseDir()
	if err != nil {
		return "", "", err
	}
	dir = filepath.Join(base, uuid.NewString())
	if err := util.EnsureDir(dir); err != nil {
		return "", "", err
	}
	return dir, filepath.Join(dir, "ffmpeg2pass"), nil
}

func (s *Service) target() model.TargetSpec {
	return model.TargetSpec{
		SizeMiB:      s.opts.TargetSizeMiB,
		TolerancePct: s.opts.TolerancePct,
		FpsPolicy:    s.opts.FpsPolicy,
		Codec:        s.opts.Codec,
		ExtraQuality: s.opts.ExtraQuality,
		HWAccel:      s.opts.HWAccel,
	}
}

func (s *Service) onAttemptStart(attempt int, set model.EncodeSettings) {
	fps := "source fps"
	if set.FrameRate > 0 {
		fps = fmt.Sprintf("%gfps", set.FrameRate)
	}
	s.emitUpdate(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageEncoding,
		Percent: 0,
		Attempt: attempt,
		Message: fmt.Sprintf("Attempt %d: %dx%d @ %s, video %d kbps, audio %d kbps",
			attempt, set.Width, set.Height, fps, set.VideoBitrate/1000, set.AudioBitrate/1000),
	})
}

func (s *Service) onAttemptFail(attempt int, set model.EncodeSettings, outBytes, targetBytes int64) {
	if s.reporter == nil {
		return
	}
	pct := 100 * float64(outBytes) / float64(targetBytes)
	s.reporter.Log(progress.Log{
		JobID:  s.jobID,
		Stream: progress.StreamStdout,
		Line: fmt.Sprintf("attempt %d landed at %.1f%% of target (%s), retrying",
			attempt, pct, format.HumanizeBytes(outBytes)),
	})
}

func (s *Service) emitUpdate(u progress.Update) {
	if s.reporter != nil {
		s.reporter.Update(u)
	}
}

// fail forwards the error to the reporter before returning it.
func (s *Service) fail(inputPath string, err error) error {
	if s.reporter != nil {
		s.reporter.Update(progress.Update{
			JobID:   s.jobID,
			Stage:   progress.StageError,
			Percent: -1,
			Message: err.Error(),
		})
		s.reporter.Result(progress.Result{JobID: s.jobID, InputPath: inputPath, Err: err})
	}
	return err
}

// emitSaved sends a final "saved" update and reporter result for TUI.
func (s *Service) emitSaved(res Result) {
	if s.reporter == nil {
		return
	}
	name := filepath.Base(res.OutputPath)
	size := format.HumanizeBytes(res.Bytes)
	msg := fmt.Sprintf("Saved: %s (%s, %d attempts)", name, size, res.Attempts)
	if res.AlreadyFits {
		msg = fmt.Sprintf("Already fits: %s (%s)", name, size)
	}
	s.reporter.Update(progress.Update{
		JobID:   s.jobID,
		Stage:   progress.StageCompleted,
		Percent: 100,
		Attempt: res.Attempts,
		Message: msg,
	})
	s.reporter.Result(progress.Result{
		JobID:      s.jobID,
		InputPath:  res.InputPath,
		OutputPath: res.OutputPath,
		Bytes:      res.Bytes,
		Attempts:   res.Attempts,
		Err:        nil,
	})
}
