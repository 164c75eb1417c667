// Package encoder drives ffmpeg two-pass encodes. Argument construction and
// progress parsing are split out so they can be tested without a binary.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vidfit/internal/controller"
	"vidfit/internal/progress"
	"vidfit/internal/util"
)

// stderrTailLines bounds how much encoder output is carried into the error
// when a pass fails. ffmpeg prints its diagnosis at the very end.
const stderrTailLines = 12

// FFmpeg executes two-pass encodes through an external ffmpeg binary. It
// implements controller.Transcoder.
type FFmpeg struct {
	Path     string            // ffmpeg binary path
	Runner   util.CmdRunner    // nil = run real subprocesses
	Reporter progress.Reporter // nil = drop progress events
	JobID    string
	Verbose  bool
}

func (f *FFmpeg) runner() util.CmdRunner {
	if f.Runner != nil {
		return f.Runner
	}
	return util.NewDefaultRunner()
}

func (f *FFmpeg) reporter() progress.Reporter {
	if f.Reporter != nil {
		return f.Reporter
	}
	return progress.Discard{}
}

// Transcode runs both passes for one attempt. A pass failure removes the
// partial output file; the returned error carries the tail of ffmpeg's
// stderr unchanged so the diagnosis reaches the user.
func (f *FFmpeg) Transcode(ctx context.Context, job controller.TranscodeJob) error {
	if f.Path == "" {
		return errors.New("ffmpeg path is required")
	}
	rep := f.reporter()

	for pass := 1; pass <= 2; pass++ {
		args, err := BuildPassArgs(job, pass)
		if err != nil {
			return err
		}

		ps := &ProgressState{
			FrameCount: job.FrameCount,
			Pass:       pass,
			Attempt:    job.Attempt,
		}

		res, runErr := f.runner().Run(ctx, util.CmdSpec{
			Path:    f.Path,
			Args:    args,
			Verbose: f.Verbose,
			StdoutLine: func(line string) {
				if u, ok := ps.UpdateFromLine(line, f.JobID); ok {
					rep.Update(u)
				}
			},
			StderrLine: func(line string) {
				rep.Log(progress.Log{JobID: f.JobID, Stream: progress.StreamStderr, Line: line})
			},
		})
		if runErr != nil {
			_ = util.RemoveIfExists(job.OutputPath)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if tail := stderrTail(res.Stderr); tail != "" {
				return fmt.Errorf("ffmpeg pass %d failed (exit %d):\n%s", pass, res.Code, tail)
			}
			return fmt.Errorf("ffmpeg pass %d: %w", pass, runErr)
		}
	}

	return nil
}

// stderrTail returns the last few non-empty lines of captured stderr.
func stderrTail(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return ""
	}
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	return strings.Join(lines, "\n")
}
