package encoder

import (
	"fmt"
	"os"
	"strconv"

	"vidfit/internal/controller"
)

// opus mono only makes sense at rock-bottom bitrates; stereo otherwise.
const monoThresholdBps = 12_000

// BuildPassArgs constructs the ffmpeg argument list for one pass of a
// two-pass encode. Pass 1 analyzes only: audio is stripped and the output
// discarded. Pass 2 reads the stats written under job.LogPath and produces
// the real file.
func BuildPassArgs(job controller.TranscodeJob, pass int) ([]string, error) {
	spec, ok := codecSpecs[job.Codec]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", job.Codec)
	}
	speed, err := speedArgs(job.Codec, job.Settings.TierHeight, job.ExtraQuality)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-y",
		"-progress", "pipe:1",
		"-nostats",
	}
	if job.HWAccel {
		// Decode-side acceleration only; rate control stays with the
		// software encoder.
		args = append(args, "-hwaccel", "auto")
	}
	args = append(args, "-i", job.InputPath)

	if spec.rowMT {
		args = append(args, "-row-mt", "1")
	}
	args = append(args, speed...)
	args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", job.Settings.Width, job.Settings.Height))
	args = append(args, spec.profileArgs...)
	if job.Settings.FrameRate > 0 {
		args = append(args, "-r", strconv.FormatFloat(job.Settings.FrameRate, 'f', -1, 64))
	}

	args = append(args,
		"-c:v", spec.encoder,
		"-b:v", strconv.FormatInt(job.Settings.VideoBitrate, 10),
		"-pass", strconv.Itoa(pass),
		"-passlogfile", job.LogPath,
	)

	switch pass {
	case 1:
		args = append(args, "-an", "-f", "null", os.DevNull)
	case 2:
		channels := 2
		if job.Settings.AudioBitrate < monoThresholdBps {
			channels = 1
		}
		args = append(args,
			"-c:a", "libopus",
			"-b:a", strconv.FormatInt(job.Settings.AudioBitrate, 10),
			"-ac", strconv.Itoa(channels),
			job.OutputPath,
		)
	default:
		return nil, fmt.Errorf("invalid pass %d", pass)
	}

	return args, nil
}
