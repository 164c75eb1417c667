package encoder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vidfit/internal/progress"
)

// ProgressState tracks ffmpeg's -progress key=value stream across the two
// passes of one encode attempt. Both passes walk the same frames, so the
// reported fraction spans 0..1 over pass 1 and pass 2 together.
type ProgressState struct {
	FrameCount int64 // frames per pass; <= 0 disables percent reporting
	Pass       int   // 1 or 2
	Attempt    int

	frame int64
	fps   float64
	speed string
}

// UpdateFromLine consumes one stdout line and returns an update when the
// line is a "progress" marker, which ffmpeg emits once per status block.
func (ps *ProgressState) UpdateFromLine(line, jobID string) (u progress.Update, ok bool) {
	kv := strings.SplitN(line, "=", 2)
	if len(kv) != 2 {
		return progress.Update{}, false
	}

	key := strings.TrimSpace(kv[0])
	val := strings.TrimSpace(kv[1])

	switch key {
	case "frame":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.frame = v
		}
	case "fps":
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			ps.fps = v
		}
	case "speed":
		ps.speed = val
	case "progress":
		percent := -1.0
		var eta *time.Duration

		if ps.FrameCount > 0 {
			done := ps.frame
			if ps.Pass == 2 {
				done += ps.FrameCount
			}
			total := 2 * ps.FrameCount
			percent = 100 * float64(done) / float64(total)
			if percent > 100 {
				percent = 100
			}
			if ps.fps > 0 {
				d := time.Duration(float64(total-done) / ps.fps * float64(time.Second))
				if d >= 0 {
					eta = &d
				}
			}
		}

		var speedPtr *string
		if ps.speed != "" {
			s := ps.speed
			speedPtr = &s
		}

		return progress.Update{
			JobID:   jobID,
			Stage:   progress.StageEncoding,
			Percent: percent,
			Attempt: ps.Attempt,
			Pass:    ps.Pass,
			ETA:     eta,
			Speed:   speedPtr,
			Message: fmt.Sprintf("Encoding (pass %d/2)", ps.Pass),
		}, true
	}

	return progress.Update{}, false
}
