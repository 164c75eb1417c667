// Package probe reads the source video's properties with a single ffprobe
// JSON call instead of one invocation per field.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidfit/internal/model"
	"vidfit/internal/util"
)

// ErrNoVideoStream is returned for inputs with no usable video stream,
// such as audio files or cover-art-only containers.
var ErrNoVideoStream = errors.New("no video stream found")

// Prober reports the properties of a video file.
type Prober interface {
	Probe(ctx context.Context, path string) (model.VideoProperties, error)
}

// FFprobe runs the ffprobe binary. It implements Prober.
type FFprobe struct {
	Path   string         // ffprobe binary path
	Runner util.CmdRunner // nil = run real subprocesses
}

func (p *FFprobe) runner() util.CmdRunner {
	if p.Runner != nil {
		return p.Runner
	}
	return util.NewDefaultRunner()
}

// Probe returns the properties the compression loop needs: dimensions,
// framerate, duration, frame count, rotation and on-disk size.
func (p *FFprobe) Probe(ctx context.Context, path string) (model.VideoProperties, error) {
	if p.Path == "" {
		return model.VideoProperties{}, errors.New("ffprobe path is required")
	}

	res, err := p.runner().Run(ctx, util.CmdSpec{
		Path: p.Path,
		Args: []string{
			"-v", "error",
			"-print_format", "json",
			"-show_format", "-show_streams",
			path,
		},
		CaptureStdout: true,
	})
	if err != nil {
		return model.VideoProperties{}, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseJSON(res.Stdout)
}

// ParseJSON converts raw ffprobe JSON output into VideoProperties.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (model.VideoProperties, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.VideoProperties{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildProperties(&raw)
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type ffprobeStream struct {
	CodecType   string            `json:"codec_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	RFrameRate  string            `json:"r_frame_rate"`
	NbFrames    string            `json:"nb_frames"`
	Duration    string            `json:"duration"`
	Disposition map[string]int    `json:"disposition"`
	SideData    []ffprobeSideData `json:"side_data_list"`
}

type ffprobeSideData struct {
	SideDataType string  `json:"side_data_type"`
	Rotation     float64 `json:"rotation"`
}

// --- Conversion from wire types to domain types ---

func buildProperties(raw *ffprobeOutput) (model.VideoProperties, error) {
	var video *ffprobeStream
	for i := range raw.Streams {
		s := &raw.Streams[i]
		if s.CodecType == "video" && s.Disposition["attached_pic"] != 1 {
			video = s
			break
		}
	}
	if video == nil {
		return model.VideoProperties{}, ErrNoVideoStream
	}
	if video.Width <= 0 || video.Height <= 0 {
		return model.VideoProperties{}, fmt.Errorf("invalid video dimensions %dx%d", video.Width, video.Height)
	}

	duration := parseFloat(raw.Format.Duration)
	if duration <= 0 {
		duration = parseFloat(video.Duration)
	}
	if duration <= 0 {
		return model.VideoProperties{}, errors.New("could not determine duration")
	}

	fps, err := parseFrameRate(video.RFrameRate)
	if err != nil {
		return model.VideoProperties{}, err
	}

	props := model.VideoProperties{
		Width:     video.Width,
		Height:    video.Height,
		FPS:       fps,
		Duration:  duration,
		Rotation:  rotationOf(video),
		SizeBytes: parseInt64(raw.Format.Size),
	}

	// nb_frames is absent from some containers (notably matroska); the
	// duration estimate is close enough for progress fractions.
	props.FrameCount = parseInt64(video.NbFrames)
	if props.FrameCount <= 0 {
		props.FrameCount = int64(math.Round(duration * fps))
	}

	return props, nil
}

// parseFrameRate parses ffprobe's "num/den" framerate fraction, rounded to
// the nominal rate (30000/1001 reads as 30).
func parseFrameRate(s string) (float64, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("invalid framerate %q", s)
		}
		return math.Round(f), nil
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid framerate %q", s)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 || n <= 0 {
		return 0, fmt.Errorf("invalid framerate %q", s)
	}
	return math.Round(n / d), nil
}

func rotationOf(s *ffprobeStream) int {
	for _, sd := range s.SideData {
		if sd.SideDataType == "" || strings.Contains(strings.ToLower(sd.SideDataType), "display") {
			if sd.Rotation != 0 {
				return int(sd.Rotation)
			}
		}
	}
	return 0
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
