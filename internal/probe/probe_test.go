package probe

import (
	"errors"
	"testing"
)

// Realistic ffprobe JSON for an MP4 with:
//   - 1 H.264 video stream (1920x1080, 60000/1001 fps, frame count known)
//   - 1 AAC stereo audio stream
const sampleLandscape = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "h264",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "r_frame_rate": "60000/1001",
      "nb_frames": "3600",
      "disposition": { "default": 1, "attached_pic": 0 }
    },
    {
      "index": 1,
      "codec_name": "aac",
      "codec_type": "audio",
      "channels": 2,
      "sample_rate": "48000",
      "disposition": { "default": 1, "attached_pic": 0 }
    }
  ],
  "format": {
    "filename": "/media/test/clip.mp4",
    "nb_streams": 2,
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "60.060000",
    "size": "52428800"
  }
}`

// Phone recording held upright: stored landscape, rotation -90 in side
// data, no nb_frames (matroska).
const sampleRotated = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "hevc",
      "codec_type": "video",
      "width": 1920,
      "height": 1080,
      "r_frame_rate": "30/1",
      "side_data_list": [
        { "side_data_type": "Display Matrix", "rotation": -90 }
      ],
      "disposition": { "default": 1, "attached_pic": 0 }
    }
  ],
  "format": {
    "format_name": "matroska,webm",
    "duration": "10.000000",
    "size": "8388608"
  }
}`

// Audio file with cover art: the attached pic must not count as video.
const sampleCoverArt = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "mjpeg",
      "codec_type": "video",
      "width": 600,
      "height": 600,
      "disposition": { "default": 0, "attached_pic": 1 }
    },
    {
      "index": 1,
      "codec_name": "mp3",
      "codec_type": "audio",
      "disposition": { "default": 1 }
    }
  ],
  "format": {
    "format_name": "mp3",
    "duration": "180.5",
    "size": "4321000"
  }
}`

func TestParseJSONLandscape(t *testing.T) {
	props, err := ParseJSON([]byte(sampleLandscape))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	if props.Width != 1920 || props.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", props.Width, props.Height)
	}
	if props.FPS != 60 {
		t.Errorf("FPS = %v, want 60 (rounded from 60000/1001)", props.FPS)
	}
	if props.Duration != 60.06 {
		t.Errorf("Duration = %v, want 60.06", props.Duration)
	}
	if props.FrameCount != 3600 {
		t.Errorf("FrameCount = %v, want 3600", props.FrameCount)
	}
	if props.Rotation != 0 {
		t.Errorf("Rotation = %v, want 0", props.Rotation)
	}
	if props.SizeBytes != 52428800 {
		t.Errorf("SizeBytes = %v, want 52428800", props.SizeBytes)
	}
}

func TestParseJSONRotated(t *testing.T) {
	props, err := ParseJSON([]byte(sampleRotated))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	if props.Rotation != -90 {
		t.Errorf("Rotation = %v, want -90", props.Rotation)
	}
	if !props.Rotated() {
		t.Error("Rotated() = false, want true")
	}
	dw, dh := props.DisplayDims()
	if dw != 1080 || dh != 1920 {
		t.Errorf("DisplayDims() = %dx%d, want 1080x1920", dw, dh)
	}
	// No nb_frames: estimated from duration and framerate.
	if props.FrameCount != 300 {
		t.Errorf("FrameCount = %v, want 300 (10s at 30fps)", props.FrameCount)
	}
}

func TestParseJSONCoverArtIsNotVideo(t *testing.T) {
	_, err := ParseJSON([]byte(sampleCoverArt))
	if !errors.Is(err, ErrNoVideoStream) {
		t.Errorf("ParseJSON() error = %v, want ErrNoVideoStream", err)
	}
}

func TestParseJSONMalformed(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"streams": [`)); err == nil {
		t.Error("ParseJSON() expected error for malformed JSON")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"30/1", 30, false},
		{"30000/1001", 30, false},
		{"24000/1001", 24, false},
		{"25", 25, false},
		{"0/0", 0, true},
		{"", 0, true},
		{"x/y", 0, true},
	}
	for _, tt := range tests {
		got, err := parseFrameRate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFrameRate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
