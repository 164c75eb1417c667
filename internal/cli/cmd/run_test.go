package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidfit/internal/model"
	"vidfit/internal/pipeline"
)

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAssembleRunInputs(t *testing.T) {
	input := writeTempVideo(t)

	tests := []struct {
		name    string
		args    []string
		flags   map[string]string
		wantErr string
		check   func(t *testing.T, opts model.CLIOptions)
	}{
		{
			name:  "defaults",
			args:  []string{input},
			flags: map[string]string{"size": "25"},
			check: func(t *testing.T, opts model.CLIOptions) {
				if opts.TargetSizeMiB != 25 {
					t.Errorf("TargetSizeMiB = %d, want 25", opts.TargetSizeMiB)
				}
				if opts.TolerancePct != 10 {
					t.Errorf("TolerancePct = %d, want 10", opts.TolerancePct)
				}
				if opts.FpsPolicy != model.FpsAuto {
					t.Errorf("FpsPolicy = %q, want auto", opts.FpsPolicy)
				}
				if opts.Codec != model.CodecH264 {
					t.Errorf("Codec = %q, want h264", opts.Codec)
				}
			},
		},
		{
			name:    "zero size rejected",
			args:    []string{input},
			flags:   map[string]string{"size": "0"},
			wantErr: "invalid --size",
		},
		{
			name:    "tolerance out of range",
			args:    []string{input},
			flags:   map[string]string{"size": "25", "tolerance": "100"},
			wantErr: "invalid --tolerance",
		},
		{
			name:    "bad framerate policy",
			args:    []string{input},
			flags:   map[string]string{"size": "25", "framerate": "cinematic"},
			wantErr: "invalid framerate policy",
		},
		{
			name:    "bad codec",
			args:    []string{input},
			flags:   map[string]string{"size": "25", "codec": "xvid"},
			wantErr: "invalid codec",
		},
		{
			name:    "out with multiple inputs",
			args:    []string{input, input},
			flags:   map[string]string{"size": "25", "out": "small.mp4"},
			wantErr: "--out requires exactly one input",
		},
		{
			name:    "out and out-dir conflict",
			args:    []string{input},
			flags:   map[string]string{"size": "25", "out": "small.mp4", "out-dir": "out"},
			wantErr: "mutually exclusive",
		},
		{
			name:    "missing input file",
			args:    []string{filepath.Join(t.TempDir(), "nope.mp4")},
			flags:   map[string]string{"size": "25"},
			wantErr: "input",
		},
		{
			name:  "explicit codec and policy",
			args:  []string{input},
			flags: map[string]string{"size": "8", "codec": "vp9", "framerate": "prefer-smooth", "extra-quality": "true"},
			check: func(t *testing.T, opts model.CLIOptions) {
				if opts.Codec != model.CodecVP9 {
					t.Errorf("Codec = %q, want vp9", opts.Codec)
				}
				if opts.FpsPolicy != model.FpsPreferSmooth {
					t.Errorf("FpsPolicy = %q, want prefer-smooth", opts.FpsPolicy)
				}
				if !opts.ExtraQuality {
					t.Error("ExtraQuality = false, want true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRunCmd()
			for k, v := range tt.flags {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatalf("set --%s: %v", k, err)
				}
			}

			_, opts, err := assembleRunInputs(cmd, tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("assembleRunInputs() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("assembleRunInputs() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, opts)
			}
		})
	}
}

func TestClassifyExitCodes(t *testing.T) {
	var x *ExitError

	probeErr := classify(fmt.Errorf("%w: exit status 1", pipeline.ErrProbe))
	if !errors.As(probeErr, &x) || x.Code != ExitProbeError {
		t.Fatalf("classify(probe) = %v, want exit %d", probeErr, ExitProbeError)
	}

	other := classify(os.ErrPermission)
	if !errors.As(other, &x) || x.Code != ExitTranscodeError {
		t.Fatalf("classify(other) = %v, want exit %d", other, ExitTranscodeError)
	}
}
