package encoder

import (
	"testing"

	"vidfit/internal/progress"
)

func TestProgressState_UpdateFromLine(t *testing.T) {
	tests := []struct {
		name        string
		state       ProgressState
		lines       []string // Multiple lines to process in sequence
		jobID       string
		wantOk      bool
		wantPercent float64
		wantPass    int
	}{
		{
			name:  "halfway through pass 1 is a quarter overall",
			state: ProgressState{FrameCount: 1800, Pass: 1, Attempt: 1},
			lines: []string{
				"frame=900",
				"fps=120.5",
				"speed=4.02x",
				"progress=continue",
			},
			jobID:       "job1",
			wantOk:      true,
			wantPercent: 25.0,
			wantPass:    1,
		},
		{
			name:  "pass 2 offsets by a full pass",
			state: ProgressState{FrameCount: 1800, Pass: 2, Attempt: 1},
			lines: []string{
				"frame=900",
				"progress=continue",
			},
			jobID:       "job1",
			wantOk:      true,
			wantPercent: 75.0,
			wantPass:    2,
		},
		{
			name:  "end of pass 2 is complete",
			state: ProgressState{FrameCount: 1800, Pass: 2, Attempt: 3},
			lines: []string{
				"frame=1800",
				"progress=end",
			},
			jobID:       "job2",
			wantOk:      true,
			wantPercent: 100.0,
			wantPass:    2,
		},
		{
			name:  "unknown frame count reports unknown percent",
			state: ProgressState{FrameCount: 0, Pass: 1, Attempt: 1},
			lines: []string{
				"frame=500",
				"progress=continue",
			},
			jobID:       "job3",
			wantOk:      true,
			wantPercent: -1.0,
			wantPass:    1,
		},
		{
			name:   "non-marker line emits nothing",
			state:  ProgressState{FrameCount: 1800, Pass: 1},
			lines:  []string{"frame=100"},
			jobID:  "job4",
			wantOk: false,
		},
		{
			name:  "overshoot clamps to 100",
			state: ProgressState{FrameCount: 100, Pass: 2, Attempt: 1},
			lines: []string{
				"frame=150",
				"progress=end",
			},
			jobID:       "job5",
			wantOk:      true,
			wantPercent: 100.0,
			wantPass:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := tt.state
			var u progress.Update
			var ok bool

			for _, line := range tt.lines {
				u, ok = ps.UpdateFromLine(line, tt.jobID)
			}

			if ok != tt.wantOk {
				t.Errorf("UpdateFromLine() ok = %v, want %v", ok, tt.wantOk)
			}
			if !tt.wantOk {
				return
			}

			if u.JobID != tt.jobID {
				t.Errorf("UpdateFromLine() JobID = %v, want %v", u.JobID, tt.jobID)
			}
			if u.Stage != progress.StageEncoding {
				t.Errorf("UpdateFromLine() Stage = %v, want %v", u.Stage, progress.StageEncoding)
			}
			if u.Percent != tt.wantPercent {
				t.Errorf("UpdateFromLine() Percent = %v, want %v", u.Percent, tt.wantPercent)
			}
			if u.Pass != tt.wantPass {
				t.Errorf("UpdateFromLine() Pass = %v, want %v", u.Pass, tt.wantPass)
			}
		})
	}
}

func TestProgressState_ETA(t *testing.T) {
	ps := ProgressState{FrameCount: 1200, Pass: 1, Attempt: 1}
	ps.UpdateFromLine("frame=600", "job1")
	ps.UpdateFromLine("fps=60", "job1")
	u, ok := ps.UpdateFromLine("progress=continue", "job1")
	if !ok {
		t.Fatal("expected update on progress marker")
	}
	if u.ETA == nil {
		t.Fatal("expected ETA when fps is known")
	}
	// 1800 frames remain across both passes at 60 fps.
	if got := u.ETA.Seconds(); got != 30 {
		t.Errorf("ETA = %vs, want 30s", got)
	}
	if u.Speed != nil {
		t.Errorf("Speed = %v, want nil before any speed line", *u.Speed)
	}
}
