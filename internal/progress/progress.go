package progress

import "time"

// Stage identifies a high-level step in the pipeline.
type Stage string

const (
	StageDeps      Stage = "deps"
	StageProbing   Stage = "probing"
	StageEncoding  Stage = "encoding"
	StageCompleted Stage = "completed"
	StageError     Stage = "error"
)

// LogStream indicates which stream produced a log line.
type LogStream int

const (
	StreamStdout LogStream = iota
	StreamStderr
)

// Update conveys progress or stage changes for a job.
// Percent is 0..100 when known; set to a negative value (e.g., -1) to mean unknown.
type Update struct {
	JobID   string
	Stage   Stage
	Percent float64 // 0..100, or <0 if unknown

	Attempt int            // encode attempt number, starting at 1; 0 if n/a
	Pass    int            // two-pass encode pass (1 or 2); 0 if n/a
	ETA     *time.Duration // optional
	Speed   *string        // optional, e.g., "1.2x"
	Message string         // short human-friendly status line
}

// Log is a structured log line associated with a job.
type Log struct {
	JobID  string
	Stream LogStream
	Line   string
}

// Result is emitted once per job when it completes or fails.
type Result struct {
	JobID      string
	InputPath  string
	OutputPath string
	Bytes      int64
	Attempts   int
	Err        error // nil on success
}

// Reporter is implemented by UI or any observer interested in progress events.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Discard is a Reporter that drops all events.
type Discard struct{}

func (Discard) Update(Update) {}
func (Discard) Log(Log)       {}
func (Discard) Result(Result) {}
