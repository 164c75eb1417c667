package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"vidfit/internal/progress"
)

type jobState struct {
	id     string
	path   string
	stage  progress.Stage
	status string
	err    error
	done   bool

	outputPath string
	bytes      int64
	attempt    int
	attempts   int
	percent    float64 // -1 means unknown

	spinner spinner.Model
	bar     bubblesprogress.Model

	started bool

	// Optional: recent logs (kept small)
	logsRing []string
}

func newJobState(id, path string, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      id,
		path:    path,
		stage:   progress.StageDeps,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}
