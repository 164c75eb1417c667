package cmd

import (
	"fmt"

	"github.com/rs/zerolog"

	"vidfit/internal/logging"
	"vidfit/internal/progress"
)

// consoleReporter renders pipeline progress for non-TUI runs: structured
// log lines on stderr, final "Saved:" lines on stdout.
type consoleReporter struct {
	log     zerolog.Logger
	verbose bool
}

func newConsoleReporter(verbose bool) *consoleReporter {
	return &consoleReporter{
		log:     logging.WithComponent("pipeline"),
		verbose: verbose,
	}
}

func (r *consoleReporter) Update(u progress.Update) {
	switch u.Stage {
	case progress.StageProbing:
		r.log.Debug().Msg(u.Message)
	case progress.StageEncoding:
		// Attempt transitions are worth a line; per-frame progress is not.
		if u.Percent == 0 && u.Message != "" {
			r.log.Info().Int("attempt", u.Attempt).Msg(u.Message)
		}
	case progress.StageError:
		// The error itself is returned and printed by main; keep this at
		// debug so it is not reported twice.
		r.log.Debug().Msg(u.Message)
	}
}

func (r *consoleReporter) Log(l progress.Log) {
	if l.Stream == progress.StreamStderr && !r.verbose {
		return
	}
	r.log.Info().Msg(l.Line)
}

func (r *consoleReporter) Result(res progress.Result) {
	if res.Err != nil {
		return
	}
	size := float64(res.Bytes) / (1024 * 1024)
	if res.Attempts == 0 {
		fmt.Printf("Already fits: %s (%0.2f MiB)\n", res.OutputPath, size)
		return
	}
	fmt.Printf("Saved: %s (%0.2f MiB, %d attempts)\n", res.OutputPath, size, res.Attempts)
}
