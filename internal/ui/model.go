package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"vidfit/internal/model"
	"vidfit/internal/pipeline"
	"vidfit/internal/progress"
	"vidfit/internal/settings"
	"vidfit/internal/util/deps"
	"vidfit/internal/util/format"
)

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	// App state (deps)
	depsChecked bool
	depsErr     error
	ffmpegPath  string
	ffprobePath string

	// Jobs
	files    []string
	opts     model.CLIOptions
	tuning   settings.Tuning
	jobOrder []string
	jobs     map[string]*jobState
	workers  int
	running  int
	next     int // next index in files to start

	// UI
	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, files []string, opts model.CLIOptions, tuning settings.Tuning) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(files))
	order := make([]string, 0, len(files))
	for i, f := range files {
		id := toID(i)
		js := newJobState(id, f, sty)
		jobs[id] = &js
		order = append(order, id)
	}

	workers := opts.Jobs
	if workers <= 0 {
		workers = 1
	}

	return Model{
		ctx:      c,
		cancel:   cancel,
		files:    files,
		opts:     opts,
		tuning:   tuning,
		jobs:     jobs,
		jobOrder: order,
		workers:  workers,
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	// Listen for reporter events
	cmds = append(cmds, m.listenEventsCmd())
	// Kick off dependency check
	cmds = append(cmds, m.checkDepsCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case depsCheckedMsg:
		m.depsChecked = true
		m.depsErr = msg.Err
		m.ffmpegPath = msg.FFmpegPath
		m.ffprobePath = msg.FFprobePath
		if m.depsErr != nil {
			// Mark all as errored
			for _, id := range m.jobOrder {
				js := m.jobs[id]
				js.stage = progress.StageError
				js.status = fmt.Sprintf("Dependency error: %v", m.depsErr)
				js.err = m.depsErr
				js.done = true
			}
			return m, tea.Quit
		}
		// Start initial workers
		var cmd tea.Cmd
		m, cmd = m.startNextWorkers()
		return m, tea.Batch(cmd, m.listenEventsCmd())

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			js.status = u.Message
			if u.Attempt > 0 {
				js.attempt = u.Attempt
			}
		}
	case jobLogMsg:
		l := msg.L
		if js, ok := m.jobs[l.JobID]; ok {
			// small ring buffer
			line := strings.TrimRight(l.Line, "\r\n")
			if len(js.logsRing) > 1000 {
				js.logsRing = js.logsRing[1:]
			}
			js.logsRing = append(js.logsRing, line)
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok {
			js.done = true
			js.err = r.Err
			if r.Err == nil {
				js.stage = progress.StageCompleted
				js.percent = 100
				js.outputPath = r.OutputPath
				js.bytes = r.Bytes
				js.attempts = r.Attempts
				if r.OutputPath != "" {
					name := filepath.Base(r.OutputPath)
					size := format.HumanizeBytes(r.Bytes)
					js.status = fmt.Sprintf("Saved: %s (%s)", name, size)
				} else {
					js.status = "Completed"
				}
			} else {
				js.stage = progress.StageError
				js.status = r.Err.Error()
				js.percent = -1
			}
			m.running--
			// Start next job if any remain
			var cmd tea.Cmd
			m, cmd = m.startNextWorkers()
			return m, tea.Batch(cmd, m.listenEventsCmd())
		}
	case allDoneMsg:
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	// Keep listening for events
	cmds = append(cmds, m.listenEventsCmd())
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) checkDepsCmd() tea.Cmd {
	return func() tea.Msg {
		ff, ferr := deps.FindFFmpeg(m.opts.FFmpegPath)
		if ferr != nil {
			return depsCheckedMsg{Err: ferr}
		}
		fp, perr := deps.FindFFprobe(m.opts.FFprobePath)
		if perr != nil {
			return depsCheckedMsg{Err: perr}
		}
		return depsCheckedMsg{FFmpegPath: ff, FFprobePath: fp, Err: nil}
	}
}

// startNextWorkers fills free worker slots with queued files. It mutates the
// model's bookkeeping, so callers must use the returned Model.
func (m Model) startNextWorkers() (Model, tea.Cmd) {
	select {
	case <-m.ctx.Done():
		return m, tea.Quit
	default:
	}
	for m.running < m.workers && m.next < len(m.files) {
		idx := m.next
		jobID := m.jobOrder[idx]
		path := m.files[idx]
		m.next++
		m.running++
		if js := m.jobs[jobID]; js != nil {
			js.started = true
			js.status = "Starting"
			js.stage = progress.StageProbing
		}
		go m.runJob(jobID, path)
	}
	if m.next >= len(m.files) && m.running == 0 {
		return m, tea.Quit
	}
	return m, nil
}

// runJob delegates one file to the pipeline. The service emits exactly one
// Result per run (none when cancelled), so nothing extra is reported here.
func (m Model) runJob(jobID, path string) {
	rep := teaReporter{ch: m.eventCh}

	svc := pipeline.NewService(
		pipeline.WithFFmpegPath(m.ffmpegPath),
		pipeline.WithFFprobePath(m.ffprobePath),
		pipeline.WithCLIOptions(m.opts),
		pipeline.WithTuning(m.tuning),
		pipeline.WithReporter(rep),
		pipeline.WithJobID(jobID),
	)
	_, _ = svc.RunJob(m.ctx, path)
}

type teaReporter struct {
	ch chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	// Block on completion messages to ensure they're delivered
	if u.Stage == progress.StageCompleted || u.Stage == progress.StageError {
		r.ch <- jobUpdateMsg{U: u}
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}
func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}
func (r teaReporter) Result(res progress.Result) {
	// Always block on Result messages - they're critical
	r.ch <- jobResultMsg{R: res}
}

func toID(i int) string {
	return "job-" + strconv.Itoa(i)
}
