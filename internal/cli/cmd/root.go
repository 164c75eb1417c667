package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"vidfit/internal/config"
)

const (
	ExitOK             = 0
	ExitCLIError       = 1
	ExitMissingDep     = 2
	ExitProbeError     = 3
	ExitTranscodeError = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vidfit [files...]",
		Short:         "Fit videos to a size budget",
		Long:          "Vidfit re-encodes a video until it lands just under a target size. Give it a file and a size in MiB, and it keeps adjusting bitrate, resolution, and framerate across two-pass encodes until the output fits the budget without wasting it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare `vidfit file.mp4 -s 25` behaves like `vidfit run`.
			return runExecute(cmd, args, runMode{
				ForceTUI:   false,
				DryRunOnly: false,
			})
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().BoolP("verbose", "v", false, "Show full subprocess commands/output")
	root.PersistentFlags().String("ffmpeg", "", "Path to ffmpeg binary")
	root.PersistentFlags().String("ffprobe", "", "Path to ffprobe binary")
	root.PersistentFlags().Int("jobs", 2, "Max concurrent jobs in TUI")

	// Also bind run-specific flags on root, so `vidfit <file>` works without
	// the explicit subcommand.
	bindRunFlags(root.Flags())
	_ = root.MarkFlagRequired("size")

	// Subcommands
	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.IntP("size", "s", 0, "Target max size per video (MiB)")
	fs.IntP("tolerance", "t", 10, "Acceptable undershoot below target, in percent")
	fs.String("framerate", "auto", "Framerate policy: auto, prefer-clear, prefer-smooth")
	fs.String("codec", "h264", "Video codec: h264, hevc, av1, vp9")
	fs.Bool("extra-quality", false, "Slower encoder presets for better quality per bit")
	fs.Bool("hw-accel", false, "Let ffmpeg pick a hardware decoder")
	fs.StringP("out", "o", "", "Output file path (single input only)")
	fs.String("out-dir", "", "Output directory (default: alongside each input)")
	fs.Bool("keep-logs", false, "Keep two-pass stats logs for inspection")
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	_ = config.Init(root)
	return root.ExecuteContext(ctx)
}

// Helpers. Persistent flags live on the root, so look at the merged flag
// set first and fall back to inherited flags for subcommands.
func getPersistentString(cmd *cobra.Command, name, def string) string {
	if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
		return v
	}
	if v, err := cmd.InheritedFlags().GetString(name); err == nil && v != "" {
		return v
	}
	return def
}

func getPersistentBool(cmd *cobra.Command, name string, def bool) bool {
	if v, err := cmd.Flags().GetBool(name); err == nil {
		return v
	}
	if v, err := cmd.InheritedFlags().GetBool(name); err == nil {
		return v
	}
	return def
}

func getPersistentInt(cmd *cobra.Command, name string, def int) int {
	if v, err := cmd.Flags().GetInt(name); err == nil {
		return v
	}
	if v, err := cmd.InheritedFlags().GetInt(name); err == nil {
		return v
	}
	return def
}

func ensureDir(path string) error {
	if path == "" {
		path = "."
	}
	return os.MkdirAll(filepath.Clean(path), 0o755)
}
