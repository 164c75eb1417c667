package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"vidfit/internal/config"
	"vidfit/internal/logging"
	"vidfit/internal/model"
	"vidfit/internal/pipeline"
	"vidfit/internal/settings"
	"vidfit/internal/ui"
	"vidfit/internal/util/deps"
	"vidfit/internal/util/format"
)

type runMode struct {
	ForceTUI   bool
	DryRunOnly bool
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [files...]",
		Short:         "Compress videos until they fit the target size",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{
				ForceTUI:   false,
				DryRunOnly: false,
			})
		},
	}
	// Bind same flags as root for explicit subcommand usage
	bindRunFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("size")
	return cmd
}

type ctxKey string

const runInputsKey ctxKey = "runInputs"

type runInputs struct {
	Files   []string
	Options model.CLIOptions
	Tuning  settings.Tuning
}

func runPreRun(cmd *cobra.Command, args []string) error {
	files, opts, err := assembleRunInputs(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	ctx := context.WithValue(cmd.Context(), runInputsKey, runInputs{
		Files:   files,
		Options: opts,
		Tuning:  tuningFromConfig(),
	})
	cmd.SetContext(ctx)
	return nil
}

func assembleRunInputs(cmd *cobra.Command, args []string) ([]string, model.CLIOptions, error) {
	// Persistent flags with precedence: flag > env/config > default
	verbose := getPersistentBool(cmd, "verbose", false)
	ffmpegPath := getPersistentString(cmd, "ffmpeg", viper.GetString("ffmpeg"))
	ffprobePath := getPersistentString(cmd, "ffprobe", viper.GetString("ffprobe"))
	jobs := getPersistentInt(cmd, "jobs", 2)
	if jobs <= 0 {
		jobs = 2
	}

	// Run flags
	size, _ := cmd.Flags().GetInt("size")
	tolerance, _ := cmd.Flags().GetInt("tolerance")
	framerate, _ := cmd.Flags().GetString("framerate")
	codec, _ := cmd.Flags().GetString("codec")
	extraQuality, _ := cmd.Flags().GetBool("extra-quality")
	hwAccel, _ := cmd.Flags().GetBool("hw-accel")
	outPath, _ := cmd.Flags().GetString("out")
	outDir, _ := cmd.Flags().GetString("out-dir")
	keepLogs, _ := cmd.Flags().GetBool("keep-logs")
	noUI, _ := cmd.Flags().GetBool("no-ui")

	if size <= 0 {
		return nil, model.CLIOptions{}, fmt.Errorf("invalid --size: %d (must be a positive number of MiB)", size)
	}
	if tolerance < 0 || tolerance >= 100 {
		return nil, model.CLIOptions{}, fmt.Errorf("invalid --tolerance: %d (valid: 0-99)", tolerance)
	}

	fpsPolicy, err := model.ParseFpsPolicy(framerate)
	if err != nil {
		return nil, model.CLIOptions{}, err
	}
	parsedCodec, err := model.ParseCodec(codec)
	if err != nil {
		return nil, model.CLIOptions{}, err
	}

	if outPath != "" {
		if len(args) != 1 {
			return nil, model.CLIOptions{}, fmt.Errorf("--out requires exactly one input file, got %d", len(args))
		}
		if outDir != "" {
			return nil, model.CLIOptions{}, errors.New("--out and --out-dir are mutually exclusive")
		}
	}

	// Input validation: every file must exist up front so one typo doesn't
	// surface halfway through a batch.
	var files []string
	for _, raw := range args {
		info, err := os.Stat(raw)
		if err != nil {
			return nil, model.CLIOptions{}, fmt.Errorf("input %q: %w", raw, err)
		}
		if info.IsDir() {
			return nil, model.CLIOptions{}, fmt.Errorf("input %q is a directory", raw)
		}
		files = append(files, raw)
	}

	if outDir != "" {
		outDir = filepath.Clean(outDir)
	}

	opts := model.CLIOptions{
		OutDir:        outDir,
		OutPath:       outPath,
		TargetSizeMiB: size,
		TolerancePct:  tolerance,
		FpsPolicy:     fpsPolicy,
		Codec:         parsedCodec,
		ExtraQuality:  extraQuality,
		HWAccel:       hwAccel,
		KeepLogs:      keepLogs,
		Verbose:       verbose,
		FFmpegPath:    ffmpegPath,
		FFprobePath:   ffprobePath,
		NoUI:          noUI,
		Jobs:          jobs,
	}
	return files, opts, nil
}

// tuningFromConfig applies config-file overrides to the built-in correction
// constants. Zero means "use the default".
func tuningFromConfig() settings.Tuning {
	t := settings.DefaultTuning()
	if v := viper.GetFloat64(config.KeyOvershootComp); v > 0 {
		t.OvershootComp = v
	}
	if v := viper.GetFloat64(config.KeyDamping); v > 0 {
		t.Damping = v
	}
	return t
}

func runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	// Grab inputs from context; if not present (root directly called without
	// PreRunE), assemble now.
	var in runInputs
	if v := cmd.Context().Value(runInputsKey); v != nil {
		in = v.(runInputs)
	} else {
		files, opts, err := assembleRunInputs(cmd, args)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		in = runInputs{Files: files, Options: opts, Tuning: tuningFromConfig()}
	}

	if in.Options.OutDir != "" {
		if err := ensureDir(in.Options.OutDir); err != nil {
			return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %v", err)}
		}
	}

	// TUI path (forced or auto if TTY and not disabled)
	useTUI := mode.ForceTUI || (!in.Options.NoUI && isTerminal())
	if useTUI && !mode.DryRunOnly {
		if err := ui.Run(cmd.Context(), in.Files, in.Options, in.Tuning); err != nil {
			return &ExitError{Code: ExitTranscodeError, Err: err}
		}
		return nil
	}

	// Non-UI path
	logging.Configure(logging.Config{Verbose: in.Options.Verbose})

	ffmpegPath, ferr := deps.FindFFmpeg(in.Options.FFmpegPath)
	if ferr != nil {
		return &ExitError{Code: ExitMissingDep, Err: ferr}
	}
	ffprobePath, perr := deps.FindFFprobe(in.Options.FFprobePath)
	if perr != nil {
		return &ExitError{Code: ExitMissingDep, Err: perr}
	}

	for _, path := range in.Files {
		if err := processOne(cmd.Context(), path, in, ffmpegPath, ffprobePath, mode.DryRunOnly); err != nil {
			var ee *ExitError
			if errors.As(err, &ee) {
				return ee
			}
			return &ExitError{Code: ExitCLIError, Err: err}
		}
	}
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func processOne(ctx context.Context, path string, in runInputs, ffmpegPath, ffprobePath string, dryRun bool) error {
	svc := pipeline.NewService(
		pipeline.WithFFmpegPath(ffmpegPath),
		pipeline.WithFFprobePath(ffprobePath),
		pipeline.WithCLIOptions(in.Options),
		pipeline.WithTuning(in.Tuning),
		pipeline.WithReporter(newConsoleReporter(in.Options.Verbose)),
	)

	if dryRun {
		plan, err := svc.PlanJob(ctx, path)
		if err != nil {
			return classify(err)
		}
		printPlan(ffmpegPath, ffprobePath, plan)
		return nil
	}

	res, err := svc.RunJob(ctx, path)
	if err != nil {
		return classify(err)
	}
	if res.Cancelled {
		return context.Canceled
	}
	return nil
}

// classify maps pipeline errors to exit codes.
func classify(err error) error {
	if errors.Is(err, pipeline.ErrProbe) {
		return &ExitError{Code: ExitProbeError, Err: err}
	}
	return &ExitError{Code: ExitTranscodeError, Err: err}
}

// printPlan outputs a dry-run plan of actions without executing them.
func printPlan(ffmpegPath, ffprobePath string, plan pipeline.Plan) {
	fmt.Println("Dry-run plan:")
	fmt.Printf("- Input:          %s\n", plan.InputPath)
	fmt.Printf("- FFmpeg:         %s\n", ffmpegPath)
	fmt.Printf("- FFprobe:        %s\n", ffprobePath)
	fmt.Printf("- Source:         %dx%d @ %gfps, %.1fs, %s\n",
		plan.Source.Width, plan.Source.Height, plan.Source.FPS,
		plan.Source.Duration, format.HumanizeBytes(plan.Source.SizeBytes))
	fmt.Printf("- Target size:    %d MiB (tolerance %d%%)\n", plan.Target.SizeMiB, plan.Target.TolerancePct)
	if plan.AlreadyFits {
		fmt.Println("- Action:         nothing to do, input already fits")
		return
	}
	set := plan.Settings
	fps := "source"
	if set.FrameRate > 0 {
		fps = fmt.Sprintf("%g", set.FrameRate)
	}
	fmt.Printf("- Codec:          %s\n", plan.Target.Codec)
	fmt.Printf("- First attempt:  %dx%d, video %d kbps, audio %d kbps, fps %s\n",
		set.Width, set.Height, set.VideoBitrate/1000, set.AudioBitrate/1000, fps)
	if set.Crushed {
		fmt.Println("- Note:           target is tight; audio will be heavily reduced")
	}
	fmt.Printf("- Output path:    %s\n", plan.OutputPath)
	fmt.Println("Later attempts adjust from measured sizes; this is a starting point.")
}
