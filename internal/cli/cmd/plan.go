package cmd

import (
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan [files...]",
		Short:         "Show the first attempt's settings without encoding",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PreRunE:       runPreRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{
				ForceTUI:   false,
				DryRunOnly: true,
			})
		},
	}
	// Reuse same flags; plan probes but never encodes
	bindRunFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("size")
	return cmd
}
