package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "omr-decode",
		Short:         "Decode marked answer sheets into response maps",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.templateFlag, "template", "t", "", "Path to the template JSON (default: template.json next to the input)")
	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Path to the config JSON overlay")
	rootCmd.PersistentFlags().StringVarP(&ctx.markerFlag, "marker", "m", "", "Path to the marker reference image")
	rootCmd.PersistentFlags().BoolVar(&ctx.verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(newDecodeCommand(ctx))
	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newRepeatCommand(ctx))

	return rootCmd
}
