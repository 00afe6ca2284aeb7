package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	config string
	dotenv bool
	lang   string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "autosubrt",
		Short:         "AutoSubRT speech to subtitle service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path (default .config.yaml or $AUTOSUBRT_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&flags.dotenv, "dotenv", true, "Load variables from .env before reading config")
	rootCmd.PersistentFlags().StringVar(&flags.lang, "lang", "zh", "Envelope message language (zh or en)")

	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newSrtCommand(flags))
	rootCmd.AddCommand(newTextCommand(flags))
	rootCmd.AddCommand(newInspectCommand())

	return rootCmd
}
