package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"autosubrt-server-go/internal/bootstrap"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stdout, "[%s] [INFO] [引导] 开始启动 autosubrt...\n", time.Now().Format("2006-01-02 15:04:05.000"))
			return bootstrap.Run(cmd.Context(), bootstrap.Options{
				ConfigPath: flags.config,
				DotEnv:     flags.dotenv,
			})
		},
	}
}
