package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/listsync/listsync/server/listservice"
)

var rootCmd = &cobra.Command{
	Use:   "listsync",
	Short: "Shared shopping-list sync server",
}

func main() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target, _ := cmd.Flags().GetString("build-target"); target != "" {
				_ = os.Setenv("LISTSYNC_BUILD_TARGET", target)
			}
			return listservice.Run()
		},
	}
	serveCmd.Flags().String("build-target", "", "Override LISTSYNC_BUILD_TARGET (local, cloud-dev, cloud)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
