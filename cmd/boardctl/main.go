package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskboard-app/taskboard/cmd/boardctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "boardctl",
		Short: "Operations tool for the taskboard API",
		Long:  "CLI tool for inspecting notification state and nudging the scheduler",
	}

	rootCmd.AddCommand(commands.NewScanCmd())
	rootCmd.AddCommand(commands.NewFailedCmd())
	rootCmd.AddCommand(commands.NewPrefsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
