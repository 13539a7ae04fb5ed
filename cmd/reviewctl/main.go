package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "1.0.0"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "reviewctl",
		Short:   "Reviewctl - manage the AletheiaCodex review queue from the terminal",
		Version: Version,
	}

	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(batchApproveCmd)
	rootCmd.AddCommand(batchRejectCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
