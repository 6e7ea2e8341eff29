package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"comet/internal/reader"
	"comet/internal/worker"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "comet",
	Short: "comet - comic book and e-book reader core",
	Long:  "comet opens comic archives (cbz/cbr/cb7), image folders, EPUBs, and PDFs, and extracts their pages.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		reader.SetDebug(debugFlag)
		worker.SetDebug(debugFlag)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}
