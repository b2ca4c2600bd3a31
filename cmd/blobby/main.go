package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var verbose bool
	var repoPath string

	root := &cobra.Command{
		Use:   "blobby",
		Short: "Read and dump git objects",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&repoPath, "repo", "C", ".", "path to the repository")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCatFileCmd(&repoPath))
	root.AddCommand(newDumpCmd(&repoPath))
	root.AddCommand(newVerifyCmd(&repoPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "blobby 0.1.0-dev")
		},
	}
}
