package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blobby-vcs/blobby/pkg/repo"
)

func newVerifyCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [path]",
		Short: "Verify loose and packed object integrity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *repoPath
			if len(args) == 1 {
				path = args[0]
			}
			r, err := repo.Open(path)
			if err != nil {
				return err
			}

			report, err := r.Verify()
			if err != nil {
				return err
			}

			fmt.Fprintf(
				cmd.OutOrStdout(),
				"ok: verified %d loose object(s), %d pack file(s), %d packed object(s)\n",
				report.LooseObjects,
				report.PackFiles,
				report.PackObjects,
			)
			return nil
		},
	}
}
