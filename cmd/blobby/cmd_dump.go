package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blobby-vcs/blobby/pkg/object"
	"github.com/blobby-vcs/blobby/pkg/repo"
)

func newDumpCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [path]",
		Short: "Dump metadata for every loose and packed object",
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
			out := cmd.OutOrStdout()

			looseHashes, err := r.LooseObjectHashes()
			if err != nil {
				return err
			}
			for _, h := range looseHashes {
				obj, err := r.Store.ReadLoose(h)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "loose %s %s %d\n", h, obj.Type, obj.Size)
			}

			indexes, packs, err := r.Store.Packs()
			if err != nil {
				return err
			}
			for i, pack := range packs {
				fmt.Fprintf(out, "pack version=%d objects=%d checksum=%s\n",
					pack.Header.Version, pack.Header.NumObjects, pack.Checksum)

				entries, err := pack.Entries()
				if err != nil {
					return err
				}
				names := hashesByOffset(indexes[i])
				for _, entry := range entries {
					name := names[entry.Offset]
					if name == "" {
						name = "(unindexed)"
					}
					switch entry.Type {
					case object.PackOfsDelta:
						fmt.Fprintf(out, "  %-8d %s %s size=%d stored=%d base-offset=%d\n",
							entry.Offset, entry.Type, name, entry.Size, entry.StoredLength, entry.BaseOffset)
					case object.PackRefDelta:
						fmt.Fprintf(out, "  %-8d %s %s size=%d stored=%d base=%s\n",
							entry.Offset, entry.Type, name, entry.Size, entry.StoredLength, entry.BaseHash)
					default:
						fmt.Fprintf(out, "  %-8d %s %s size=%d stored=%d\n",
							entry.Offset, entry.Type, name, entry.Size, entry.StoredLength)
					}
				}
			}
			return nil
		},
	}
}

func hashesByOffset(idx *object.PackIndex) map[uint64]string {
	out := make(map[uint64]string, idx.Count())
	for _, e := range idx.Entries() {
		out[e.Offset] = string(e.Hash)
	}
	return out
}
