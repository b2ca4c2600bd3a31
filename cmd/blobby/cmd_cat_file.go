package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blobby-vcs/blobby/pkg/object"
	"github.com/blobby-vcs/blobby/pkg/repo"
)

func newCatFileCmd(repoPath *string) *cobra.Command {
	var showType, showSize, pretty bool

	cmd := &cobra.Command{
		Use:   "cat-file (-t | -s | -p) <object>",
		Short: "Show object type, size, or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, on := range []bool{showType, showSize, pretty} {
				if on {
					modes++
				}
			}
			if modes != 1 {
				return fmt.Errorf("cat-file: exactly one of -t, -s, -p is required")
			}

			r, err := repo.Open(*repoPath)
			if err != nil {
				return err
			}
			h, err := resolveName(r, args[0])
			if err != nil {
				return err
			}
			obj, err := r.Resolve(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, obj.Type)
			case showSize:
				fmt.Fprintln(out, obj.Size)
			case pretty:
				return prettyPrint(out, r, obj)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the payload size")
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "print the payload")
	return cmd
}

// resolveName accepts a full object hash or a ref name.
func resolveName(r *repo.Repository, name string) (object.Hash, error) {
	if len(name) == r.Format.HexSize() {
		if _, err := hex.DecodeString(name); err == nil {
			return object.Hash(name), nil
		}
	}
	return r.ResolveRef(name)
}

func prettyPrint(out io.Writer, r *repo.Repository, obj *object.DecodedObject) error {
	if obj.Type != object.TypeTree {
		_, err := out.Write(obj.Data)
		return err
	}

	entries, err := parseTreeEntries(obj.Data, r.Format)
	if err != nil {
		return err
	}
	for _, e := range entries {
		entryType := "????"
		if child, err := r.Resolve(e.Hash); err == nil {
			entryType = string(child.Type)
		}
		mode := e.Mode
		for len(mode) < 6 {
			mode = "0" + mode
		}
		fmt.Fprintf(out, "%s %s %s\t%s\n", mode, entryType, e.Hash, e.Name)
	}
	return nil
}

type treeEntry struct {
	Mode string
	Name string
	Hash object.Hash
}

// parseTreeEntries walks the tree payload: each entry is
// "<mode> <name>\x00" followed by the raw entry hash.
func parseTreeEntries(data []byte, format object.ObjectFormat) ([]treeEntry, error) {
	var entries []treeEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("tree entry: missing mode separator")
		}
		mode := string(data[:sp])
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("tree entry: missing name terminator")
		}
		name := string(data[:nul])
		data = data[nul+1:]

		if len(data) < format.Size() {
			return nil, fmt.Errorf("tree entry %q: truncated hash", name)
		}
		entries = append(entries, treeEntry{
			Mode: mode,
			Name: name,
			Hash: object.Hash(hex.EncodeToString(data[:format.Size()])),
		})
		data = data[format.Size():]
	}
	return entries, nil
}
