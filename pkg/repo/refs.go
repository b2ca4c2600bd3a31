package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blobby-vcs/blobby/pkg/object"
)

// Head reads the HEAD file. A symbolic HEAD returns the ref path (for
// example "refs/heads/main"); a detached HEAD returns the raw hash string.
func (r *Repository) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GitDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")
	if target, ok := strings.CutPrefix(content, "ref: "); ok {
		return target, nil
	}
	return content, nil
}

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. "HEAD" reads HEAD; a symbolic HEAD resolves its target ref.
//  2. A name starting with "refs/" is read as-is; other names try
//     "refs/tags/<name>" then "refs/heads/<name>".
//  3. A loose ref file wins over a packed-refs entry of the same name.
func (r *Repository) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		return object.Hash(head), nil
	}

	candidates := []string{name}
	if !strings.HasPrefix(name, "refs/") {
		candidates = []string{"refs/tags/" + name, "refs/heads/" + name}
	}

	for _, ref := range candidates {
		data, err := os.ReadFile(filepath.Join(r.GitDir, filepath.FromSlash(ref)))
		if err == nil {
			content := strings.TrimSpace(string(data))
			if target, ok := strings.CutPrefix(content, "ref: "); ok {
				return r.ResolveRef(target)
			}
			return object.Hash(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("resolve ref %q: %w", name, err)
		}
		if h, ok, err := r.packedRef(ref); err != nil {
			return "", err
		} else if ok {
			return h, nil
		}
	}
	return "", fmt.Errorf("resolve ref %q: %w", name, object.ErrNotFound)
}

// packedRef looks name up in the packed-refs file. Peeled lines (starting
// with '^') carry the target of the preceding annotated tag and are skipped;
// the tag ref itself names the tag object.
func (r *Repository) packedRef(name string) (object.Hash, bool, error) {
	f, err := os.Open(filepath.Join(r.GitDir, "packed-refs"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read packed-refs: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}
		hashStr, ref, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		if ref == name {
			return object.Hash(hashStr), true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read packed-refs: %w", err)
	}
	return "", false, nil
}
