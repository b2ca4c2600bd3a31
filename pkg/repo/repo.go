// Package repo locates git repositories on disk and exposes read-only access
// to their object databases.
package repo

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/blobby-vcs/blobby/pkg/cache"
	"github.com/blobby-vcs/blobby/pkg/object"
)

// Repository is an opened repository. All access is read-only.
type Repository struct {
	RootDir string        // working directory root, empty for bare repositories
	GitDir  string        // .git directory (or the repository itself when bare)
	Format  object.ObjectFormat
	Store   *object.Store
	Config  ToolConfig

	layout *gitLayout
	cache  *cache.Cache
	log    *logrus.Entry
}

// Open searches upward from path for a .git directory and opens the
// repository found there. A path that is itself a git directory (bare
// repository) is accepted directly.
func Open(path string) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	gitDir, rootDir, err := locateGitDir(abs)
	if err != nil {
		return nil, err
	}
	return openGitDir(gitDir, rootDir)
}

func locateGitDir(abs string) (gitDir, rootDir string, err error) {
	if isGitDir(abs) {
		return abs, "", nil
	}
	cur := abs
	for {
		candidate := filepath.Join(cur, ".git")
		if isGitDir(candidate) {
			return candidate, cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", "", fmt.Errorf("open: not a git repository (or any parent up to /)")
		}
		cur = parent
	}
}

// isGitDir accepts a directory holding at least HEAD and objects/, which
// covers both .git directories and bare repositories.
func isGitDir(path string) bool {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(filepath.Join(path, "HEAD")); err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(path, "objects"))
	return err == nil && info.IsDir()
}

func openGitDir(gitDir, rootDir string) (*Repository, error) {
	gitCfg, err := readGitConfig(filepath.Join(gitDir, "config"))
	if err != nil {
		return nil, err
	}
	toolCfg, err := LoadToolConfig(rootDir)
	if err != nil {
		return nil, err
	}

	layout := &gitLayout{gitDir: gitDir}
	store := object.NewStore(layout, object.Options{
		Format:          gitCfg.format,
		MaxDeltaDepth:   toolCfg.MaxDeltaDepth,
		VerifyIntegrity: toolCfg.VerifyIntegrity,
	})
	objCache, err := cache.New(toolCfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("open: object cache: %w", err)
	}

	log := logrus.WithField("gitdir", gitDir)
	log.WithFields(logrus.Fields{
		"format":          gitCfg.format,
		"max_delta_depth": toolCfg.MaxDeltaDepth,
	}).Debug("opened repository")

	return &Repository{
		RootDir: rootDir,
		GitDir:  gitDir,
		Format:  gitCfg.format,
		Store:   store,
		Config:  toolCfg,
		layout:  layout,
		cache:   objCache,
		log:     log,
	}, nil
}

// Resolve returns the decoded object named by h. Results are memoized in a
// fixed-size cache; decoded objects are shared and must not be mutated.
func (r *Repository) Resolve(h object.Hash) (*object.DecodedObject, error) {
	v, err := r.cache.GetOrSet(h, func() (interface{}, error) {
		r.log.WithField("hash", h).Debug("resolving object")
		return r.Store.Resolve(h)
	})
	if err != nil {
		return nil, err
	}
	return v.(*object.DecodedObject), nil
}

// Has reports whether h exists in the object database.
func (r *Repository) Has(h object.Hash) (bool, error) {
	return r.Store.Has(h)
}

// LooseObjectHashes lists every loose object in the database, sorted.
func (r *Repository) LooseObjectHashes() ([]object.Hash, error) {
	return r.layout.looseObjectHashes()
}

// gitLayout implements object.Layout over a standard git directory.
type gitLayout struct {
	gitDir string
}

func (l *gitLayout) LooseObjectPath(h object.Hash) string {
	return filepath.Join(l.gitDir, "objects", string(h[:2]), string(h[2:]))
}

func (l *gitLayout) PackPairs() ([]object.PackPair, error) {
	packDir := filepath.Join(l.gitDir, "objects", "pack")
	entries, err := os.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pack dir: %w", err)
	}

	pairs := make([]object.PackPair, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".idx") {
			continue
		}
		idxPath := filepath.Join(packDir, entry.Name())
		packPath := strings.TrimSuffix(idxPath, ".idx") + ".pack"
		if _, err := os.Stat(packPath); err != nil {
			return nil, fmt.Errorf("pack for index %s: %w", entry.Name(), err)
		}
		pairs = append(pairs, object.PackPair{IndexPath: idxPath, PackPath: packPath})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].IndexPath < pairs[j].IndexPath })
	return pairs, nil
}

func (l *gitLayout) looseObjectHashes() ([]object.Hash, error) {
	objectsDir := filepath.Join(l.gitDir, "objects")
	fanoutDirs, err := os.ReadDir(objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read objects dir: %w", err)
	}

	var hashes []object.Hash
	for _, fanoutDir := range fanoutDirs {
		if !fanoutDir.IsDir() {
			continue
		}
		prefix := fanoutDir.Name()
		if !isHexComponent(prefix, 2) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(objectsDir, prefix))
		if err != nil {
			return nil, fmt.Errorf("read objects fanout %s: %w", prefix, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			// Suffix length varies by object format; accept any even
			// hex run so sha1 and sha256 databases both enumerate.
			if len(f.Name())%2 != 0 || !isHexComponent(f.Name(), len(f.Name())) {
				continue
			}
			hashes = append(hashes, object.Hash(prefix+f.Name()))
		}
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes, nil
}

func isHexComponent(s string, expectedLen int) bool {
	if len(s) != expectedLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
