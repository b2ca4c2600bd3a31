package repo

import (
	"fmt"
	"os"

	"github.com/src-d/gcfg"

	"github.com/blobby-vcs/blobby/pkg/object"
)

// maxRepositoryFormatVersion is the newest core.repositoryformatversion this
// reader understands. Version 1 only changes behavior through extensions,
// and the extensions we know are handled explicitly.
const maxRepositoryFormatVersion = 1

type gitConfig struct {
	version int
	format  object.ObjectFormat
}

// gitConfigFile mirrors the sections of .git/config we consume. Unknown
// sections and keys are ignored; only parse failures are fatal.
type gitConfigFile struct {
	Core struct {
		RepositoryFormatVersion int  `gcfg:"repositoryformatversion"`
		Bare                    bool `gcfg:"bare"`
	}
	Extensions struct {
		ObjectFormat string `gcfg:"objectformat"`
	}
}

// readGitConfig parses the repository config file. A missing file yields the
// defaults: format version 0, sha1 objects.
func readGitConfig(path string) (gitConfig, error) {
	cfg := gitConfig{format: object.SHA1}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read git config: %w", err)
	}

	var file gitConfigFile
	if err := gcfg.FatalOnly(gcfg.ReadStringInto(&file, string(data))); err != nil {
		return cfg, fmt.Errorf("parse git config %s: %w", path, err)
	}

	cfg.version = file.Core.RepositoryFormatVersion
	if cfg.version > maxRepositoryFormatVersion {
		return cfg, fmt.Errorf("git config %s: repository format version %d unsupported", path, cfg.version)
	}
	if file.Extensions.ObjectFormat != "" {
		format, err := object.ParseObjectFormat(file.Extensions.ObjectFormat)
		if err != nil {
			return cfg, fmt.Errorf("git config %s: %w", path, err)
		}
		cfg.format = format
	}
	return cfg, nil
}
