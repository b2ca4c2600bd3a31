package repo

import (
	"path/filepath"
	"testing"

	"github.com/blobby-vcs/blobby/pkg/object"
)

func TestReadGitConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := readGitConfig(filepath.Join(t.TempDir(), "config"))
	if err != nil {
		t.Fatalf("readGitConfig: %v", err)
	}
	if cfg.format != object.SHA1 || cfg.version != 0 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestReadGitConfigSHA256Extension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	writeFile(t, path, `[core]
	repositoryformatversion = 1
	bare = false
[extensions]
	objectformat = sha256
`)

	cfg, err := readGitConfig(path)
	if err != nil {
		t.Fatalf("readGitConfig: %v", err)
	}
	if cfg.format != object.SHA256 {
		t.Fatalf("format = %v, want sha256", cfg.format)
	}
	if cfg.version != 1 {
		t.Fatalf("version = %d, want 1", cfg.version)
	}
}

func TestReadGitConfigIgnoresUnknownSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	writeFile(t, path, `[core]
	repositoryformatversion = 0
[remote "origin"]
	url = https://example.com/repo.git
	fetch = +refs/heads/*:refs/remotes/origin/*
[user]
	name = Somebody
`)

	cfg, err := readGitConfig(path)
	if err != nil {
		t.Fatalf("readGitConfig: %v", err)
	}
	if cfg.format != object.SHA1 {
		t.Fatalf("format = %v", cfg.format)
	}
}

func TestReadGitConfigRejectsNewFormatVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	writeFile(t, path, "[core]\n\trepositoryformatversion = 2\n")

	if _, err := readGitConfig(path); err == nil {
		t.Fatal("expected error for format version 2")
	}
}

func TestReadGitConfigRejectsUnknownObjectFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	writeFile(t, path, "[extensions]\n\tobjectformat = md5\n")

	if _, err := readGitConfig(path); err == nil {
		t.Fatal("expected error for unknown object format")
	}
}
