package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/blobby-vcs/blobby/pkg/object"
)

// VerifySummary reports what a Verify pass checked.
type VerifySummary struct {
	LooseObjects int
	PackFiles    int
	PackObjects  int
}

// Verify checks the whole object database: every loose object re-hashes to
// its name, every index and pack checksum holds, v2 per-entry CRC32s match
// the stored bytes, and every indexed hash resolves to content with that
// hash. It stops at the first failure.
func (r *Repository) Verify() (*VerifySummary, error) {
	summary := &VerifySummary{}

	looseHashes, err := r.LooseObjectHashes()
	if err != nil {
		return nil, err
	}
	for _, h := range looseHashes {
		obj, err := r.Store.ReadLoose(h)
		if err != nil {
			return nil, fmt.Errorf("verify loose %s: %w", h, err)
		}
		if computed := object.HashObject(r.Format, obj.Type, obj.Data); computed != h {
			return nil, fmt.Errorf("verify loose %s: content hashes to %s", h, computed)
		}
		summary.LooseObjects++
	}

	pairs, err := r.layout.PackPairs()
	if err != nil {
		return nil, err
	}
	for _, pair := range pairs {
		count, err := r.verifyPack(pair)
		if err != nil {
			return nil, err
		}
		summary.PackFiles++
		summary.PackObjects += count
	}

	r.log.WithFields(logrus.Fields{
		"loose": summary.LooseObjects,
		"packs": summary.PackFiles,
	}).Debug("verify complete")
	return summary, nil
}

func (r *Repository) verifyPack(pair object.PackPair) (int, error) {
	idxName := filepath.Base(pair.IndexPath)
	packName := filepath.Base(pair.PackPath)

	idxData, err := os.ReadFile(pair.IndexPath)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", idxName, err)
	}
	idx, err := object.ReadPackIndex(idxData, r.Format)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", idxName, err)
	}
	if err := object.VerifyIndexChecksum(idxData, r.Format); err != nil {
		return 0, fmt.Errorf("verify %s: %w", idxName, err)
	}

	packData, err := os.ReadFile(pair.PackPath)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", packName, err)
	}
	pack, err := object.OpenPack(packData, r.Format)
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", packName, err)
	}
	if err := pack.VerifyChecksum(); err != nil {
		return 0, fmt.Errorf("verify %s: %w", packName, err)
	}
	if pack.Checksum != idx.PackChecksum {
		return 0, fmt.Errorf("verify %s: index names checksum %s, pack stores %s",
			packName, idx.PackChecksum, pack.Checksum)
	}

	entries, err := pack.Entries()
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", packName, err)
	}
	if len(entries) != idx.Count() {
		return 0, fmt.Errorf("verify %s: pack holds %d entries, index lists %d",
			packName, len(entries), idx.Count())
	}

	for _, indexed := range idx.Entries() {
		if idx.Version == 2 && indexed.CRC32 != 0 {
			entry, err := pack.EntryAt(indexed.Offset)
			if err != nil {
				return 0, fmt.Errorf("verify %s at %d: %w", packName, indexed.Offset, err)
			}
			if crc := pack.EntryChecksum(entry); crc != indexed.CRC32 {
				return 0, fmt.Errorf("verify %s: entry %s crc32 %08x, index lists %08x",
					packName, indexed.Hash, crc, indexed.CRC32)
			}
		}

		obj, err := r.Store.Resolve(indexed.Hash)
		if err != nil {
			return 0, fmt.Errorf("verify %s: resolve %s: %w", packName, indexed.Hash, err)
		}
		if computed := object.HashObject(r.Format, obj.Type, obj.Data); computed != indexed.Hash {
			return 0, fmt.Errorf("verify %s: object %s resolves to content hashing %s",
				packName, indexed.Hash, computed)
		}
	}
	return idx.Count(), nil
}
