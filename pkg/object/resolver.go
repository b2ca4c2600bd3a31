package object

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// DefaultMaxDeltaDepth caps delta chains when Options leaves the limit
// unset. Real packs rarely chain past a few dozen deltas; a longer chain is
// overwhelmingly a sign of corruption.
const DefaultMaxDeltaDepth = 50

// PackPair names a pack file and its companion index.
type PackPair struct {
	IndexPath string
	PackPath  string
}

// Layout locates object storage on disk. pkg/repo provides the standard
// implementation over a .git directory; tests provide synthetic ones.
type Layout interface {
	// LooseObjectPath maps a hash to its loose object file path.
	LooseObjectPath(h Hash) string
	// PackPairs lists the available index/pack file pairs.
	PackPairs() ([]PackPair, error)
}

// Options tunes a Store.
type Options struct {
	Format ObjectFormat
	// MaxDeltaDepth is the delta chain length at which resolution fails
	// with ErrDeltaChainTooDeep. Zero means DefaultMaxDeltaDepth.
	MaxDeltaDepth int
	// VerifyIntegrity recomputes object hashes on every read instead of
	// trusting on-disk content.
	VerifyIntegrity bool
}

// Store resolves object hashes to decoded objects, reading loose storage
// first and falling back to pack files. Pack and index bytes are loaded
// once, kept immutable, and shared by concurrent Resolve calls.
type Store struct {
	layout Layout
	opts   Options

	loadOnce sync.Once
	loadErr  error
	packs    []*packHandle
}

type packHandle struct {
	pair PackPair
	idx  *PackIndex
	pack *Pack
}

// NewStore creates a Store over the given layout. Packs are opened lazily
// on the first lookup that misses loose storage.
func NewStore(layout Layout, opts Options) *Store {
	if opts.MaxDeltaDepth <= 0 {
		opts.MaxDeltaDepth = DefaultMaxDeltaDepth
	}
	return &Store{layout: layout, opts: opts}
}

// Format returns the object format the store was configured with.
func (s *Store) Format() ObjectFormat {
	return s.opts.Format
}

// Resolve returns the decoded object named by h, following delta chains
// down to a non-delta base when the object is packed.
func (s *Store) Resolve(h Hash) (*DecodedObject, error) {
	return s.resolve(h, 0)
}

// Has reports whether h can be found in loose storage or any pack index.
// It never inflates object content.
func (s *Store) Has(h Hash) (bool, error) {
	if len(h) != s.opts.Format.HexSize() {
		return false, nil
	}
	if _, err := os.Stat(s.layout.LooseObjectPath(h)); err == nil {
		return true, nil
	}
	if err := s.load(); err != nil {
		return false, err
	}
	for _, ph := range s.packs {
		if _, ok := ph.idx.Find(h); ok {
			return true, nil
		}
	}
	return false, nil
}

// ReadLoose decodes the loose object file for h, if one exists.
func (s *Store) ReadLoose(h Hash) (*DecodedObject, error) {
	if len(h) != s.opts.Format.HexSize() {
		return nil, fmt.Errorf("loose object %q: %w", h, ErrNotFound)
	}
	compressed, err := os.ReadFile(s.layout.LooseObjectPath(h))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loose object %s: %w", h, ErrNotFound)
		}
		return nil, fmt.Errorf("read loose object %s: %w", h, err)
	}
	obj, err := DecodeLoose(compressed)
	if err != nil {
		return nil, fmt.Errorf("loose object %s: %w", h, err)
	}
	if s.opts.VerifyIntegrity {
		if err := s.checkIntegrity(h, obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// Packs returns the loaded pack handles as (index, pack) pairs for callers
// that walk pack contents directly, such as a verify pass.
func (s *Store) Packs() ([]*PackIndex, []*Pack, error) {
	if err := s.load(); err != nil {
		return nil, nil, err
	}
	indexes := make([]*PackIndex, len(s.packs))
	packs := make([]*Pack, len(s.packs))
	for i, ph := range s.packs {
		indexes[i] = ph.idx
		packs[i] = ph.pack
	}
	return indexes, packs, nil
}

func (s *Store) resolve(h Hash, depth int) (*DecodedObject, error) {
	obj, err := s.ReadLoose(h)
	if err == nil {
		return obj, nil
	}
	// Falling through to packed storage is the designed search order, not
	// error recovery; anything but a miss is surfaced as-is.
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	for _, ph := range s.packs {
		entry, ok := ph.idx.Find(h)
		if !ok {
			continue
		}
		return s.resolveAt(ph, entry.Offset, h, depth)
	}
	return nil, fmt.Errorf("object %s: %w", h, ErrNotFound)
}

// resolveAt decodes the pack entry at offset, walking down any delta chain
// with an explicit stack and applying the collected deltas back up once a
// non-delta base is reached. depth counts delta hops already taken by
// enclosing resolutions so that ref-delta detours cannot dodge the cap.
func (s *Store) resolveAt(ph *packHandle, offset uint64, h Hash, depth int) (*DecodedObject, error) {
	var (
		base   *DecodedObject
		deltas [][]byte
	)

chain:
	for {
		entry, err := ph.pack.EntryAt(offset)
		if err != nil {
			return nil, fmt.Errorf("object %s in %s: %w", h, ph.pair.PackPath, err)
		}

		if t, ok := entry.Type.ObjectType(); ok {
			base = &DecodedObject{Type: t, Size: entry.Size, Data: entry.Data}
			break chain
		}

		deltas = append(deltas, entry.Data)
		if depth+len(deltas) >= s.opts.MaxDeltaDepth {
			return nil, fmt.Errorf("object %s: chain longer than %d: %w",
				h, s.opts.MaxDeltaDepth, ErrDeltaChainTooDeep)
		}

		switch entry.Type {
		case PackOfsDelta:
			offset = entry.BaseOffset
		case PackRefDelta:
			if baseEntry, ok := ph.idx.Find(entry.BaseHash); ok {
				offset = baseEntry.Offset
				continue chain
			}
			// The base lives outside this pack: loose, or in another
			// pack. The remaining depth budget travels with it.
			baseObj, err := s.resolve(entry.BaseHash, depth+len(deltas))
			if err != nil {
				return nil, fmt.Errorf("object %s: ref-delta base: %w", h, err)
			}
			base = baseObj
			break chain
		}
	}

	data := base.Data
	for i := len(deltas) - 1; i >= 0; i-- {
		var err error
		if data, err = ApplyDelta(data, deltas[i]); err != nil {
			return nil, fmt.Errorf("object %s: %w", h, err)
		}
	}

	obj := &DecodedObject{Type: base.Type, Size: uint64(len(data)), Data: data}
	if s.opts.VerifyIntegrity {
		if err := s.checkIntegrity(h, obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (s *Store) checkIntegrity(h Hash, obj *DecodedObject) error {
	if computed := HashObject(s.opts.Format, obj.Type, obj.Data); computed != h {
		return fmt.Errorf("object %s: content hashes to %s", h, computed)
	}
	return nil
}

// load opens every index/pack pair exactly once. After it returns the
// handles are immutable, so lookups need no locking.
func (s *Store) load() error {
	s.loadOnce.Do(func() {
		pairs, err := s.layout.PackPairs()
		if err != nil {
			s.loadErr = fmt.Errorf("list packs: %w", err)
			return
		}
		for _, pair := range pairs {
			idxData, err := os.ReadFile(pair.IndexPath)
			if err != nil {
				s.loadErr = fmt.Errorf("read pack index %s: %w", pair.IndexPath, err)
				return
			}
			idx, err := ReadPackIndex(idxData, s.opts.Format)
			if err != nil {
				s.loadErr = fmt.Errorf("parse pack index %s: %w", pair.IndexPath, err)
				return
			}
			if s.opts.VerifyIntegrity {
				if err := VerifyIndexChecksum(idxData, s.opts.Format); err != nil {
					s.loadErr = fmt.Errorf("pack index %s: %w", pair.IndexPath, err)
					return
				}
			}

			packData, err := os.ReadFile(pair.PackPath)
			if err != nil {
				s.loadErr = fmt.Errorf("read pack %s: %w", pair.PackPath, err)
				return
			}
			pack, err := OpenPack(packData, s.opts.Format)
			if err != nil {
				s.loadErr = fmt.Errorf("open pack %s: %w", pair.PackPath, err)
				return
			}
			if s.opts.VerifyIntegrity {
				if err := pack.VerifyChecksum(); err != nil {
					s.loadErr = fmt.Errorf("pack %s: %w", pair.PackPath, err)
					return
				}
				if pack.Checksum != idx.PackChecksum {
					s.loadErr = fmt.Errorf("pack %s: index %s names checksum %s, pack stores %s",
						pair.PackPath, pair.IndexPath, idx.PackChecksum, pack.Checksum)
					return
				}
			}

			s.packs = append(s.packs, &packHandle{pair: pair, idx: idx, pack: pack})
		}
	})
	return s.loadErr
}
