package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
)

// entrySize is the fixed width of one index record: a big-endian uint32
// primary key followed by a big-endian uint32 byte offset into the row log.
const entrySize = 8

// Entry is one (primary key, log offset) pair.
type Entry struct {
	Key    int64
	Offset int64
}

// Indexer maintains a flat on-disk index file of fixed-width (key, offset)
// pairs kept sorted ascending by key. It is purely derived state: losing the
// file only costs a rebuild from the row log, never data.
type Indexer struct {
	path string
}

func New(path string) *Indexer {
	return &Indexer{path: path}
}

// Indexable reports whether a primary-key value fits the on-disk key width.
// Non-integer and out-of-range keys fall back to linear scans.
func Indexable(key int64) bool {
	return key >= 0 && key <= math.MaxUint32
}

// Find binary-searches the index file for key and returns the row log offset.
func (ix *Indexer) Find(key int64) (int64, bool, error) {
	if !Indexable(key) {
		return 0, false, nil
	}

	f, err := os.Open(ix.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("open index %s: %w", ix.path, err)
	}
	defer f.Close()

	n, err := entryCount(f)
	if err != nil {
		return 0, false, err
	}

	buf := make([]byte, entrySize)
	left, right := int64(0), n-1
	for left <= right {
		mid := (left + right) / 2
		if _, err := f.ReadAt(buf, mid*entrySize); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, false, fmt.Errorf("read index %s: %w", ix.path, err)
		}
		midKey := int64(binary.BigEndian.Uint32(buf[0:4]))
		switch {
		case midKey == key:
			return int64(binary.BigEndian.Uint32(buf[4:8])), true, nil
		case midKey < key:
			left = mid + 1
		default:
			right = mid - 1
		}
	}

	return 0, false, nil
}

// Append inserts a (key, offset) pair while preserving sort order: the
// insertion point is located by binary search, then every later entry is
// shifted one slot to make room. O(log N) search, O(N) shift.
func (ix *Indexer) Append(key, offset int64) error {
	if !Indexable(key) || !Indexable(offset) {
		return fmt.Errorf("index entry (%d, %d) out of range", key, offset)
	}

	f, err := os.OpenFile(ix.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open index %s: %w", ix.path, err)
	}
	defer f.Close()

	n, err := entryCount(f)
	if err != nil {
		return err
	}

	buf := make([]byte, entrySize)
	insertPos := n
	left, right := int64(0), n-1
	for left <= right {
		mid := (left + right) / 2
		if _, err := f.ReadAt(buf, mid*entrySize); err != nil {
			return fmt.Errorf("read index %s: %w", ix.path, err)
		}
		midKey := int64(binary.BigEndian.Uint32(buf[0:4]))
		if midKey == key {
			// Duplicate keys are rejected by table validation before they
			// reach the index; overwrite in place if one slips through.
			insertPos = mid
			n = mid // skip the shift below
			break
		} else if midKey < key {
			left = mid + 1
			insertPos = left
		} else {
			right = mid - 1
			insertPos = mid
		}
	}

	for i := n - 1; i >= insertPos; i-- {
		if _, err := f.ReadAt(buf, i*entrySize); err != nil {
			return fmt.Errorf("read index %s: %w", ix.path, err)
		}
		if _, err := f.WriteAt(buf, (i+1)*entrySize); err != nil {
			return fmt.Errorf("write index %s: %w", ix.path, err)
		}
	}

	putEntry(buf, key, offset)
	if _, err := f.WriteAt(buf, insertPos*entrySize); err != nil {
		return fmt.Errorf("write index %s: %w", ix.path, err)
	}

	return nil
}

// Rebuild sorts the pairs by key and rewrites the whole index file.
// Entries with out-of-range keys are skipped; those rows are reachable by
// linear scan only.
func (ix *Indexer) Rebuild(pairs []Entry) error {
	if err := ix.Clear(); err != nil {
		return err
	}

	kept := make([]Entry, 0, len(pairs))
	for _, e := range pairs {
		if Indexable(e.Key) && Indexable(e.Offset) {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Key < kept[j].Key })

	f, err := os.OpenFile(ix.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create index %s: %w", ix.path, err)
	}
	defer f.Close()

	buf := make([]byte, entrySize)
	for _, e := range kept {
		putEntry(buf, e.Key, e.Offset)
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("write index %s: %w", ix.path, err)
		}
	}

	slog.Debug("index rebuilt", "path", ix.path, "entries", len(kept), "skipped", len(pairs)-len(kept))
	return nil
}

// Clear deletes the index file. Missing file is not an error.
func (ix *Indexer) Clear() error {
	if err := os.Remove(ix.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove index %s: %w", ix.path, err)
	}
	return nil
}

func entryCount(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat index: %w", err)
	}
	return info.Size() / entrySize, nil
}

func putEntry(buf []byte, key, offset int64) {
	binary.BigEndian.PutUint32(buf[0:4], uint32(key))
	binary.BigEndian.PutUint32(buf[4:8], uint32(offset))
}
