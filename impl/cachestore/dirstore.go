package cachestore

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aceeric/layercache/impl/archive"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"
)

const (
	// MaxKeyLength is the longest key a DirStore accepts
	MaxKeyLength = 512
	entrySuffix  = ".tar.zst"
	keySuffix    = ".key"
	tmpPrefix    = ".tmp-"
)

// DirStore is a Store that keeps one zstd-compressed tar per key in a directory,
// typically a cache volume shared between pipeline runs. Entry files are named by
// the digest of the key, and a sidecar file next to each holds the key itself for
// prefix matching. Entry names are relative to the path they were saved from, so
// a restore can extract them into different paths, matched by position.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if necessary and returns a store on it
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

func validateKey(key string) error {
	switch {
	case key == "":
		return Validationf(key, "key is empty")
	case len(key) > MaxKeyLength:
		return Validationf(key, "key is longer than %d characters", MaxKeyLength)
	case strings.Contains(key, ","):
		return Validationf(key, "key cannot contain commas")
	}
	return nil
}

func absPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, Validationf("", "no paths specified")
	}
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, NewError(KindValidation, "", err)
		}
		abs = append(abs, a)
	}
	return abs, nil
}

func (s *DirStore) entryPath(key string) string {
	return filepath.Join(s.dir, digest.FromString(key).Encoded()+entrySuffix)
}

func (s *DirStore) keyPath(key string) string {
	return filepath.Join(s.dir, digest.FromString(key).Encoded()+keySuffix)
}

// Save archives 'paths' under 'key'. The entry is written to a temp file and then
// hard-linked into place, so the key is reserved exactly once even if two saves race.
// The key sidecar is in place before the link.
func (s *DirStore) Save(ctx context.Context, paths []string, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	abs, err := absPaths(paths)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", NewError(KindGeneric, key, err)
	}
	final := s.entryPath(key)
	if _, err := os.Stat(final); err == nil {
		return "", NewError(KindAlreadyExists, key, errors.New("unable to reserve cache with key"))
	}
	id := uuid.New().String()
	tmp := filepath.Join(s.dir, tmpPrefix+id)
	defer os.Remove(tmp)
	if err := writeEntry(tmp, abs); err != nil {
		return "", NewError(KindGeneric, key, err)
	}
	if err := s.writeKey(key, id); err != nil {
		return "", NewError(KindGeneric, key, err)
	}
	if err := os.Link(tmp, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", NewError(KindAlreadyExists, key, errors.New("unable to reserve cache with key"))
		}
		return "", NewError(KindGeneric, key, err)
	}
	log.Debugf("saved cache entry %s for key %s", id, key)
	return id, nil
}

// writeKey puts the key sidecar in place with a rename. Racing saves of the same key
// write the same content.
func (s *DirStore) writeKey(key string, id string) error {
	tmp := filepath.Join(s.dir, tmpPrefix+id+keySuffix)
	if err := os.WriteFile(tmp, []byte(key), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.keyPath(key)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// entryName is the tar name of 'path' found under the saved path at 'index'
func entryName(index int, root string, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return strconv.Itoa(index), nil
	}
	return strconv.Itoa(index) + "/" + filepath.ToSlash(rel), nil
}

func writeEntry(file string, paths []string) error {
	f, err := os.OpenFile(file, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(enc)
	for i, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name, err := entryName(i, root, path)
			if err != nil {
				return err
			}
			return archive.AddEntry(tw, path, name)
		})
		if err != nil {
			enc.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// Restore finds an entry for 'primary' or, failing that, the newest entry whose key
// starts with one of 'fallbacks' (tried in order), and extracts it. The entry saved
// from the N'th path is extracted into the N'th of 'paths'. An entry with more paths
// than requested is an error.
func (s *DirStore) Restore(ctx context.Context, paths []string, primary string, fallbacks []string) (string, error) {
	for _, key := range append([]string{primary}, fallbacks...) {
		if err := validateKey(key); err != nil {
			return "", err
		}
	}
	abs, err := absPaths(paths)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", NewError(KindGeneric, primary, err)
	}
	key, err := s.match(primary, fallbacks)
	if err != nil {
		return "", NewError(KindGeneric, primary, err)
	}
	if key == "" {
		return "", NewError(KindNotFound, primary, nil)
	}
	if err := readEntry(s.entryPath(key), abs); err != nil {
		return "", NewError(KindGeneric, key, err)
	}
	log.Debugf("restored cache entry for key %s", key)
	return key, nil
}

// match returns the key to restore, or the empty string if nothing matches
func (s *DirStore) match(primary string, fallbacks []string) (string, error) {
	if _, err := os.Stat(s.entryPath(primary)); err == nil {
		return primary, nil
	}
	if len(fallbacks) == 0 {
		return "", nil
	}
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", err
	}
	type candidate struct {
		key     string
		modTime time.Time
	}
	candidates := []candidate{}
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, keySuffix) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		key := string(b)
		// a sidecar without an entry is a save that lost the race or never finished
		info, err := os.Stat(s.entryPath(key))
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{key, info.ModTime()})
	}
	for _, prefix := range fallbacks {
		best := candidate{}
		for _, c := range candidates {
			if strings.HasPrefix(c.key, prefix) && (best.key == "" || c.modTime.After(best.modTime)) {
				best = c
			}
		}
		if best.key != "" {
			return best.key, nil
		}
	}
	return "", nil
}

func readEntry(file string, paths []string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	return archive.UntarFunc(dec, func(name string) (string, error) {
		first, rest, _ := strings.Cut(strings.TrimSuffix(name, "/"), "/")
		index, err := strconv.Atoi(first)
		if err != nil || index < 0 {
			return "", fmt.Errorf("cache entry %q has no path index", name)
		}
		if index >= len(paths) {
			return "", fmt.Errorf("cache entry %q was saved from more than %d path(s)", name, len(paths))
		}
		if rest == "" {
			return paths[index], nil
		}
		return archive.Within(paths[index], rest)
	})
}
