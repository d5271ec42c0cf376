// Package manifest reads the manifest.json that the image engine writes at the root of
// an unpacked image archive.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aceeric/layercache/impl/globals"

	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"
)

// Entry is one image in the manifest. Layer paths are slash-separated and relative to
// the root of the unpacked archive. The same layer path can be listed by more than one
// entry when images share base layers.
type Entry struct {
	Config   string   `json:"Config"`
	RepoTags []string `json:"RepoTags"`
	Layers   []string `json:"Layers"`
}

// Raw returns the bytes of the manifest file in 'dir' exactly as written
func Raw(dir string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(dir, globals.ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("unable to read image manifest: %w", err)
	}
	return b, nil
}

// Load parses the manifest file in 'dir'
func Load(dir string) ([]Entry, error) {
	b, err := Raw(dir)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("unable to parse image manifest in %s: %w", dir, err)
	}
	for i := range entries {
		if entries[i].RepoTags == nil {
			entries[i].RepoTags = []string{}
		}
	}
	return entries, nil
}

// RootHash returns the hex SHA-256 of the raw manifest bytes in 'dir'. The manifest is
// not re-serialized so the hash reflects exactly what the engine exported.
func RootHash(dir string) (string, error) {
	b, err := Raw(dir)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(b).Encoded(), nil
}

// LayerIDs returns the distinct layer IDs of every entry in the manifest in 'dir', in
// the order first seen. A layer ID is the directory part of a layer path.
func LayerIDs(dir string) ([]string, error) {
	entries, err := Load(dir)
	if err != nil {
		return nil, err
	}
	ids := layerIDs(entries)
	log.Debugf("layer ids in %s: %v", dir, ids)
	return ids, nil
}

func layerIDs(entries []Entry) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, entry := range entries {
		for _, layer := range entry.Layers {
			id := path.Dir(layer)
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
