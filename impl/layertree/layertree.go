// Package layertree manages the working directory that holds an unpacked image archive
// and moves layer archives between the image tree and a side directory so that each
// layer can be cached on its own.
//
// The working root looks like this:
//
//	<root>/image           the unpacked archive: manifest.json, configs, <id>/layer.tar
//	<root>/image-layers    <id>/layer.tar for each layer split out of the image tree
package layertree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aceeric/layercache/impl/globals"

	log "github.com/sirupsen/logrus"
)

// Tree is the working directory for one store or restore call
type Tree struct {
	root string
}

// New returns a Tree rooted at 'root'. Nothing is created on the filesystem.
func New(root string) Tree {
	return Tree{root: root}
}

// Root is the working root directory
func (t Tree) Root() string {
	return t.root
}

// ImageDir is the directory holding the unpacked image archive
func (t Tree) ImageDir() string {
	return filepath.Join(t.root, globals.ImageDir)
}

// LayersDir is the side directory holding split-out layer archives
func (t Tree) LayersDir() string {
	return t.ImageDir() + globals.LayersSuffix
}

// LayerPath is the path of the layer archive for 'layerID' in the side directory
func (t Tree) LayerPath(layerID string) string {
	return filepath.Join(t.LayersDir(), filepath.FromSlash(layerID), globals.LayerFile)
}

// Reset removes anything left under the working root and creates an empty image
// directory
func (t Tree) Reset() error {
	if err := os.RemoveAll(t.root); err != nil {
		return err
	}
	return os.MkdirAll(t.ImageDir(), 0755)
}

// CleanUp removes the working root and everything in it. It is not an error if the
// root does not exist.
func (t Tree) CleanUp() error {
	return os.RemoveAll(t.root)
}

// Split moves every layer archive out of the image tree into the side directory
func (t Tree) Split() error {
	return MoveLayers(t.ImageDir(), t.LayersDir())
}

// Join moves every layer archive from the side directory back into the image tree
func (t Tree) Join() error {
	return MoveLayers(t.LayersDir(), t.ImageDir())
}

// MoveLayers finds every layer archive under 'fromDir' and renames it to the same
// relative path under 'toDir', creating directories as needed. Nothing else is
// moved and file content is not touched.
func MoveLayers(fromDir string, toDir string) error {
	layers, err := findLayers(fromDir)
	if err != nil {
		return err
	}
	for _, rel := range layers {
		from := filepath.Join(fromDir, rel)
		to := filepath.Join(toDir, rel)
		log.Debugf("moving layer tar from %s to %s", from, to)
		if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
			return err
		}
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("unable to move layer %s: %w", rel, err)
		}
	}
	return nil
}

// findLayers returns the paths of all layer archives under 'dir' relative to 'dir'
func findLayers(dir string) ([]string, error) {
	layers := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != globals.LayerFile {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		layers = append(layers, rel)
		return nil
	})
	return layers, err
}
