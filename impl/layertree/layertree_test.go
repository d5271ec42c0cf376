package layertree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aceeric/layercache/impl/globals"
)

// makeImageTree creates an unpacked archive with a manifest, a config, and two layers
func makeImageTree(t *testing.T, tree Tree) {
	if err := tree.Reset(); err != nil {
		t.FailNow()
	}
	files := map[string]string{
		globals.ManifestFile:   "[]",
		"cfg.json":             "{}",
		"aaa/layer.tar":        "layer-a",
		"aaa/json":             "{}",
		"bbb/layer.tar":        "layer-b",
		"nested/ccc/layer.tar": "layer-c",
	}
	for name, content := range files {
		p := filepath.Join(tree.ImageDir(), name)
		os.MkdirAll(filepath.Dir(p), 0755)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.FailNow()
		}
	}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func TestSplitJoin(t *testing.T) {
	tree := New(filepath.Join(t.TempDir(), "work"))
	makeImageTree(t, tree)
	if err := tree.Split(); err != nil {
		t.FailNow()
	}
	for _, id := range []string{"aaa", "bbb", "nested/ccc"} {
		if exists(filepath.Join(tree.ImageDir(), id, globals.LayerFile)) {
			t.Errorf("layer %s still in image tree", id)
		}
		if !exists(tree.LayerPath(id)) {
			t.Errorf("layer %s not in layers dir", id)
		}
	}
	// non-layer files stay put
	if !exists(filepath.Join(tree.ImageDir(), "aaa", "json")) || !exists(filepath.Join(tree.ImageDir(), globals.ManifestFile)) {
		t.Fail()
	}
	if err := tree.Join(); err != nil {
		t.FailNow()
	}
	b, err := os.ReadFile(filepath.Join(tree.ImageDir(), "bbb", globals.LayerFile))
	if err != nil || string(b) != "layer-b" {
		t.Fail()
	}
	if exists(tree.LayerPath("bbb")) {
		t.Fail()
	}
}

func TestLayout(t *testing.T) {
	tree := New("/w")
	if tree.ImageDir() != "/w/image" || tree.LayersDir() != "/w/image-layers" {
		t.Fail()
	}
	if tree.LayerPath("abc") != "/w/image-layers/abc/layer.tar" {
		t.Fail()
	}
}

func TestCleanUpIdempotent(t *testing.T) {
	tree := New(filepath.Join(t.TempDir(), "work"))
	makeImageTree(t, tree)
	if tree.CleanUp() != nil || exists(tree.Root()) {
		t.Fail()
	}
	if tree.CleanUp() != nil {
		t.Fail()
	}
}

func TestMoveLayersMissingDir(t *testing.T) {
	if err := MoveLayers(filepath.Join(t.TempDir(), "nope"), t.TempDir()); err == nil {
		t.Fail()
	}
}
