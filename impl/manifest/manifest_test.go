package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aceeric/layercache/impl/globals"
)

// two images sharing the base layer 'aaa'. The second has no tags.
var testManifest = `[{"Config":"c1.json","RepoTags":["foo:v1"],"Layers":["aaa/layer.tar","bbb/layer.tar"]},
{"Config":"c2.json","RepoTags":null,"Layers":["aaa/layer.tar","ccc/layer.tar","bbb/layer.tar"]}]`

func writeManifest(t *testing.T, content string) string {
	td := t.TempDir()
	if err := os.WriteFile(filepath.Join(td, globals.ManifestFile), []byte(content), 0644); err != nil {
		t.FailNow()
	}
	return td
}

func TestLayerIDs(t *testing.T) {
	td := writeManifest(t, testManifest)
	ids, err := LayerIDs(td)
	if err != nil {
		t.FailNow()
	}
	if !reflect.DeepEqual(ids, []string{"aaa", "bbb", "ccc"}) {
		t.Fatalf("unexpected layer ids: %v", ids)
	}
}

func TestLoadNullRepoTags(t *testing.T) {
	td := writeManifest(t, testManifest)
	entries, err := Load(td)
	if err != nil || len(entries) != 2 {
		t.FailNow()
	}
	if entries[1].RepoTags == nil || len(entries[1].RepoTags) != 0 {
		t.Fail()
	}
	if entries[0].Config != "c1.json" || entries[0].RepoTags[0] != "foo:v1" {
		t.Fail()
	}
}

// the hash is over the raw bytes so whitespace differences change it
func TestRootHash(t *testing.T) {
	td := writeManifest(t, testManifest)
	h, err := RootHash(td)
	if err != nil {
		t.FailNow()
	}
	sum := sha256.Sum256([]byte(testManifest))
	if h != hex.EncodeToString(sum[:]) {
		t.Fail()
	}
	td2 := writeManifest(t, testManifest+"\n")
	h2, _ := RootHash(td2)
	if h == h2 {
		t.Fail()
	}
}

func TestMissingManifest(t *testing.T) {
	if _, err := RootHash(t.TempDir()); err == nil {
		t.Fail()
	}
	if _, err := LayerIDs(writeManifest(t, "not json")); err == nil {
		t.Fail()
	}
}
