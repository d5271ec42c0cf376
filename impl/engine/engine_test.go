package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
)

// fakeRunner answers engine commands from canned data. 'save' writes a tar of the
// 'files' map to stdout, 'load' records the names of the entries read from stdin.
type fakeRunner struct {
	files   map[string]string
	history map[string]string
	images  string
	loaded  []string
	cmds    []Cmd
	fail    bool
}

func (f *fakeRunner) Exec(ctx context.Context, cmd Cmd) (Result, error) {
	f.cmds = append(f.cmds, cmd)
	if f.fail {
		return Result{ExitCode: 1, Stderr: "nope"}, &ExecError{Command: cmd.String(), ExitCode: 1, Stderr: "nope"}
	}
	switch cmd.Args[0] {
	case "save":
		tw := tar.NewWriter(cmd.Stdout)
		names := []string{}
		for name := range f.files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			tw.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(f.files[name])), Typeflag: tar.TypeReg})
			tw.Write([]byte(f.files[name]))
		}
		return Result{}, tw.Close()
	case "load":
		tr := tar.NewReader(cmd.Stdin)
		for {
			h, err := tr.Next()
			if errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				return Result{}, err
			}
			f.loaded = append(f.loaded, h.Name)
		}
		return Result{Stdout: "Loaded image: foo:v1\n"}, nil
	case "history":
		return Result{Stdout: f.history[cmd.Args[2]]}, nil
	case "image":
		return Result{Stdout: f.images}, nil
	}
	return Result{}, errors.New("unexpected command")
}

func TestSave(t *testing.T) {
	runner := &fakeRunner{files: map[string]string{"manifest.json": "[]", "aaa/layer.tar": "layer"}}
	e := New(runner, "")
	td := t.TempDir()
	if err := e.Save(context.Background(), td, []string{"foo:v1", "abc"}); err != nil {
		t.FailNow()
	}
	b, err := os.ReadFile(filepath.Join(td, "aaa", "layer.tar"))
	if err != nil || string(b) != "layer" {
		t.Fail()
	}
	if runner.cmds[0].Name != "docker" || !reflect.DeepEqual(runner.cmds[0].Args, []string{"save", "foo:v1", "abc"}) {
		t.Fail()
	}
	if e.Save(context.Background(), td, nil) == nil {
		t.Fail()
	}
}

func TestLoad(t *testing.T) {
	runner := &fakeRunner{}
	e := New(runner, "podman")
	td := t.TempDir()
	os.WriteFile(filepath.Join(td, "manifest.json"), []byte("[]"), 0644)
	os.MkdirAll(filepath.Join(td, "aaa"), 0755)
	os.WriteFile(filepath.Join(td, "aaa", "layer.tar"), []byte("x"), 0644)
	if err := e.Load(context.Background(), td); err != nil {
		t.FailNow()
	}
	sort.Strings(runner.loaded)
	if !reflect.DeepEqual(runner.loaded, []string{"aaa/", "aaa/layer.tar", "manifest.json"}) {
		t.Fatalf("unexpected entries: %v", runner.loaded)
	}
	if runner.cmds[0].Name != "podman" {
		t.Fail()
	}
}

func TestExportRefs(t *testing.T) {
	runner := &fakeRunner{history: map[string]string{
		"foo:v1": "111\n<missing>\n222\n",
		"bar:v2": "333\n222\n\n",
	}}
	refs, err := New(runner, "").ExportRefs(context.Background(), []string{"foo:v1", "bar:v2", "111"})
	if err != nil {
		t.FailNow()
	}
	if !reflect.DeepEqual(refs, []string{"foo:v1", "111", "222", "bar:v2", "333"}) {
		t.Fatalf("unexpected refs: %v", refs)
	}
}

func TestListImages(t *testing.T) {
	runner := &fakeRunner{images: "d1165f221234 hello-world:latest\nfeb5d9fea6a5 hello-world:linux\n"}
	images, err := New(runner, "").ListImages(context.Background(), "reference=hello-world*")
	if err != nil {
		t.FailNow()
	}
	if !reflect.DeepEqual(images, []string{"d1165f221234", "hello-world:latest", "feb5d9fea6a5", "hello-world:linux"}) {
		t.Fail()
	}
	args := strings.Join(runner.cmds[0].Args, " ")
	if !strings.HasSuffix(args, "--filter=dangling=false --filter=reference=hello-world*") {
		t.Fail()
	}
}

func TestCommandFailure(t *testing.T) {
	e := New(&fakeRunner{fail: true}, "")
	_, err := e.History(context.Background(), "foo")
	var execErr *ExecError
	if !errors.As(err, &execErr) || execErr.ExitCode != 1 {
		t.Fail()
	}
	if e.Save(context.Background(), t.TempDir(), []string{"foo"}) == nil {
		t.Fail()
	}
}

func TestExecRunner(t *testing.T) {
	var out bytes.Buffer
	result, err := ExecRunner{}.Exec(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo hi"}, Stdout: &out})
	if err != nil || result.ExitCode != 0 || strings.TrimSpace(out.String()) != "hi" {
		t.Fail()
	}
	result, err = ExecRunner{}.Exec(context.Background(), Cmd{Name: "sh", Args: []string{"-c", "echo bad >&2; exit 3"}})
	var execErr *ExecError
	if !errors.As(err, &execErr) || result.ExitCode != 3 || execErr.Stderr != "bad\n" {
		t.Fail()
	}
}

// brokenPipeRunner writes an archive the extractor refuses, then fails the way an
// engine killed by a closed pipe does
type brokenPipeRunner struct{}

func (brokenPipeRunner) Exec(ctx context.Context, cmd Cmd) (Result, error) {
	tw := tar.NewWriter(cmd.Stdout)
	tw.WriteHeader(&tar.Header{Name: "../evil", Mode: 0644, Size: 1, Typeflag: tar.TypeReg})
	tw.Write([]byte("x"))
	tw.Close()
	return Result{ExitCode: 141}, &ExecError{Command: cmd.String(), ExitCode: 141}
}

// the extraction error is not hidden by the engine error it causes
func TestSaveReportsExtractError(t *testing.T) {
	err := New(brokenPipeRunner{}, "").Save(context.Background(), t.TempDir(), []string{"foo:v1"})
	if err == nil || !strings.Contains(err.Error(), "unable to extract saved images") ||
		!strings.Contains(err.Error(), "outside of") {
		t.Fatalf("unexpected error: %v", err)
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fail()
	}
}
