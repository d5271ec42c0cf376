// Package engine drives the local container engine through its command line: export
// images to an unpacked archive, import an unpacked archive, list images, and list the
// ancestor image IDs of an image.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aceeric/layercache/impl/archive"

	log "github.com/sirupsen/logrus"
)

// DefaultBinary is the engine command line used if none is configured
const DefaultBinary = "docker"

// Engine runs image engine commands through a Runner
type Engine struct {
	runner Runner
	binary string
}

// New creates an Engine. An empty 'binary' means DefaultBinary.
func New(runner Runner, binary string) *Engine {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Engine{runner: runner, binary: binary}
}

// Save exports 'refs' with the engine's save command and extracts the archive into
// 'dir'. The archive is streamed, it is never written to disk as a tar file.
func (e *Engine) Save(ctx context.Context, dir string, refs []string) error {
	if len(refs) == 0 {
		return fmt.Errorf("no images to save")
	}
	log.Debugf("saving images %v to %s", refs, dir)
	pr, pw := io.Pipe()
	untarErr := make(chan error, 1)
	go func() {
		err := archive.Untar(pr, dir)
		if err == nil {
			// consume any padding after the end-of-archive marker
			_, err = io.Copy(io.Discard, pr)
		}
		pr.CloseWithError(err)
		untarErr <- err
	}()
	_, err := e.runner.Exec(ctx, Cmd{
		Dir:    dir,
		Name:   e.binary,
		Args:   append([]string{"save"}, refs...),
		Stdout: pw,
	})
	pw.CloseWithError(err)
	// when the save failed first, the extractor just sees that same error
	if uerr := <-untarErr; uerr != nil && (err == nil || !errors.Is(uerr, err)) {
		return fmt.Errorf("unable to extract saved images: %w", errors.Join(uerr, err))
	}
	return err
}

// Load imports the unpacked archive in 'dir' with the engine's load command
func (e *Engine) Load(ctx context.Context, dir string) error {
	log.Debugf("loading images from %s", dir)
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(archive.Tar(dir, pw))
	}()
	result, err := e.runner.Exec(ctx, Cmd{
		Dir:   dir,
		Name:  e.binary,
		Args:  []string{"load"},
		Stdin: pr,
	})
	pr.Close()
	if err != nil {
		return err
	}
	log.Info(strings.TrimSpace(result.Stdout))
	return nil
}

// History returns the IDs of the image layers that 'ref' is built from. Layers that
// the engine reports as missing (pulled rather than built locally) are left out.
func (e *Engine) History(ctx context.Context, ref string) ([]string, error) {
	result, err := e.runner.Exec(ctx, Cmd{
		Name: e.binary,
		Args: []string{"history", "-q", ref},
	})
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, line := range strings.Split(result.Stdout, "\n") {
		id := strings.TrimSpace(line)
		if id == "" || id == "<missing>" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ExportRefs returns every ref followed by the IDs from its history, without
// duplicates. Exporting the history IDs keeps the intermediate untagged images of
// multi-stage builds.
func (e *Engine) ExportRefs(ctx context.Context, refs []string) ([]string, error) {
	seen := map[string]bool{}
	all := []string{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			all = append(all, id)
		}
	}
	for _, ref := range refs {
		add(ref)
		ids, err := e.History(ctx, ref)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			add(id)
		}
	}
	return all, nil
}

// ListImages returns the IDs and repo:tag names of the non-dangling images the engine
// holds, optionally narrowed by the engine's --filter syntax (e.g. reference=foo*).
func (e *Engine) ListImages(ctx context.Context, filter string) ([]string, error) {
	args := []string{"image", "ls", "--format={{.ID}} {{.Repository}}:{{.Tag}}", "--filter=dangling=false"}
	if filter != "" {
		args = append(args, "--filter="+filter)
	}
	result, err := e.runner.Exec(ctx, Cmd{Name: e.binary, Args: args})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	images := []string{}
	for _, line := range strings.Split(result.Stdout, "\n") {
		for _, field := range strings.Fields(line) {
			if !seen[field] {
				seen[field] = true
				images = append(images, field)
			}
		}
	}
	return images, nil
}
