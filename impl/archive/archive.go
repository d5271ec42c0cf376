// Package archive streams directory trees to and from uncompressed tar. It is what the
// image engine's save and load commands produce and consume, and what the directory
// cache store wraps in compression.
package archive

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Untar extracts the tar stream 'r' into 'dir'. Directories, regular files, and
// symlinks are extracted, other entry types are skipped. An entry whose name would
// land outside 'dir' is an error.
func Untar(r io.Reader, dir string) error {
	return UntarFunc(r, func(name string) (string, error) {
		return Within(dir, name)
	})
}

// UntarFunc extracts the tar stream 'r' into the locations returned by 'target' for
// each entry name. If 'target' returns an error extraction stops with that error.
func UntarFunc(r io.Reader, target func(name string) (string, error)) error {
	tarReader := tar.NewReader(bufio.NewReader(r))
	for {
		header, err := tarReader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if header == nil {
			continue
		}
		filePath, err := target(header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(filePath, tarReader, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
				return err
			}
			os.Remove(filePath)
			if err := os.Symlink(header.Linkname, filePath); err != nil {
				return err
			}
		default:
			log.Debugf("skipping tar entry %s of type %c", header.Name, header.Typeflag)
		}
	}
	return nil
}

// Within joins 'name' to 'dir' and returns an error if the result is not inside 'dir',
// either by name or because a directory on the way there is a symlink
func Within(dir string, name string) (string, error) {
	p := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("tar entry %q is outside of %s", name, dir)
	}
	parent := dir
	parts := strings.Split(rel, string(filepath.Separator))
	for _, part := range parts[:len(parts)-1] {
		parent = filepath.Join(parent, part)
		fi, err := os.Lstat(parent)
		if err != nil {
			// nothing below a missing dir exists yet
			break
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			return "", fmt.Errorf("tar entry %q is under the symlink %s", name, parent)
		}
	}
	return p, nil
}

func writeFile(filePath string, r io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	// replace a symlink rather than write through it
	if fi, err := os.Lstat(filePath); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(filePath); err != nil {
			return err
		}
	}
	if perm == 0 {
		perm = 0644
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return f.Close()
}

// Tar writes the contents of 'dir' to 'w' as a tar stream with entry names relative
// to 'dir'. The directory itself is not an entry.
func Tar(dir string, w io.Writer) error {
	tw := tar.NewWriter(w)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}
		return AddEntry(tw, path, filepath.ToSlash(rel))
	})
	if err != nil {
		return err
	}
	return tw.Close()
}

// AddEntry writes the file, directory, or symlink at 'path' to 'tw' under 'name'
func AddEntry(tw *tar.Writer, path string, name string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return err
	}
	link := ""
	if fi.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}
	header, err := tar.FileInfoHeader(fi, link)
	if err != nil {
		return err
	}
	header.Name = name
	if fi.IsDir() {
		header.Name += "/"
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
