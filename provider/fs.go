package provider

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mxc/depm"
)

// FileSystem is where file-backed providers look for files.  Paths are
// slash-separated.
type FileSystem interface {
	// File returns the file at a path.  The file may not exist.
	File(fpath string) depm.VirtualFile

	// Walk calls fn for every regular file below root in lexical order.
	Walk(root string, fn func(fpath string)) error
}

// OSFileSystem is the local file system.
type OSFileSystem struct{}

func (OSFileSystem) File(fpath string) depm.VirtualFile {
	return depm.NewLocalFile(filepath.FromSlash(fpath))
}

func (OSFileSystem) Walk(root string, fn func(fpath string)) error {
	return filepath.WalkDir(filepath.FromSlash(root), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if d.Type().IsRegular() {
			fn(filepath.ToSlash(p))
		}

		return nil
	})
}

// -----------------------------------------------------------------------------

// MapFileSystem is an in-memory file system of text files.
type MapFileSystem struct {
	files map[string]*depm.TextFile
}

// NewMapFileSystem creates an empty in-memory file system.
func NewMapFileSystem() *MapFileSystem {
	return &MapFileSystem{files: make(map[string]*depm.TextFile)}
}

// Add creates or replaces a file.
func (mfs *MapFileSystem) Add(fpath, text string, modified time.Time) *depm.TextFile {
	fpath = path.Clean(fpath)
	if tf, ok := mfs.files[fpath]; ok {
		tf.SetText(text, modified)
		tf.SetMissing(false)
		return tf
	}

	tf := depm.NewTextFile(fpath, "", text, modified)
	mfs.files[fpath] = tf
	return tf
}

// Remove marks a file as deleted.  Sources holding the file observe it.
func (mfs *MapFileSystem) Remove(fpath string) {
	if tf, ok := mfs.files[path.Clean(fpath)]; ok {
		tf.SetMissing(true)
	}
}

// Lookup returns the text file at a path.
func (mfs *MapFileSystem) Lookup(fpath string) (*depm.TextFile, bool) {
	tf, ok := mfs.files[path.Clean(fpath)]
	return tf, ok
}

func (mfs *MapFileSystem) File(fpath string) depm.VirtualFile {
	fpath = path.Clean(fpath)
	if tf, ok := mfs.files[fpath]; ok {
		return tf
	}

	tf := depm.NewTextFile(fpath, "", "", time.Time{})
	tf.SetMissing(true)
	return tf
}

func (mfs *MapFileSystem) Walk(root string, fn func(fpath string)) error {
	root = path.Clean(root)
	var paths []string
	for p, tf := range mfs.files {
		if tf.Exists() && (root == "." || strings.HasPrefix(p, root+"/")) {
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)
	for _, p := range paths {
		fn(p)
	}

	return nil
}

// -----------------------------------------------------------------------------

// trimExt removes the extension from a file name.
func trimExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// relativeTo returns fpath relative to root if fpath lies below root.
func relativeTo(root, fpath string) (string, bool) {
	root = path.Clean(root)
	fpath = path.Clean(fpath)
	if root == "." {
		return fpath, !strings.HasPrefix(fpath, "../") && !path.IsAbs(fpath)
	}

	if !strings.HasPrefix(fpath, root+"/") {
		return "", false
	}

	return fpath[len(root)+1:], true
}

func cleanPaths(paths []string) []string {
	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = path.Clean(p)
	}

	return cleaned
}
