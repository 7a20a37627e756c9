package depm

import (
	"path"
	"path/filepath"
)

// PathResolver resolves paths referenced from source content, such as
// included script files, against the referencing file's directory and a list
// of root directories.  Files registered explicitly take precedence over the
// file system.
type PathResolver struct {
	roots []string
	files map[string]VirtualFile
}

// NewPathResolver creates a new path resolver over the given roots.
func NewPathResolver(roots ...string) *PathResolver {
	return &PathResolver{roots: roots, files: make(map[string]VirtualFile)}
}

// Register makes a virtual file resolvable under its name.
func (pr *PathResolver) Register(f VirtualFile) {
	pr.files[path.Clean(filepath.ToSlash(f.Name()))] = f
}

// Resolve returns the file rel refers to when referenced from a file in dir,
// or nil if it cannot be found.
func (pr *PathResolver) Resolve(dir, rel string) VirtualFile {
	rel = filepath.ToSlash(rel)

	var candidates []string
	if path.IsAbs(rel) {
		candidates = append(candidates, rel)
	} else {
		candidates = append(candidates, path.Join(filepath.ToSlash(dir), rel))
		for _, root := range pr.roots {
			candidates = append(candidates, path.Join(filepath.ToSlash(root), rel))
		}
	}

	for _, cand := range candidates {
		cand = path.Clean(cand)
		if f, ok := pr.files[cand]; ok && f.Exists() {
			return f
		}

		lf := NewLocalFile(filepath.FromSlash(cand))
		if lf.Exists() {
			return lf
		}
	}

	return nil
}
