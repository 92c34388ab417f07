package loader

import (
	"fmt"
	"io/fs"
	"path"
)

// ComponentSource supplies component document bytes by reference key. The
// loader itself never touches the file system; callers choose where
// component definitions live.
type ComponentSource interface {
	Load(ref string) ([]byte, error)
}

// FSSource serves component documents from a file system rooted at the
// component search path.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource creates a component source over the given file system root.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

func (s *FSSource) Load(ref string) ([]byte, error) {
	name := path.Clean(ref)
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid component reference %q", ref)
	}

	return fs.ReadFile(s.fsys, name)
}

// MapSource serves component documents from memory, keyed by reference.
type MapSource map[string][]byte

func (s MapSource) Load(ref string) ([]byte, error) {
	data, exists := s[ref]
	if !exists {
		return nil, fmt.Errorf("component %q not found", ref)
	}

	return data, nil
}
