// Package filestore persists generated report files on local disk.
// Files are stored flat under a root directory with collision-proof
// names; callers hold the returned relative path and use it to open
// the file later.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vulndesk/vulndesk/pkg/bufpool"
	"github.com/vulndesk/vulndesk/pkg/defaults"
)

// ErrInvalidPath is returned when a stored path would escape the root
// directory.
var ErrInvalidPath = errors.New("filestore: invalid path")

// Store is a directory-backed file store.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a store over it.
func New(root string) (*Store, error) {
	if root == "" {
		root = defaults.ReportsDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, defaults.DirPerm); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Save streams r into a new file and returns the path relative to the
// store root. The final name keeps the requested stem and extension but
// gains a random suffix, so concurrent saves of the same name never
// collide.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	final := uniqueName(name)

	f, err := os.OpenFile(filepath.Join(s.root, final), os.O_WRONLY|os.O_CREATE|os.O_EXCL, defaults.FilePerm)
	if err != nil {
		return "", fmt.Errorf("filestore: create %s: %w", final, err)
	}

	buf := bufpool.GetSlice(defaults.BufferLarge)
	_, cerr := io.CopyBuffer(f, r, buf)
	bufpool.PutSlice(buf)

	if cerr != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("filestore: write %s: %w", final, cerr)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("filestore: close %s: %w", final, err)
	}
	return final, nil
}

// Open returns the stored file for reading. Callers own the handle.
func (s *Store) Open(rel string) (*os.File, error) {
	abs, err := s.Path(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", rel, err)
	}
	return f, nil
}

// Path resolves a stored relative path to an absolute one, rejecting
// anything that would escape the root.
func (s *Store) Path(rel string) (string, error) {
	if rel == "" {
		return "", ErrInvalidPath
	}
	abs := filepath.Join(s.root, rel)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	return abs, nil
}

// Remove deletes a stored file.
func (s *Store) Remove(rel string) error {
	abs, err := s.Path(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("filestore: remove %s: %w", rel, err)
	}
	return nil
}

// uniqueName flattens the requested name to a bare filename and inserts
// a random suffix before the extension.
func uniqueName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "report"
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem = "report"
	}
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s-%s%s", stem, suffix, ext)
}
