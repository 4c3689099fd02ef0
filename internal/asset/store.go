package asset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	renditionsDirName = "renditions"
	sourceBaseName    = "source"

	// RenditionExt is the container extension of every rendition file.
	RenditionExt = ".mp4"

	// TempSuffix marks files that are still being written.
	TempSuffix = ".tmp"
)

var (
	// ErrNotFound is returned when an asset or rendition does not exist on disk.
	ErrNotFound = errors.New("asset not found")

	// ErrInvalidID is returned for identifiers or labels that cannot name a
	// path component inside the store root.
	ErrInvalidID = errors.New("invalid asset identifier")
)

// Asset is one uploaded source video and the location of its renditions.
type Asset struct {
	ID           ID
	OriginalName string
	SourcePath   string
	RenditionDir string
}

// Store maps asset identifiers to paths under a single root directory:
//
//	<root>/<id>/source<ext>
//	<root>/<id>/renditions/<label>.mp4
//
// The store owns every path below root. Files are only ever created through
// temp-then-rename, so readers never need locks.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute store root.
func (s *Store) Root() string {
	return s.root
}

// Ingest copies r into a new asset's source file and returns the asset.
// The source is written to a temporary file first and renamed into place,
// so a failed copy leaves no source behind.
func (s *Store) Ingest(r io.Reader, originalName string) (*Asset, error) {
	id := NewID(originalName)
	dir := s.assetDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext != "" && !validComponent(ext[1:]) {
		ext = ""
	}
	dst := filepath.Join(dir, sourceBaseName+ext)

	if err := writeAtomic(dst, r); err != nil {
		_ = os.Remove(dir)
		return nil, fmt.Errorf("write source: %w", err)
	}

	return &Asset{
		ID:           id,
		OriginalName: originalName,
		SourcePath:   dst,
		RenditionDir: filepath.Join(dir, renditionsDirName),
	}, nil
}

// EnsureRenditionDir creates the rendition directory of id if absent and
// returns its path.
func (s *Store) EnsureRenditionDir(id ID) (string, error) {
	if !id.Valid() {
		return "", ErrInvalidID
	}
	dir := filepath.Join(s.assetDir(id), renditionsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create rendition dir: %w", err)
	}
	return dir, nil
}

// RenditionPath returns the final path of the label rendition of id.
// The file may not exist.
func (s *Store) RenditionPath(id ID, label string) (string, error) {
	if !id.Valid() || !validComponent(label) {
		return "", ErrInvalidID
	}
	return filepath.Join(s.assetDir(id), renditionsDirName, label+RenditionExt), nil
}

// OpenRendition opens a completed rendition for reading. The caller owns the
// returned file. Missing files, directories and invalid names all report
// ErrNotFound.
func (s *Store) OpenRendition(id ID, label string) (*os.File, os.FileInfo, error) {
	path, err := s.RenditionPath(id, label)
	if err != nil {
		return nil, nil, ErrNotFound
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open rendition: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat rendition: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

// Exists reports whether the asset directory of id exists.
func (s *Store) Exists(id ID) bool {
	if !id.Valid() {
		return false
	}
	info, err := os.Stat(s.assetDir(id))
	return err == nil && info.IsDir()
}

// SweepTemp removes temporary files older than olderThan anywhere below the
// root. They are leftovers of uploads or engine runs interrupted by a crash.
// It returns the number of files removed.
func (s *Store) SweepTemp(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), TempSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

func (s *Store) assetDir(id ID) string {
	return filepath.Join(s.root, string(id))
}

// writeAtomic streams r into a temp file next to dst and renames it over dst.
func writeAtomic(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*"+TempSuffix)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
