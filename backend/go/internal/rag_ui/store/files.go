package store

import (
	"RagDesk/backend/go/internal/models"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/djherbis/times"
	"github.com/gobwas/glob"
)

// ListPattern selects the documents shown in the upload directory listing.
const ListPattern = "*.{pdf,doc,docx,txt,md}"

// AllowedUploadExts are the extensions the upload endpoint accepts, in display order.
var AllowedUploadExts = []string{".pdf", ".doc", ".docx", ".txt", ".md", ".jpg", ".jpeg", ".png"}

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
)

// FileStore is the upload directory on local disk.
type FileStore struct {
	dir     string
	listing glob.Glob
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, listing: glob.MustCompile(ListPattern)}, nil
}

// Dir returns the upload directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// AllowedUpload reports whether name has an accepted extension.
func AllowedUpload(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedUploadExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// List returns the matching files of the upload directory sorted by name.
func (s *FileStore) List() ([]models.FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && s.listing.Match(strings.ToLower(e.Name())) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]models.FileInfo, 0, len(names))
	for _, name := range names {
		info, err := stat(filepath.Join(s.dir, name))
		if err != nil {
			// Removed between ReadDir and Stat.
			continue
		}
		files = append(files, info)
	}
	return files, nil
}

func stat(path string) (models.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.FileInfo{}, err
	}
	fi := models.FileInfo{
		Name:       info.Name(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
	// Birth time is not available on every filesystem.
	if ts, err := times.Stat(path); err == nil && ts.HasBirthTime() {
		fi.CreatedAt = ts.BirthTime()
	}
	return fi, nil
}

// Save writes r to the upload directory under the base name of name and returns the stored
// name and size. An existing file is replaced.
func (s *FileStore) Save(name string, r io.Reader) (string, int64, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "", 0, ErrInvalidName
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write %s: %w", base, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, base)); err != nil {
		return "", 0, fmt.Errorf("store %s: %w", base, err)
	}
	return base, n, nil
}

// Path returns the absolute path of an uploaded file, or ErrFileNotFound.
func (s *FileStore) Path(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base != name {
		return "", ErrInvalidName
	}
	p := filepath.Join(s.dir, base)
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrFileNotFound
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p, nil
	}
	return abs, nil
}
