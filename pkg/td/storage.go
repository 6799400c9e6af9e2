package td

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// Storage owns the destination directories of downloads. Paths returned by
// `Resolve` are relative to the storage root; `HostPath` turns them into
// paths an engine can write to.
type Storage interface {
	Resolve(infoHash InfoHash) string
	HostPath(path string) string
	EnsureExists(path string) error
	RemoveRecursively(path string) error
	List(path string) ([]FileInfo, error)
}

type FileInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Dir      bool   `json:"dir"`
	MIMEType string `json:"mimeType,omitempty"`
}

// BillyStorage keeps one directory per info hash at the root of a billy
// filesystem.
type BillyStorage struct {
	FS billy.Filesystem
}

var _ Storage = BillyStorage{}

func (s BillyStorage) Resolve(infoHash InfoHash) string {
	return infoHash.String()
}

func (s BillyStorage) HostPath(p string) string {
	return s.FS.Join(s.FS.Root(), p)
}

func (s BillyStorage) EnsureExists(p string) error {
	if err := s.FS.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("ensuring directory `%s` exists: %w", p, err)
	}
	return nil
}

func (s BillyStorage) RemoveRecursively(p string) error {
	info, err := s.FS.Lstat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing directory `%s`: %w", p, err)
	}
	if !info.IsDir() {
		return fmt.Errorf(
			"removing directory `%s`: %w",
			p,
			&NotADirectoryErr{Path: p},
		)
	}
	if err := util.RemoveAll(s.FS, p); err != nil {
		return fmt.Errorf("removing directory `%s`: %w", p, err)
	}
	return nil
}

func (s BillyStorage) List(p string) ([]FileInfo, error) {
	infos, err := s.FS.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("listing directory `%s`: %w", p, err)
	}

	files := make([]FileInfo, len(infos))
	for i, info := range infos {
		files[i] = FileInfo{
			Name: info.Name(),
			Path: s.FS.Join(p, info.Name()),
			Size: info.Size(),
			Dir:  info.IsDir(),
		}
		if !info.IsDir() {
			files[i].MIMEType = mime.TypeByExtension(path.Ext(info.Name()))
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

type NotADirectoryErr struct {
	Path string `json:"path"`
}

func (err *NotADirectoryErr) Error() string {
	return fmt.Sprintf("not a directory: %s", err.Path)
}
