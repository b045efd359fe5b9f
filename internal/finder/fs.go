package finder

import (
	"io/fs"
	"os"
)

// FileSystem is the subset of filesystem operations the walker and coordinator need.
type FileSystem interface {
	// ReadDir lists a directory. It may return entries together with an error
	// when the listing was only partially read.
	ReadDir(name string) ([]fs.DirEntry, error)
	// Stat returns metadata for a path, following symlinks.
	Stat(name string) (fs.FileInfo, error)
}

// OSFS implements FileSystem with the os package.
type OSFS struct{}

// ReadDir lists a directory.
func (OSFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

// Stat returns file information.
func (OSFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}
