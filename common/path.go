package common

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

// Fs is the filesystem datadir setup is performed against. Tests swap it
// for afero.NewMemMapFs() so datadir creation can be exercised without
// touching disk; the daemon itself always runs with the real OS filesystem.
var Fs afero.Fs = afero.NewOsFs()

// EnsureDataDir creates dir (and any missing parents) on Fs if it doesn't
// already exist.
func EnsureDataDir(dir string) error {
	return Fs.MkdirAll(dir, 0755)
}

// EnsurePathAbsoluteOrRelativeTo returns path unchanged if it is already
// absolute. Otherwise it is joined onto datadir, so that relative log and
// database file names are always resolved against the node's data directory
// rather than the process's current working directory.
func EnsurePathAbsoluteOrRelativeTo(datadir string, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(datadir, path)
}

// HomeDir returns the calling user's home directory, or "" if it can't be
// determined.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// DefaultDataDir returns the OS-appropriate directory a node should persist
// its routing table and logs to when the user hasn't chosen one explicitly.
func DefaultDataDir() string {
	home := HomeDir()
	if home == "" {
		return filepath.Join(".", ".dhtnode")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "DhtNode")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "DhtNode")
	default:
		return filepath.Join(home, ".dhtnode")
	}
}
