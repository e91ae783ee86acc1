// Package dotdir manages the .gleaner/ and ~/.gleaner directories.
//
// Besides config.toml, the directory holds the watch state: how far each
// tailed transcript has been ingested, so "gleaner watch" resumes where it
// left off.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".gleaner"

// Manager resolves where config and watch state live.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target resolves the .gleaner directory and makes sure it exists. An
// override (the --config-dir flag) wins, then ./.gleaner when the working
// directory has one, then ~/.gleaner. The result is absolute.
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating gleaner directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists reports whether the working directory holds a project-local
// config.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
