// Package dotdir manages the .storyline/ and ~/.storyline directories, which
// hold config.toml, an optional .env file and the default SQLite database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the storyline directory.
	dirName = ".storyline"

	// databaseFile is the default SQLite database inside the directory.
	databaseFile = "storyline.db"

	// vectorFile holds contribution embeddings for search.
	vectorFile = "vectors.db"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to an existing .storyline/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.storyline/ dir
//  3. Home ~/.storyline/ dir
//
// When none of these exist an empty path is returned.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating storyline directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if m.localDirExists() {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		return filepath.Join(cwd, dirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	dir := filepath.Join(home, dirName)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	return "", nil
}

// Ensure behaves like Target but creates ~/.storyline/ when nothing exists.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating storyline directory %s: %w", dir, err)
	}
	return dir, nil
}

// DatabasePath returns the default SQLite database path inside the resolved
// directory, creating ~/.storyline/ if needed.
func (m *Manager) DatabasePath(overrideDir string) (string, error) {
	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, databaseFile), nil
}

// VectorPath returns the default sqlite-vec database path inside the
// resolved directory.
func (m *Manager) VectorPath(overrideDir string) (string, error) {
	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, vectorFile), nil
}

// localDirExists checks whether a .storyline/ directory exists in the
// current working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
