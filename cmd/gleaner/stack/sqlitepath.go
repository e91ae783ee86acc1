package stack

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/gleaner/pkg/dotdir"
)

const (
	dbFile     = "gleaner.db"
	vectorFile = "vectors.db"
)

// ResolveSQLitePath picks the memory database path. An explicit override
// wins, then GLEANER_DB, then the first existing candidate. With nothing
// found the database is created in the resolved .gleaner directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("GLEANER_DB")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFile), nil
}

// ResolveVectorPath returns the sqlite-vec database path, next to the
// memory database unless overridden.
func ResolveVectorPath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, vectorFile), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		dbFile,
		filepath.Join(".gleaner", dbFile),
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "gleaner", dbFile))
	}

	return candidates
}
