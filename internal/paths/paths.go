// Package paths locates sastriage's workspace files and resolves
// project-relative paths.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the per-project workspace directory.
const DirName = ".sastriage"

// WorkspaceDir returns <root>/.sastriage.
func WorkspaceDir(root string) string {
	return filepath.Join(root, DirName)
}

// EnsureWorkspaceDir creates <root>/.sastriage if needed and returns it.
func EnsureWorkspaceDir(root string) (string, error) {
	dir := WorkspaceDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// ConfigPath returns the project config file path.
func ConfigPath(root string) string {
	return filepath.Join(WorkspaceDir(root), "config.json")
}

// HistoryDBPath returns the default run history database path.
func HistoryDBPath(root string) string {
	return filepath.Join(WorkspaceDir(root), "history.db")
}

// LogFilePath returns the default path of sastriage's own log file.
func LogFilePath(root string) string {
	return filepath.Join(WorkspaceDir(root), "logs", "sastriage.log")
}

// Resolve joins a relative path onto root; absolute paths are returned cleaned.
func Resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

// Relative converts path to a root-relative path with forward slashes.
// Symlinks are resolved when the targets exist.
func Relative(path, root string) (string, error) {
	resolved := evalIfExists(path)
	rootResolved := evalIfExists(root)

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithin reports whether path lies inside root.
func IsWithin(path, root string) bool {
	rel, err := Relative(path, root)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// JoinSlash joins a forward-slash relative path onto root using the OS separator.
func JoinSlash(root, slashPath string) string {
	parts := strings.Split(strings.ReplaceAll(slashPath, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

func evalIfExists(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}
