// Package security guards file paths built from recorded data.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned when a path escapes its output directory.
var ErrOutsideDirectory = errors.New("security: path escapes output directory")

// CheckWithin returns an error unless path resolves inside dir. Symlinks
// in the existing part of either path are resolved first, so a link inside
// dir pointing elsewhere is rejected.
func CheckWithin(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	canonDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}

	rel, err := filepath.Rel(canonDir, resolveExisting(absPath))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s not in %s", ErrOutsideDirectory, path, dir)
	}
	return nil
}

// resolveExisting resolves symlinks in the longest existing prefix of p
// and re-appends the remainder.
func resolveExisting(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, p)
			return filepath.Join(resolved, rest)
		}
		if filepath.Dir(dir) == dir {
			return p
		}
	}
}

// OutputPath returns dir/<name><ext> for a name taken from recorded data,
// e.g. a session ID, after sanitising it and checking the result stays in
// dir.
func OutputPath(dir, name, ext string) (string, error) {
	path := filepath.Join(dir, SanitizeFilename(name)+ext)
	if err := CheckWithin(path, dir); err != nil {
		return "", err
	}
	return path, nil
}

// SanitizeFilename keeps ASCII letters, digits, '.' and '-'. Runs of any
// other character become a single '_'. The result is capped at 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
