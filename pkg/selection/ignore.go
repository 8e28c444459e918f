// Package selection decides which Python files under a root are linted.
package selection

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnoreFile is the ignore list looked up in the lint root.
const DefaultIgnoreFile = ".linterignore"

const commentPrefix = "#"

// ErrBadPattern is returned for an ignore entry that is not a valid glob.
var ErrBadPattern = errors.New("bad ignore pattern")

// IgnoreList holds root-relative entries. Plain entries match the path and
// everything below it; entries with glob metacharacters match with doublestar
// semantics against the slash-separated relative path.
type IgnoreList struct {
	prefixes []string
	globs    []string
}

// Entries returns the plain and glob entries in file order, plain first.
func (l *IgnoreList) Entries() []string {
	if l == nil {
		return nil
	}

	out := make([]string, 0, len(l.prefixes)+len(l.globs))
	out = append(out, l.prefixes...)

	return append(out, l.globs...)
}

// ResolveIgnoreFile returns the ignore file path to read. Relative names are
// resolved against root.
func ResolveIgnoreFile(root, name string) string {
	if name == "" {
		name = DefaultIgnoreFile
	}

	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(root, name)
}

// LoadIgnoreList reads an ignore file. A missing file yields an empty list;
// any other read error is returned.
func LoadIgnoreList(root, file string) (*IgnoreList, error) {
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return &IgnoreList{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	list, err := ParseIgnoreList(root, f)
	if err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", file, err)
	}

	return list, nil
}

// ParseIgnoreList reads one entry per line. Blank lines and lines starting
// with # are skipped.
func ParseIgnoreList(root string, r io.Reader) (*IgnoreList, error) {
	list := &IgnoreList{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		err := list.add(root, line)
		if err != nil {
			return nil, err
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return list, nil
}

func (l *IgnoreList) add(root, entry string) error {
	if filepath.IsAbs(entry) {
		rel, err := filepath.Rel(root, entry)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}

		entry = rel
	}

	entry = filepath.ToSlash(entry)

	if strings.ContainsAny(entry, "*?[{") {
		entry = strings.TrimPrefix(entry, "./")
		if !doublestar.ValidatePattern(entry) {
			return fmt.Errorf("%w: %q", ErrBadPattern, entry)
		}

		l.globs = append(l.globs, strings.TrimSuffix(entry, "/"))

		return nil
	}

	l.prefixes = append(l.prefixes, path.Clean(entry))

	return nil
}

// Match reports whether the slash-separated root-relative path is ignored.
func (l *IgnoreList) Match(rel string) bool {
	if l == nil {
		return false
	}

	rel = path.Clean(filepath.ToSlash(rel))

	for _, prefix := range l.prefixes {
		if prefix == "." || rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
	}

	for _, glob := range l.globs {
		matched, err := doublestar.Match(glob, rel)
		if err == nil && matched {
			return true
		}
	}

	return false
}
