package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNoPathsTable is returned when the bootstrap module has no paths table
var ErrNoPathsTable = errors.New("bootstrap module has no paths table")

var (
	pathsTable = regexp.MustCompile(`("|')?paths("|')?: ?\{[^}]*\}`)
	pathsEntry = regexp.MustCompile(`(?:"|')?([\w.$-]+)(?:"|')?\s*:\s*(?:"|')([^"']*)(?:"|')`)
)

// PathEntry maps a logical module name to its location relative to /shared/
// without the .js suffix
type PathEntry struct {
	Name string
	Path string
}

// ParsePaths extracts the paths table of a bootstrap module, in source order
func ParsePaths(src string) ([]PathEntry, error) {
	table := pathsTable.FindString(src)
	if table == "" {
		return nil, ErrNoPathsTable
	}

	body := table[strings.Index(table, "{")+1 : len(table)-1]

	var entries []PathEntry
	for _, match := range pathsEntry.FindAllStringSubmatch(body, -1) {
		entries = append(entries, PathEntry{Name: match[1], Path: match[2]})
	}
	return entries, nil
}

// FormatPaths renders a paths table. Order follows entries.
func FormatPaths(entries []PathEntry) (string, error) {
	var b strings.Builder
	b.WriteString("paths:{")
	for i, entry := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(entry.Name)
		if err != nil {
			return "", err
		}
		path, err := json.Marshal(entry.Path)
		if err != nil {
			return "", err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(path)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// HashPaths points every entry of the table at its hashed file
func HashPaths(entries []PathEntry, manifest Manifest) []PathEntry {
	const prefix = "/shared/"

	hashed := make([]PathEntry, 0, len(entries))
	for _, entry := range entries {
		logical := prefix + entry.Path + ".js"
		if h, ok := manifest[logical]; ok {
			entry.Path = strings.TrimSuffix(strings.TrimPrefix(h, prefix), ".js")
		}
		hashed = append(hashed, entry)
	}
	return hashed
}

// UpdateBootstrapPaths rewrites the paths table of the hashed bootstrap
// module so every logical module name resolves to its hashed file
func (p *Pipeline) UpdateBootstrapPaths(ctx context.Context) error {
	manifest := p.manifest
	if manifest == nil {
		var err error
		manifest, err = LoadManifest(filepath.Join(p.optimizedDir(), ManifestFile))
		if err != nil {
			return err
		}
	}

	path := filepath.Join(p.optimizedDir(), filepath.FromSlash(manifest.Resolve(BootstrapPath)))
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read bootstrap module: %w", err)
	}

	entries, err := ParsePaths(string(data))
	if err != nil {
		return err
	}

	table, err := FormatPaths(HashPaths(entries, manifest))
	if err != nil {
		return err
	}

	loc := pathsTable.FindStringIndex(string(data))
	src := string(data[:loc[0]]) + table + string(data[loc[1]:])
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		return fmt.Errorf("failed to write bootstrap module: %w", err)
	}

	p.logger.WithField("entries", len(entries)).Info("Updated bootstrap paths")
	return nil
}
