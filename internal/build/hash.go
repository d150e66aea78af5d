package build

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// hashLength is the number of hex digits of the content hash in file names
const hashLength = 8

// Phase hashes a set of files and rewrites the references to them
type Phase struct {
	// Files are directories, relative to the optimized tree, whose files
	// are hashed
	Files []string
	// References are directories whose files with one of Exts get their
	// references rewritten
	References []string
	Exts       []string
}

// DefaultPhases hashes fonts before the stylesheets that reference them, and
// the vendor files before the application files
func DefaultPhases() []Phase {
	pages := []string{"apps", "shared", "tests"}
	return []Phase{
		{
			Files:      []string{"shared/vendor/fonts"},
			References: []string{"shared/vendor/css"},
			Exts:       []string{".css"},
		},
		{
			Files:      []string{"shared/vendor/css", "shared/vendor/js"},
			References: pages,
			Exts:       []string{".html"},
		},
		{
			Files:      []string{"shared/gh"},
			References: pages,
			Exts:       []string{".html"},
		},
	}
}

// Hash runs the default phases over target/optimized and writes hashes.json
func (p *Pipeline) Hash(ctx context.Context) error {
	manifest := Manifest{}

	for i, phase := range DefaultPhases() {
		if err := ctx.Err(); err != nil {
			return err
		}
		renamed, err := hashPhase(p.optimizedDir(), phase)
		if err != nil {
			return fmt.Errorf("phase %d: %w", i+1, err)
		}
		for logical, hashed := range renamed {
			manifest[logical] = hashed
		}
		p.logger.WithField("phase", i+1).WithField("files", len(renamed)).Info("Hashed assets")
	}

	if err := manifest.Save(filepath.Join(p.optimizedDir(), ManifestFile)); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	p.manifest = manifest
	return nil
}

// hashPhase renames the files of a phase and rewrites references to them.
// It returns the renames as logical path to hashed path.
func hashPhase(base string, phase Phase) (Manifest, error) {
	renamed := Manifest{}

	for _, dir := range phase.Files {
		files, err := listFiles(base, dir)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			hashed, err := hashFile(base, rel)
			if err != nil {
				return nil, err
			}
			renamed["/"+rel] = "/" + hashed
		}
	}

	if len(renamed) == 0 {
		return renamed, nil
	}

	replacer := newReferenceReplacer(renamed)
	for _, dir := range phase.References {
		files, err := listFiles(base, dir)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			if !hasExt(rel, phase.Exts) {
				continue
			}
			if err := replacer.rewrite(base, rel); err != nil {
				return nil, err
			}
		}
	}

	return renamed, nil
}

// hashFile renames base/rel to name.<hash>.ext and returns the new relative path
func hashFile(base, rel string) (string, error) {
	src := filepath.Join(base, filepath.FromSlash(rel))
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}

	hashed := HashedName(rel, data)
	if err := os.Rename(src, filepath.Join(base, filepath.FromSlash(hashed))); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", rel, err)
	}
	return hashed, nil
}

// HashedName inserts the content hash before the extension of name
func HashedName(name string, content []byte) string {
	sum := fmt.Sprintf("%016x", xxhash.Sum64(content))[:hashLength]
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + sum + ext
}

func hasExt(name string, exts []string) bool {
	ext := path.Ext(name)
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// referenceReplacer rewrites references to renamed files. A reference is
// the url token ending in the base name of a renamed file. It is resolved
// against the directory of the referencing file, then against the root, and
// only rewritten when that names a renamed file.
type referenceReplacer struct {
	pattern *regexp.Regexp
	renamed Manifest
}

func newReferenceReplacer(renamed Manifest) *referenceReplacer {
	seen := make(map[string]bool, len(renamed))
	names := make([]string, 0, len(renamed))
	for logical := range renamed {
		name := path.Base(logical)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	// Longest first so gh.css.map wins over gh.css
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	for i, name := range names {
		names[i] = regexp.QuoteMeta(name)
	}

	return &referenceReplacer{
		pattern: regexp.MustCompile(strings.Join(names, "|")),
		renamed: renamed,
	}
}

// rewrite replaces the references in base/rel
func (r *referenceReplacer) rewrite(base, rel string) error {
	file := filepath.Join(base, filepath.FromSlash(rel))
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	out := r.replace(string(data), path.Dir("/"+rel))
	if out == string(data) {
		return nil
	}
	return os.WriteFile(file, []byte(out), 0644)
}

// replace rewrites the references of src, a file in the logical directory dir
func (r *referenceReplacer) replace(src, dir string) string {
	var out strings.Builder
	last := 0
	for pos := 0; pos < len(src); {
		loc := r.pattern.FindStringIndex(src[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		pos = start + 1

		if start > 0 && src[start-1] != '/' && !isTokenDelimiter(src[start-1]) {
			continue
		}
		if end < len(src) && !isReferenceEnd(src[end]) {
			continue
		}

		token := start
		for token > last && !isTokenDelimiter(src[token-1]) {
			token--
		}
		hashed, ok := r.resolve(dir, src[token:end])
		if !ok {
			continue
		}

		out.WriteString(src[last:start])
		out.WriteString(hashed)
		last, pos = end, end
	}

	if last == 0 {
		return src
	}
	out.WriteString(src[last:])
	return out.String()
}

// resolve returns the hashed base name of the file ref names
func (r *referenceReplacer) resolve(dir, ref string) (string, bool) {
	if strings.HasPrefix(ref, "//") || strings.Contains(ref, "://") {
		return "", false
	}

	candidates := []string{path.Clean(ref)}
	if !strings.HasPrefix(ref, "/") {
		candidates = []string{path.Join(dir, ref), path.Clean("/" + ref)}
	}
	for _, logical := range candidates {
		if hashed, ok := r.renamed[logical]; ok {
			return path.Base(hashed), true
		}
	}
	return "", false
}

func isTokenDelimiter(c byte) bool {
	return strings.IndexByte("\"'(=> \t\r\n", c) >= 0
}

func isReferenceEnd(c byte) bool {
	return strings.IndexByte("?#\"') \t\r\n>", c) >= 0
}
