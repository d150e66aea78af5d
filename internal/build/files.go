package build

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// optimizeExclusion matches path elements left out of the optimized tree
var optimizeExclusion = regexp.MustCompile(`^(\.|apache|etc|node_modules|tools)`)

// Clean removes the target directory
func (p *Pipeline) Clean(ctx context.Context) error {
	if err := os.RemoveAll(p.opts.Target); err != nil {
		return fmt.Errorf("failed to remove %s: %w", p.opts.Target, err)
	}
	return nil
}

// Copy copies the source tree verbatim to target/original. The target
// directory, dot directories and node_modules are left out.
func (p *Pipeline) Copy(ctx context.Context) error {
	return p.copyTree(ctx, p.originalDir(), func(rel string, d fs.DirEntry) bool {
		name := d.Name()
		return d.IsDir() && (strings.HasPrefix(name, ".") || name == "node_modules")
	})
}

// copyTree copies the source tree to dst, skipping the target directory and
// every entry for which skip returns true
func (p *Pipeline) copyTree(ctx context.Context, dst string, skip func(rel string, d fs.DirEntry) bool) error {
	target, err := filepath.Abs(p.opts.Target)
	if err != nil {
		return err
	}

	return filepath.WalkDir(p.opts.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(p.opts.Source, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if abs == target || skip(rel, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, out)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// listFiles returns the regular files below dir, as paths relative to base
// using forward slashes. A missing dir yields no files.
func listFiles(base, dir string) ([]string, error) {
	var files []string
	root := filepath.Join(base, dir)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
