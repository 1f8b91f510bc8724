// Package resolver finds the migration files a template pattern applies to.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"

	"github.com/starford/schemasync/internal/apperr"
)

// DefaultExtension is appended to every pattern.
const DefaultExtension = ".php"

// Resolver matches glob patterns against files under a base directory.
type Resolver struct {
	base string
	ext  string
}

// New returns a Resolver rooted at baseDir. ext is appended to every
// pattern; an empty ext selects DefaultExtension.
func New(baseDir, ext string) (*Resolver, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolver: resolve base: %w", err)
	}
	if err := checkDir(abs); err != nil {
		return nil, err
	}
	if ext == "" {
		ext = DefaultExtension
	}
	return &Resolver{base: abs, ext: ext}, nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("resolver: %w: %s", apperr.ErrDirectoryNotFound, dir)
	}
	if err != nil {
		return fmt.Errorf("resolver: stat base: %w", err)
	}
	return nil
}

// Base returns the absolute base directory.
func (r *Resolver) Base() string {
	return r.base
}

// ValidPattern reports whether pattern is a well-formed glob.
func ValidPattern(pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("resolver: pattern %q: %w", pattern, err)
	}
	return nil
}

// Resolve yields the absolute path of every regular file under the base
// directory whose slash-separated relative path matches pattern plus the
// extension. '*' stays within one path segment and '.' is literal.
// Files are produced lazily in lexical walk order. A walk failure is
// yielded once and ends the sequence; a base directory that has gone
// missing since New yields ErrDirectoryNotFound.
func (r *Resolver) Resolve(pattern string) iter.Seq2[string, error] {
	full := pattern + r.ext
	return func(yield func(string, error) bool) {
		if err := ValidPattern(full); err != nil {
			yield("", err)
			return
		}
		if err := checkDir(r.base); err != nil {
			yield("", err)
			return
		}
		stop := errors.New("stop")
		err := filepath.WalkDir(r.base, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if p == r.base && errors.Is(walkErr, fs.ErrNotExist) {
					return fmt.Errorf("resolver: %w: %s", apperr.ErrDirectoryNotFound, r.base)
				}
				return walkErr
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(r.base, p)
			if err != nil {
				return err
			}
			// ValidPattern already rejected malformed patterns.
			if ok, _ := path.Match(full, filepath.ToSlash(rel)); !ok {
				return nil
			}
			if !yield(p, nil) {
				return stop
			}
			return nil
		})
		switch {
		case err == nil, errors.Is(err, stop):
		case errors.Is(err, apperr.ErrDirectoryNotFound):
			yield("", err)
		default:
			yield("", fmt.Errorf("resolver: %w: walk %s: %w", apperr.ErrIO, r.base, err))
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[string, error]) ([]string, error) {
	var out []string
	for p, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}
