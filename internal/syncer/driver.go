// Package syncer applies every registered template to every migration file
// its pattern matches.
package syncer

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"

	"github.com/starford/schemasync/internal/apperr"
	"github.com/starford/schemasync/internal/checksum"
	"github.com/starford/schemasync/internal/models"
	"github.com/starford/schemasync/internal/registry"
	"github.com/starford/schemasync/internal/rewriter"
	"github.com/starford/schemasync/internal/storage"
)

// Resolver yields the files a pattern matches.
type Resolver interface {
	Resolve(pattern string) iter.Seq2[string, error]
}

// ReportFunc is called once per outcome, in processing order.
type ReportFunc func(root string, o models.Outcome)

// Option configures a Driver.
type Option func(*Driver)

// WithDryRun computes outcomes without writing any file.
func WithDryRun(dryRun bool) Option {
	return func(d *Driver) { d.dryRun = dryRun }
}

// WithFailOnUnmatched records a pattern that matches no file as a failure.
func WithFailOnUnmatched(fail bool) Option {
	return func(d *Driver) { d.failOnUnmatched = fail }
}

// WithReporter registers a callback invoked for each outcome.
func WithReporter(fn ReportFunc) Option {
	return func(d *Driver) { d.report = fn }
}

// Driver runs the read → rewrite → write cycle sequentially.
type Driver struct {
	store    storage.Provider
	resolver Resolver
	rw       *rewriter.Rewriter
	logger   *slog.Logger

	dryRun          bool
	failOnUnmatched bool
	report          ReportFunc
}

// New creates a Driver.
func New(store storage.Provider, res Resolver, rw *rewriter.Rewriter, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{store: store, resolver: res, rw: rw, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Synchronize applies reg to the migration directory. File-level failures
// are collected in the report and never stop the run; the returned error is
// reserved for failures that leave nothing to do.
func (d *Driver) Synchronize(reg *registry.Registry) (*Report, error) {
	if reg == nil {
		return nil, errors.New("syncer: registry is required")
	}
	rep := &Report{Root: d.store.Root(), DryRun: d.dryRun}

	for _, tpl := range reg.Templates() {
		matched, walkFailed := 0, false
		for path, err := range d.resolver.Resolve(tpl.Pattern) {
			if err != nil {
				if errors.Is(err, apperr.ErrDirectoryNotFound) {
					return rep, err
				}
				d.record(rep, models.Outcome{Pattern: tpl.Pattern, Err: err})
				walkFailed = true
				break
			}
			matched++
			d.record(rep, d.apply(tpl, path))
		}
		if matched == 0 && !walkFailed {
			d.logger.Warn("sync: no files matched", slog.String("pattern", tpl.Pattern))
			rep.Unmatched = append(rep.Unmatched, tpl.Pattern)
			if d.failOnUnmatched {
				d.record(rep, models.Outcome{
					Pattern: tpl.Pattern,
					Err:     fmt.Errorf("%w: %s", apperr.ErrNoMatches, tpl.Pattern),
				})
			}
		}
	}

	d.logger.Info("sync: finished",
		slog.Int("updated", len(rep.Changed())),
		slog.Int("unchanged", len(rep.Unchanged())),
		slog.Int("failed", len(rep.Failed())),
		slog.Bool("dry_run", d.dryRun))
	return rep, nil
}

// apply runs one file through the rewrite cycle.
func (d *Driver) apply(tpl models.Template, path string) models.Outcome {
	out := models.Outcome{Path: path, Pattern: tpl.Pattern}

	data, err := d.store.Read(path)
	if err != nil {
		out.Err = err
		return out
	}
	file := models.MigrationFile{Path: path, Content: data}

	updated, err := d.rw.Rewrite(string(file.Content), tpl.Body)
	if err != nil {
		out.Err = err
		return out
	}

	out.Checksum = checksum.String(updated)
	if updated == string(file.Content) {
		return out
	}
	out.Changed = true
	if d.dryRun {
		return out
	}
	if err := d.store.Write(path, []byte(updated)); err != nil {
		out.Changed = false
		out.Err = err
	}
	return out
}

func (d *Driver) record(rep *Report, o models.Outcome) {
	rep.Outcomes = append(rep.Outcomes, o)

	attrs := []any{slog.String("path", d.rel(o.Path)), slog.String("pattern", o.Pattern)}
	switch {
	case o.Failed():
		d.logger.Error("sync: file failed", append(attrs, slog.String("error", o.ErrorText()))...)
	case o.Changed:
		d.logger.Info("sync: updated", append(attrs, slog.String("checksum", o.Checksum))...)
	default:
		d.logger.Debug("sync: unchanged", attrs...)
	}
	if d.report != nil {
		d.report(rep.Root, o)
	}
}

func (d *Driver) rel(path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(d.store.Root(), path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
