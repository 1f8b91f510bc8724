package templateservice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/schemasync/internal/apperr"
	"github.com/starford/schemasync/internal/models"
	"github.com/starford/schemasync/internal/registry"
	"github.com/starford/schemasync/internal/resolver"
	"github.com/starford/schemasync/internal/rewriter"
	"github.com/starford/schemasync/internal/storage"
	"github.com/starford/schemasync/internal/syncer"
)

// Outcome statuses.
const (
	StatusUpdated   = "updated"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

// TemplateMatches lists the files one template applies to.
type TemplateMatches struct {
	Pattern string   `json:"pattern"`
	Files   []string `json:"files"`
}

// OutcomeItem is the serialisable form of a per-file outcome.
type OutcomeItem struct {
	Path     string `json:"path"`
	Pattern  string `json:"pattern"`
	Status   string `json:"status"`
	Checksum string `json:"checksum,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RunResult is the serialisable form of a synchronize report.
type RunResult struct {
	DryRun    bool          `json:"dry_run"`
	Summary   string        `json:"summary"`
	Outcomes  []OutcomeItem `json:"outcomes"`
	Unmatched []string      `json:"unmatched,omitempty"`
}

// Options tune how Synchronize behaves.
type Options struct {
	FailOnUnmatched bool
}

// Service coordinates registry loading, resolution and rewriting.
type Service struct {
	store        storage.Provider
	resolver     *resolver.Resolver
	rw           *rewriter.Rewriter
	registryPath string
	logger       *slog.Logger
	opts         Options
}

// NewService creates a new template service.
func NewService(store storage.Provider, res *resolver.Resolver, rw *rewriter.Rewriter, registryPath string, logger *slog.Logger, opts Options) *Service {
	return &Service{store: store, resolver: res, rw: rw, registryPath: registryPath, logger: logger, opts: opts}
}

// RegistryPath returns the registry file location.
func (s *Service) RegistryPath() string {
	return s.registryPath
}

// Registry loads and validates the registry file. It is read afresh on
// every call.
func (s *Service) Registry(_ context.Context) (*registry.Registry, error) {
	reg, err := registry.Load(s.registryPath)
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(s.rw); err != nil {
		return nil, fmt.Errorf("registry %s: %w", s.registryPath, err)
	}
	return reg, nil
}

// Matches resolves every template's pattern to relative file paths.
func (s *Service) Matches(ctx context.Context) ([]TemplateMatches, error) {
	reg, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TemplateMatches, 0, reg.Len())
	for _, tpl := range reg.Templates() {
		paths, err := resolver.Collect(s.resolver.Resolve(tpl.Pattern))
		if err != nil {
			return nil, err
		}
		files := make([]string, 0, len(paths))
		for _, p := range paths {
			files = append(files, s.rel(p))
		}
		out = append(out, TemplateMatches{Pattern: tpl.Pattern, Files: files})
	}
	return out, nil
}

// Synchronize runs the registry against the migration directory. A
// non-empty pattern restricts the run to that template.
func (s *Service) Synchronize(ctx context.Context, dryRun bool, pattern string, report syncer.ReportFunc) (*syncer.Report, error) {
	reg, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}
	if pattern != "" {
		tpl, ok := reg.Lookup(pattern)
		if !ok {
			return nil, fmt.Errorf("template %q: %w", pattern, apperr.ErrNotFound)
		}
		reg = registry.New(tpl)
	}

	opts := []syncer.Option{
		syncer.WithDryRun(dryRun),
		syncer.WithFailOnUnmatched(s.opts.FailOnUnmatched),
	}
	if report != nil {
		opts = append(opts, syncer.WithReporter(report))
	}
	return syncer.New(s.store, s.resolver, s.rw, s.logger, opts...).Synchronize(reg)
}

// Result converts a report into its serialisable form.
func (s *Service) Result(rep *syncer.Report) RunResult {
	res := RunResult{
		DryRun:    rep.DryRun,
		Summary:   rep.Summary(),
		Outcomes:  make([]OutcomeItem, 0, len(rep.Outcomes)),
		Unmatched: rep.Unmatched,
	}
	for _, o := range rep.Outcomes {
		res.Outcomes = append(res.Outcomes, s.item(o))
	}
	return res
}

func (s *Service) item(o models.Outcome) OutcomeItem {
	it := OutcomeItem{Path: s.rel(o.Path), Pattern: o.Pattern, Checksum: o.Checksum}
	switch {
	case o.Failed():
		it.Status = StatusFailed
		it.Error = o.ErrorText()
	case o.Changed:
		it.Status = StatusUpdated
	default:
		it.Status = StatusUnchanged
	}
	return it
}

func (s *Service) rel(p string) string {
	if p == "" {
		return ""
	}
	if rel, err := filepath.Rel(s.store.Root(), p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}
