package syncer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/starford/schemasync/internal/models"
)

// Report collects the outcomes of one synchronize run.
type Report struct {
	Root      string
	DryRun    bool
	Outcomes  []models.Outcome
	Unmatched []string
}

// Changed returns outcomes whose file was (or, in a dry run, would be) rewritten.
func (r *Report) Changed() []models.Outcome {
	return r.filter(func(o models.Outcome) bool { return o.Changed && !o.Failed() })
}

// Unchanged returns outcomes whose construct already matched its template.
func (r *Report) Unchanged() []models.Outcome {
	return r.filter(func(o models.Outcome) bool { return !o.Changed && !o.Failed() })
}

// Failed returns outcomes that carry an error.
func (r *Report) Failed() []models.Outcome {
	return r.filter(models.Outcome.Failed)
}

func (r *Report) filter(keep func(models.Outcome) bool) []models.Outcome {
	var out []models.Outcome
	for _, o := range r.Outcomes {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// Err returns nil when no file failed, otherwise an error listing the
// failed paths.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	paths := make([]string, 0, len(failed))
	for _, o := range failed {
		paths = append(paths, r.label(o))
	}
	return fmt.Errorf("%d file(s) failed: %s", len(failed), strings.Join(paths, ", "))
}

// Summary returns the one-line run summary.
func (r *Report) Summary() string {
	verb := "updated"
	if r.DryRun {
		verb = "would update"
	}
	s := fmt.Sprintf("%d %s, %d unchanged, %d failed",
		len(r.Changed()), verb, len(r.Unchanged()), len(r.Failed()))
	if len(r.Unmatched) > 0 {
		s += fmt.Sprintf(", %d pattern(s) without matches", len(r.Unmatched))
	}
	return s
}

// label returns the outcome path relative to the root, or the pattern when
// the outcome is not tied to a file.
func (r *Report) label(o models.Outcome) string {
	if o.Path == "" || o.Path == r.Root {
		return o.Pattern
	}
	if rel, err := filepath.Rel(r.Root, o.Path); err == nil {
		return filepath.ToSlash(rel)
	}
	return o.Path
}

// StatusWriter returns a ReportFunc printing one status line per outcome.
func StatusWriter(w io.Writer, dryRun bool) ReportFunc {
	updated := "updated"
	if dryRun {
		updated = "would update"
	}
	return func(root string, o models.Outcome) {
		r := &Report{Root: root}
		switch {
		case o.Failed():
			fmt.Fprintf(w, "failed: %s: %s\n", r.label(o), o.ErrorText())
		case o.Changed:
			fmt.Fprintf(w, "%s: %s\n", updated, r.label(o))
		default:
			fmt.Fprintf(w, "unchanged: %s\n", r.label(o))
		}
	}
}
