// Package rewriter locates the table-definition construct of a migration
// file and replaces it with a canonical template body.
//
// A construct is a marker call (Schema::create by default) whose argument
// list contains a definition block, closed by the matching parenthesis and
// a semicolon:
//
//	Schema::create('users', function (Blueprint $table) {
//	    $table->enum('role', ['admin', 'member']);
//	});
//
// Delimiters are tracked by depth. Quoted and backtick strings, heredocs,
// nowdocs and comments are skipped, so nested groups or stray quotes inside
// the block never end the construct early.
package rewriter

import (
	"fmt"
	"strings"

	"github.com/starford/schemasync/internal/apperr"
)

// DefaultMarker is the schema-creation call of Laravel migrations.
const DefaultMarker = "Schema::create"

// Span is the half-open byte range [Start, End) of a construct.
type Span struct {
	Start int
	End   int
}

// Rewriter finds and replaces constructs introduced by a marker.
type Rewriter struct {
	marker string
}

// New returns a Rewriter for marker. An empty marker selects DefaultMarker.
func New(marker string) *Rewriter {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Rewriter{marker: marker}
}

// Marker returns the call name the rewriter looks for.
func (r *Rewriter) Marker() string {
	return r.marker
}

// Find returns the span of the first construct in content.
func (r *Rewriter) Find(content string) (Span, error) {
	s := &scanner{src: content}
	from := 0
	for {
		start := s.nextMarker(from, r.marker)
		if start < 0 {
			return Span{}, fmt.Errorf("%w: no %s call with a definition block", apperr.ErrConstructNotFound, r.marker)
		}
		end, hasBlock, isCall, err := s.call(start + len(r.marker))
		if err != nil {
			return Span{}, err
		}
		switch {
		case !isCall:
			from = start + len(r.marker)
		case !hasBlock:
			from = end
		default:
			return Span{Start: start, End: end}, nil
		}
	}
}

// Rewrite replaces the first construct in content with body. Every byte
// outside the replaced span is kept as is.
func (r *Rewriter) Rewrite(content, body string) (string, error) {
	span, err := r.Find(content)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.Grow(len(content) - (span.End - span.Start) + len(body))
	b.WriteString(content[:span.Start])
	b.WriteString(body)
	b.WriteString(content[span.End:])
	return b.String(), nil
}

// Validate checks that body, ignoring surrounding whitespace, is exactly one
// construct. Only such bodies keep Rewrite idempotent.
func (r *Rewriter) Validate(body string) error {
	trimmed := strings.TrimSpace(body)
	span, err := r.Find(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidTemplate, err)
	}
	if span.Start != 0 || span.End != len(trimmed) {
		return fmt.Errorf("%w: body must be a single %s statement", apperr.ErrInvalidTemplate, r.marker)
	}
	return nil
}

var std = New(DefaultMarker)

// Find returns the first construct span in content using DefaultMarker.
func Find(content string) (Span, error) { return std.Find(content) }

// Rewrite replaces the first construct in content using DefaultMarker.
func Rewrite(content, body string) (string, error) { return std.Rewrite(content, body) }

// Validate checks body against DefaultMarker.
func Validate(body string) error { return std.Validate(body) }
