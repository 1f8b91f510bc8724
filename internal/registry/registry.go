// Package registry holds the ordered catalog of canonical table templates.
package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/schemasync/internal/apperr"
	"github.com/starford/schemasync/internal/models"
	"github.com/starford/schemasync/internal/resolver"
	"github.com/starford/schemasync/internal/rewriter"
)

// Registry is an immutable, ordered mapping from pattern to template body.
type Registry struct {
	templates []models.Template
	index     map[string]int
}

// New builds a registry from templates in registration order. Bodies are
// trimmed of surrounding whitespace. When a pattern is registered twice the
// last registration wins and takes its place in the order.
func New(templates ...models.Template) *Registry {
	r := &Registry{index: make(map[string]int, len(templates))}
	for _, t := range templates {
		t.Body = strings.TrimSpace(t.Body)
		if i, ok := r.index[t.Pattern]; ok {
			r.templates = append(r.templates[:i], r.templates[i+1:]...)
			r.reindex()
		}
		r.index[t.Pattern] = len(r.templates)
		r.templates = append(r.templates, t)
	}
	return r
}

func (r *Registry) reindex() {
	clear(r.index)
	for i, t := range r.templates {
		r.index[t.Pattern] = i
	}
}

// Templates returns a copy of the templates in registration order.
func (r *Registry) Templates() []models.Template {
	out := make([]models.Template, len(r.templates))
	copy(out, r.templates)
	return out
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	return len(r.templates)
}

// Lookup returns the template registered for pattern.
func (r *Registry) Lookup(pattern string) (models.Template, bool) {
	i, ok := r.index[pattern]
	if !ok {
		return models.Template{}, false
	}
	return r.templates[i], true
}

// Validate checks every template against rw: the pattern must be a valid
// glob and the body a single complete construct.
func (r *Registry) Validate(rw *rewriter.Rewriter) error {
	var errs []error
	for _, t := range r.templates {
		err := validation.ValidateStruct(&t,
			validation.Field(&t.Pattern, validation.Required, validation.By(func(any) error {
				return resolver.ValidPattern(t.Pattern)
			})),
			validation.Field(&t.Body, validation.Required, validation.By(func(any) error {
				return rw.Validate(t.Body)
			})),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: template %q: %w", apperr.ErrInvalidTemplate, t.Pattern, err))
		}
	}
	return errors.Join(errs...)
}

// file is the on-disk YAML layout of a registry.
type file struct {
	Templates []models.Template `yaml:"templates"`
}

// Parse decodes a YAML registry document. Unlike configuration files the
// document is not environment-expanded: bodies contain $table variables.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: parse: %w", err)
	}
	return New(f.Templates...), nil
}

// Load reads and parses the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Marshal encodes the registry back to its YAML layout.
func (r *Registry) Marshal() ([]byte, error) {
	return yaml.Marshal(file{Templates: r.Templates()})
}
