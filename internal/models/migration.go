// Package models defines the domain types for schemasync.
package models

// Template is a canonical table definition bound to a file pattern.
type Template struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Body    string `json:"body" yaml:"body"`
}

// MigrationFile is one migration file as read from disk during a run.
type MigrationFile struct {
	Path    string `json:"path"`
	Content []byte `json:"-"`
}

// Outcome records what happened to one matched file during a run.
type Outcome struct {
	Path     string `json:"path"`
	Pattern  string `json:"pattern"`
	Changed  bool   `json:"changed"`
	Checksum string `json:"checksum,omitempty"`
	Err      error  `json:"-"`
}

// Failed reports whether processing the file failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// ErrorText returns the failure message, or an empty string.
func (o Outcome) ErrorText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
