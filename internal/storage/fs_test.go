package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/schemasync/internal/apperr"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("<?php\nreturn [];\n")
	if err := s.Write("m.php", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("m.php")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadAbsolutePathUnderRoot(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("sub.php", []byte("x"))
	got, err := s.Read(filepath.Join(s.Root(), "sub.php"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "x" {
		t.Errorf("content = %q", got)
	}
}

func TestReadMissingIsIOError(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("missing.php")
	if !errors.Is(err, apperr.ErrIO) {
		t.Errorf("err = %v, want ErrIO", err)
	}
}

func TestWritePreservesMode(t *testing.T) {
	s := tempRoot(t)
	p := filepath.Join(s.Root(), "keep.php")
	if err := os.WriteFile(p, []byte("old"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("keep.php", []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.php",
		"/etc/shadow",
		"",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.php", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.php", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.php")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, tempPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, apperr.ErrDirectoryNotFound) {
		t.Errorf("err = %v, want ErrDirectoryNotFound", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "schemasync-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if !errors.Is(err, apperr.ErrDirectoryNotFound) {
		t.Errorf("err = %v, want ErrDirectoryNotFound", err)
	}
}
