package claude

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestResolver_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claude")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho v1.2.3\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewResolver(path)
	resolved, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Path != path {
		t.Errorf("path = %q, want %q", resolved.Path, path)
	}
	if resolved.Version != "v1.2.3" {
		t.Errorf("version = %q", resolved.Version)
	}
}

func TestResolver_CachesResolution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claude")
	os.WriteFile(path, []byte("#!/bin/sh\necho v1\n"), 0o755)

	r := NewResolver(path)
	first, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	os.Remove(path) // cache should still serve the prior resolution

	second, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if first.ResolvedAt != second.ResolvedAt {
		t.Error("expected cached resolution to be reused")
	}
}

func TestResolver_InvalidateForcesReResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claude")
	os.WriteFile(path, []byte("#!/bin/sh\necho v1\n"), 0o755)

	r := NewResolver(path)
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	r.Invalidate()
	os.Remove(path)

	if _, err := r.Resolve(context.Background()); err == nil {
		t.Error("expected resolution to fail after invalidation and removal")
	}
}

func TestResolver_NotInstalled(t *testing.T) {
	r := &Resolver{explicitPath: filepath.Join(t.TempDir(), "nope")}
	_, err := r.Resolve(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}
