package build_exec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tagship/tagship/internal/domain"
)

func TestBuild_ProducesArtifact(t *testing.T) {
	tmp := t.TempDir()
	artifact := filepath.Join(tmp, "pkg.crate")

	r := New([]string{"sh", "-c", "printf built > " + artifact}, tmp, artifact)

	a, err := r.Build(context.Background(), domain.Toolchain{Spec: "1.75.0"}, domain.Version{Major: 1, Minor: 2, Patch: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Path != artifact {
		t.Errorf("unexpected artifact path %s", a.Path)
	}

	b, err := os.ReadFile(a.Path)
	if err != nil || string(b) != "built" {
		t.Errorf("artifact content wrong: %q (%v)", b, err)
	}
}

func TestBuild_ExportsVersionAndToolchain(t *testing.T) {
	tmp := t.TempDir()
	artifact := filepath.Join(tmp, "env.txt")

	r := New([]string{"sh", "-c", "printf '%s %s' \"$TAGSHIP_TOOLCHAIN\" \"$TAGSHIP_VERSION\" > " + artifact}, tmp, artifact)

	_, err := r.Build(context.Background(), domain.Toolchain{Spec: "stable"}, domain.Version{Major: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, _ := os.ReadFile(artifact)
	if string(b) != "stable v2.0.0" {
		t.Errorf("environment not exported, got %q", b)
	}
}

func TestBuild_FailureIsBuildError(t *testing.T) {
	r := New([]string{"sh", "-c", "echo boom >&2; exit 1"}, t.TempDir(), "unused")

	_, err := r.Build(context.Background(), domain.Toolchain{}, domain.Version{})
	if err == nil {
		t.Fatal("expected error")
	}
	var be *domain.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected *domain.BuildError, got %T", err)
	}
	if be.Output != "boom" {
		t.Errorf("expected captured output, got %q", be.Output)
	}
}

func TestBuild_MissingArtifactIsBuildError(t *testing.T) {
	r := New([]string{"true"}, t.TempDir(), filepath.Join(t.TempDir(), "never-written"))

	_, err := r.Build(context.Background(), domain.Toolchain{}, domain.Version{})
	if err == nil {
		t.Fatal("expected error when the artifact was not produced")
	}
}
