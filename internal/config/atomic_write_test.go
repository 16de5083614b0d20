package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := AtomicWrite(path, []byte("a: 1\n")); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a: 1\n" {
		t.Errorf("content = %q", got)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, 0o644); err != nil {
			t.Fatal(err)
		}
		if err := AtomicWrite(path, []byte("a: 2\n")); err != nil {
			t.Fatalf("AtomicWrite() error = %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Errorf("mode = %v, want 0644", info.Mode().Perm())
		}
	}
}

func TestCalculateETag(t *testing.T) {
	a := CalculateETag([]byte("x"))
	b := CalculateETag([]byte("y"))
	if a == b {
		t.Error("different content should yield different etags")
	}
	if a[0] != '"' || a[len(a)-1] != '"' {
		t.Errorf("etag %s should be quoted", a)
	}
}
