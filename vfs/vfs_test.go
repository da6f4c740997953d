package vfs

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/banksean/vcontainer/vpath"
)

func TestWriteReadRoundTrip(t *testing.T) {
	f := New()
	if err := f.WriteFile("/a/b.txt", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	got, err := f.ReadFile("/a/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hi" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteFileAutoCreatesAncestors(t *testing.T) {
	f := New()
	if err := f.WriteFile("/a/b/c.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if !f.IsDirectory("/a") || !f.IsDirectory("/a/b") {
		t.Fatalf("ancestors not created")
	}
}

func TestListDirectory(t *testing.T) {
	f := New()
	f.WriteFile("/a/b.txt", []byte("hi"))
	f.CreateDirectory("/a/sub")

	names, err := f.ListDirectory("/a")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(names)
	want := []string{"b.txt", "sub/"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v want %v", names, want)
	}

	root, err := f.ListDirectory("/")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range root {
		if n == "a/" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected 'a/' in root listing, got %v", root)
	}
}

func TestCreateDirectoryIdempotent(t *testing.T) {
	f := New()
	if err := f.CreateDirectory("/a"); err != nil {
		t.Fatal(err)
	}
	if err := f.CreateDirectory("/a"); err != nil {
		t.Fatalf("second create_directory should be a no-op, got %v", err)
	}
}

func TestCreateDirectoryOverFileFails(t *testing.T) {
	f := New()
	f.WriteFile("/a", []byte("x"))
	err := f.CreateDirectory("/a")
	if !errors.Is(err, ErrFileExists) {
		t.Fatalf("expected ErrFileExists, got %v", err)
	}
}

func TestWriteFileOverDirectoryFails(t *testing.T) {
	f := New()
	f.CreateDirectory("/a")
	err := f.WriteFile("/a", []byte("x"))
	if !errors.Is(err, ErrIsADirectory) {
		t.Fatalf("expected ErrIsADirectory, got %v", err)
	}
}

func TestDeleteDirectoryRequiresEmpty(t *testing.T) {
	f := New()
	f.WriteFile("/a/b.txt", []byte("x"))
	err := f.DeleteDirectory("/a")
	if !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}
	f.DeleteFile("/a/b.txt", false)
	if err := f.DeleteDirectory("/a"); err != nil {
		t.Fatalf("expected empty directory delete to succeed, got %v", err)
	}
}

func TestDeleteFileNotFound(t *testing.T) {
	f := New()
	err := f.DeleteFile("/nope", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFilesConsistentWithIsDirectory(t *testing.T) {
	f := New()
	f.WriteFile("/a/b.txt", []byte("x"))
	f.CreateDirectory("/a/sub")

	for _, p := range f.ListFiles() {
		if f.IsDirectory(p) {
			t.Fatalf("listed file %q also reports as directory", p)
		}
	}
}

func TestRepeatedSlashesNormalizeIdentically(t *testing.T) {
	f := New()
	f.WriteFile("/a//b.txt", []byte("x"))
	got, err := f.ReadFile("/a/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "x" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveModuleDirectoryIndex(t *testing.T) {
	f := New()
	f.WriteFile("/lib/index.js", []byte("module.exports = 1"))
	p, err := f.ResolveModule("/lib", "")
	if err != nil {
		t.Fatal(err)
	}
	if p != "/lib/index.js" {
		t.Fatalf("got %q", p)
	}
}

func TestResolveModuleRelative(t *testing.T) {
	f := New()
	f.WriteFile("/app/helper.js", []byte("1"))
	p, err := f.ResolveModule("./helper", "/app/main.js")
	if err != nil {
		t.Fatal(err)
	}
	if p != "/app/helper.js" {
		t.Fatalf("got %q", p)
	}
}

func TestResolveModuleNotFound(t *testing.T) {
	f := New()
	_, err := f.ResolveModule("./missing", "/app/main.js")
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestResolveModuleEscapingRootIsInvalidPath(t *testing.T) {
	f := New()
	_, err := f.ResolveModule("../../escape", "/a/b.js")
	if !errors.Is(err, vpath.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestResolveModuleDeterministic(t *testing.T) {
	f := New()
	f.WriteFile("/lib/index.js", []byte("1"))
	a, errA := f.ResolveModule("/lib", "")
	b, errB := f.ResolveModule("/lib", "")
	if errA != nil || errB != nil {
		t.Fatal(errA, errB)
	}
	if a != b {
		t.Fatalf("resolution not deterministic: %q vs %q", a, b)
	}
}
