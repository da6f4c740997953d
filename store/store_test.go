package store

import (
	"context"
	"testing"

	"github.com/banksean/vcontainer/vfs"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	fs := vfs.New()
	fs.CreateDirectory("/home/project")
	fs.WriteFile("/home/project/hello.txt", []byte("hi there"))

	ctx := context.Background()
	if err := st.Snapshot(ctx, "instance-a", fs); err != nil {
		t.Fatal(err)
	}

	restored := vfs.New()
	if err := st.Restore(ctx, "instance-a", restored); err != nil {
		t.Fatal(err)
	}

	if !restored.IsDirectory("/home/project") {
		t.Fatalf("expected /home/project to be restored as a directory")
	}
	content, err := restored.ReadFile("/home/project/hello.txt")
	if err != nil || string(content) != "hi there" {
		t.Fatalf("got %q, %v", content, err)
	}
}

func TestSnapshotReplacesPriorSnapshot(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	first := vfs.New()
	first.WriteFile("/a.txt", []byte("first"))
	if err := st.Snapshot(ctx, "instance-b", first); err != nil {
		t.Fatal(err)
	}

	second := vfs.New()
	second.WriteFile("/b.txt", []byte("second"))
	if err := st.Snapshot(ctx, "instance-b", second); err != nil {
		t.Fatal(err)
	}

	restored := vfs.New()
	if err := st.Restore(ctx, "instance-b", restored); err != nil {
		t.Fatal(err)
	}
	if restored.Exists("/a.txt") {
		t.Fatalf("expected /a.txt from the replaced snapshot to be gone")
	}
	content, err := restored.ReadFile("/b.txt")
	if err != nil || string(content) != "second" {
		t.Fatalf("got %q, %v", content, err)
	}
}
