package vshell

import (
	"strings"
	"testing"

	"github.com/banksean/vcontainer/vfs"
)

func newTestShell() *Shell {
	fs := vfs.New()
	sh := New(fs)
	sh.cwd = "/"
	sh.env = defaultEnv(nil)
	sh.hist = newHistory()
	return sh
}

func TestBiEchoJoinsArgsWithSpacesAndTrailingNewline(t *testing.T) {
	sh := newTestShell()
	r := biEcho(sh, []string{"hello", "world"})
	if r.Stdout != "hello world\n" || r.ExitCode != 0 {
		t.Fatalf("got %+v", r)
	}
}

func TestBiMkdirAndLs(t *testing.T) {
	sh := newTestShell()
	if r := biMkdir(sh, []string{"/a/b"}); r.ExitCode != 0 {
		t.Fatalf("mkdir failed: %+v", r)
	}
	r := biLs(sh, []string{"/a"})
	if strings.TrimSpace(r.Stdout) != "b/" {
		t.Fatalf("got %q", r.Stdout)
	}
}

func TestBiCatReadsFile(t *testing.T) {
	sh := newTestShell()
	sh.FS.WriteFile("/f.txt", []byte("hi"))
	r := biCat(sh, []string{"/f.txt"})
	if r.Stdout != "hi" {
		t.Fatalf("got %+v", r)
	}
}

func TestBiCpAndMv(t *testing.T) {
	sh := newTestShell()
	sh.FS.WriteFile("/src.txt", []byte("data"))
	if r := biCp(sh, []string{"/src.txt", "/dst.txt"}); r.ExitCode != 0 {
		t.Fatalf("cp failed: %+v", r)
	}
	if content, err := sh.FS.ReadFile("/dst.txt"); err != nil || string(content) != "data" {
		t.Fatalf("got %q, %v", content, err)
	}

	if r := biMv(sh, []string{"/src.txt", "/moved.txt"}); r.ExitCode != 0 {
		t.Fatalf("mv failed: %+v", r)
	}
	if sh.FS.Exists("/src.txt") {
		t.Fatalf("expected src to be removed")
	}
	if content, err := sh.FS.ReadFile("/moved.txt"); err != nil || string(content) != "data" {
		t.Fatalf("got %q, %v", content, err)
	}
}

func TestBiCdRelativeAndAbsolute(t *testing.T) {
	sh := newTestShell()
	sh.FS.CreateDirectory("/home/project")
	if r := biCd(sh, []string{"/home/project"}); r.ExitCode != 0 {
		t.Fatalf("cd failed: %+v", r)
	}
	if sh.cwd != "/home/project" {
		t.Fatalf("got cwd=%q", sh.cwd)
	}
	if r := biCd(sh, []string{".."}); r.ExitCode != 0 {
		t.Fatalf("cd failed: %+v", r)
	}
	if sh.cwd != "/home" {
		t.Fatalf("got cwd=%q", sh.cwd)
	}
}

func TestBiCdNotADirectoryFails(t *testing.T) {
	sh := newTestShell()
	sh.FS.WriteFile("/f.txt", []byte(""))
	r := biCd(sh, []string{"/f.txt"})
	if r.ExitCode == 0 {
		t.Fatalf("expected failure")
	}
}

func TestBiExitSetsShellState(t *testing.T) {
	sh := newTestShell()
	sh.running = true
	r := biExit(sh, []string{"42"})
	if sh.running || sh.exitCode != 42 || r.ExitCode != 42 {
		t.Fatalf("got running=%v exitCode=%d r=%+v", sh.running, sh.exitCode, r)
	}
}

func TestBiRmFailsOnMissing(t *testing.T) {
	sh := newTestShell()
	r := biRm(sh, []string{"/nope"})
	if r.ExitCode == 0 {
		t.Fatalf("expected failure")
	}
}

func TestBiHistoryFormatsEntries(t *testing.T) {
	sh := newTestShell()
	sh.hist.Add("ls")
	sh.hist.Add("pwd")
	r := biHistory(sh, nil)
	if !strings.Contains(r.Stdout, "ls") || !strings.Contains(r.Stdout, "pwd") {
		t.Fatalf("got %q", r.Stdout)
	}
}
