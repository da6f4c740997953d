package vshell

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/banksean/vcontainer/vpath"
)

// builtinResult is what every builtin command returns: captured output
// and an exit code, matching spec.md §4.7's per-builtin behavior table.
type builtinResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type builtinFunc func(sh *Shell, args []string) builtinResult

// builtins is the shell's built-in command table, per spec.md §4.7.
var builtins = map[string]builtinFunc{
	"ls":      biLs,
	"cat":     biCat,
	"mkdir":   biMkdir,
	"rm":      biRm,
	"rmdir":   biRmdir,
	"touch":   biTouch,
	"pwd":     biPwd,
	"cd":      biCd,
	"echo":    biEcho,
	"cp":      biCp,
	"mv":      biMv,
	"exit":    biExit,
	"history": biHistory,
}

func ok(stdout string) builtinResult { return builtinResult{Stdout: stdout} }

func fail(err error) builtinResult {
	return builtinResult{Stderr: err.Error() + "\n", ExitCode: 1}
}

func biLs(sh *Shell, args []string) builtinResult {
	path := sh.cwd
	if len(args) > 0 {
		path = sh.resolve(args[0])
	}
	names, err := sh.FS.ListDirectory(path)
	if err != nil {
		return fail(err)
	}
	return ok(strings.Join(names, "\n") + "\n")
}

func biCat(sh *Shell, args []string) builtinResult {
	if len(args) == 0 {
		return fail(errors.New("cat: missing file operand"))
	}
	var out strings.Builder
	for _, a := range args {
		content, err := sh.FS.ReadFile(sh.resolve(a))
		if err != nil {
			return fail(err)
		}
		out.Write(content)
	}
	return ok(out.String())
}

func biMkdir(sh *Shell, args []string) builtinResult {
	if len(args) == 0 {
		return fail(errors.New("mkdir: missing operand"))
	}
	for _, a := range args {
		if err := sh.FS.CreateDirectory(sh.resolve(a)); err != nil {
			return fail(err)
		}
	}
	return ok("")
}

func biRm(sh *Shell, args []string) builtinResult {
	recursive := false
	var paths []string
	for _, a := range args {
		if a == "-r" {
			recursive = true
			continue
		}
		paths = append(paths, a)
	}
	if len(paths) == 0 {
		return fail(errors.New("rm: missing operand"))
	}
	for _, p := range paths {
		if err := sh.FS.DeleteFile(sh.resolve(p), recursive); err != nil {
			return fail(err)
		}
	}
	return ok("")
}

func biRmdir(sh *Shell, args []string) builtinResult {
	if len(args) == 0 {
		return fail(errors.New("rmdir: missing operand"))
	}
	for _, a := range args {
		if err := sh.FS.DeleteDirectory(sh.resolve(a)); err != nil {
			return fail(err)
		}
	}
	return ok("")
}

func biTouch(sh *Shell, args []string) builtinResult {
	if len(args) == 0 {
		return fail(errors.New("touch: missing file operand"))
	}
	for _, a := range args {
		p := sh.resolve(a)
		if sh.FS.Exists(p) {
			continue
		}
		if err := sh.FS.WriteFile(p, nil); err != nil {
			return fail(err)
		}
	}
	return ok("")
}

func biPwd(sh *Shell, args []string) builtinResult {
	return ok(sh.cwd + "\n")
}

func biCd(sh *Shell, args []string) builtinResult {
	target := vpath.Root
	if len(args) > 0 {
		target = args[0]
	}
	resolved := sh.resolve(target)
	if !sh.FS.IsDirectory(resolved) {
		return fail(fmt.Errorf("cd: not a directory: %s", resolved))
	}
	sh.cwd = resolved
	sh.env["PWD"] = resolved
	return ok("")
}

func biEcho(sh *Shell, args []string) builtinResult {
	return ok(strings.Join(args, " ") + "\n")
}

func biCp(sh *Shell, args []string) builtinResult {
	if len(args) != 2 {
		return fail(errors.New("cp: usage: cp src dst"))
	}
	content, err := sh.FS.ReadFile(sh.resolve(args[0]))
	if err != nil {
		return fail(err)
	}
	if err := sh.FS.WriteFile(sh.resolve(args[1]), content); err != nil {
		return fail(err)
	}
	return ok("")
}

func biMv(sh *Shell, args []string) builtinResult {
	if len(args) != 2 {
		return fail(errors.New("mv: usage: mv src dst"))
	}
	src := sh.resolve(args[0])
	content, err := sh.FS.ReadFile(src)
	if err != nil {
		return fail(err)
	}
	if err := sh.FS.WriteFile(sh.resolve(args[1]), content); err != nil {
		return fail(err)
	}
	if err := sh.FS.DeleteFile(src, false); err != nil {
		return fail(err)
	}
	return ok("")
}

func biExit(sh *Shell, args []string) builtinResult {
	code := 0
	if len(args) > 0 {
		fmt.Sscanf(args[0], "%d", &code)
	}
	sh.running = false
	sh.exitCode = code
	return builtinResult{ExitCode: code}
}

func biHistory(sh *Shell, args []string) builtinResult {
	entries := sh.hist.Entries()
	sorted := make([]historyEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })
	var b strings.Builder
	for i, e := range sorted {
		fmt.Fprintf(&b, "%5d  %s  %s\n", i+1, e.At.Format("2006-01-02T15:04:05"), e.Cmd)
	}
	return ok(b.String())
}

// resolve joins p against the shell's cwd unless it is already absolute.
func (sh *Shell) resolve(p string) string {
	return vpath.Join(sh.cwd, p)
}
