// Package vshell implements the Shell Process of spec.md §4.7: the
// interactive/one-shot command interpreter that sits on top of the VFS
// and the Executor Registry.
package vshell

import (
	"context"
	"fmt"
	"strings"

	"github.com/banksean/vcontainer/vfs"
	"github.com/banksean/vcontainer/vpath"
	"github.com/banksean/vcontainer/vproc"
	"github.com/banksean/vcontainer/vproc/executor"
)

// Shell is a vproc.Subclass implementing the built-in command set, the
// line editor, and the external-dispatch order of spec.md §4.7.
type Shell struct {
	FS *vfs.FS

	// OSC selects the ANSI-colored prompt variant; set from the "--osc"
	// flag by Execute.
	OSC bool

	cwd      string
	env      map[string]string
	hist     *history
	running  bool
	exitCode int
}

// New returns a Shell bound to fs.
func New(fs *vfs.FS) *Shell {
	return &Shell{FS: fs}
}

// NewExecutor builds the built-in Shell executor of spec.md §4.4: it
// accepts exactly "sh".
func NewExecutor(fs *vfs.FS) executor.Executor {
	return executor.Executor{
		Name:    "shell",
		Accepts: func(executablePath string) bool { return executablePath == "sh" },
		Make: func(spec vproc.SpawnSpec, pid, parentPID int, hasParent bool) (*vproc.Process, error) {
			sh := New(fs)
			return vproc.New(pid, parentPID, hasParent, vproc.TypeShell, spec.Executable, spec.Args, spec.Cwd, spec.Env, sh), nil
		},
	}
}

// Execute implements vproc.Subclass. With non-empty args (after
// stripping "--osc") it runs one command line and exits with its exit
// code; otherwise it enters the interactive loop.
func (s *Shell) Execute(ctx context.Context, p *vproc.Process) error {
	osc, args := stripOSC(p.Args)
	s.OSC = osc
	s.cwd = p.Cwd
	if s.cwd == "" {
		s.cwd = vpath.Root
	}
	s.env = defaultEnv(p.Env)
	s.hist = newHistory()
	s.running = true

	if len(args) > 0 {
		rest, redirs, err := extractRedirections(args)
		if err != nil {
			p.EmitStderr(err.Error() + "\n")
			p.SetExitCode(1)
			return nil
		}
		if len(rest) == 0 {
			p.SetExitCode(0)
			return nil
		}
		result := s.run(p, rest[0], rest[1:])
		s.applyRedirections(&result, redirs)
		s.emit(p, result)
		p.SetExitCode(result.ExitCode)
		return nil
	}

	return s.interactiveLoop(ctx, p)
}

// OnTerminate implements vproc.Subclass. The shell holds no interpreter
// resources, so there is nothing to release.
func (s *Shell) OnTerminate(p *vproc.Process) {}

func (s *Shell) interactiveLoop(ctx context.Context, p *vproc.Process) error {
	editor := &lineEditor{}
	p.EmitStdout(s.prompt())

	for s.running {
		chunk, err := p.ReadInput(ctx)
		if err != nil {
			return err
		}
		output, submit, interrupted, eof := editor.feed(string(chunk), s.hist)
		if output != "" {
			p.EmitStdout(output)
		}
		switch {
		case eof:
			s.running = false
			s.exitCode = 0
		case interrupted:
			editor.reset()
			p.EmitStdout(s.prompt())
		case submit:
			line := editor.text
			editor.reset()
			s.hist.Add(line)
			s.executeLine(p, line)
			if s.running {
				p.EmitStdout(s.prompt())
			}
		}
	}
	p.SetExitCode(s.exitCode)
	return nil
}

func (s *Shell) executeLine(p *vproc.Process, line string) {
	cmd, args, redirs, err := parseCommandLine(line)
	if err != nil {
		p.EmitStderr(err.Error() + "\n")
		return
	}
	if cmd == "" {
		return
	}
	result := s.run(p, cmd, args)
	s.applyRedirections(&result, redirs)
	s.emit(p, result)
}

func (s *Shell) emit(p *vproc.Process, r builtinResult) {
	if r.Stdout != "" {
		p.EmitStdout(r.Stdout)
	}
	if r.Stderr != "" {
		p.EmitStderr(r.Stderr)
	}
}

// run implements the external-dispatch order of spec.md §4.7: built-in
// table, PATH search, shebang sniff, .js/node fallback, builtin
// dispatcher fallback, then "Command not found".
func (s *Shell) run(p *vproc.Process, cmd string, args []string) builtinResult {
	if fn, ok := builtins[cmd]; ok {
		return fn(s, args)
	}

	for _, dir := range strings.Split(s.env["PATH"], ":") {
		if dir == "" {
			continue
		}
		candidate := vpath.Join(dir, cmd)
		if s.FS.Exists(candidate) && !s.FS.IsDirectory(candidate) {
			return s.spawnAndCapture(p, candidate, args)
		}
	}

	literal := s.resolve(cmd)
	if s.FS.Exists(literal) && !s.FS.IsDirectory(literal) {
		if interp, ok := s.shebangInterpreter(literal); ok {
			return s.spawnAndCapture(p, interp, append([]string{literal}, args...))
		}
	}

	if strings.HasSuffix(cmd, ".js") || cmd == "node" {
		return s.spawnAndCapture(p, cmd, args)
	}

	if fn, ok := builtins[cmd]; ok {
		return fn(s, args)
	}

	return builtinResult{Stderr: fmt.Sprintf("Command not found: %s\n", cmd), ExitCode: 127}
}

func (s *Shell) spawnAndCapture(p *vproc.Process, executable string, args []string) builtinResult {
	spec := vproc.SpawnSpec{Executable: executable, Args: args, Cwd: s.cwd, Env: s.env}
	r := s.spawn(p, spec)
	return builtinResult{Stdout: r.Stdout, Stderr: r.Stderr, ExitCode: r.ExitCode}
}

// spawn requests a child process and suspends until its EXIT resolves
// the completion callback, per spec.md §5.
func (s *Shell) spawn(p *vproc.Process, spec vproc.SpawnSpec) vproc.SpawnResult {
	resultCh := make(chan vproc.SpawnResult, 1)
	p.RequestSpawnChild(spec, func(r vproc.SpawnResult) { resultCh <- r })
	return <-resultCh
}

func (s *Shell) shebangInterpreter(path string) (string, bool) {
	content, err := s.FS.ReadFile(path)
	if err != nil {
		return "", false
	}
	firstLine := string(content)
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	const prefix = "#!/usr/bin/env "
	if !strings.HasPrefix(firstLine, prefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(firstLine, prefix))
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// applyRedirections writes captured stdout to each redirection target
// once the command has succeeded, then clears it so the caller doesn't
// also echo it to the terminal, per spec.md §4.7.
func (s *Shell) applyRedirections(r *builtinResult, redirs []redirection) {
	if len(redirs) == 0 || r.ExitCode != 0 {
		return
	}
	for _, rd := range redirs {
		path := s.resolve(rd.Path)
		content := []byte(r.Stdout)
		if rd.Append {
			if existing, err := s.FS.ReadFile(path); err == nil {
				content = append(existing, content...)
			}
		}
		s.FS.WriteFile(path, content)
	}
	r.Stdout = ""
}

func (s *Shell) prompt() string {
	if s.OSC {
		return "\x1b[32m$ \x1b[0m"
	}
	return "$ "
}

func stripOSC(args []string) (bool, []string) {
	var osc bool
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--osc" {
			osc = true
			continue
		}
		rest = append(rest, a)
	}
	return osc, rest
}

func defaultEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env)+3)
	for k, v := range env {
		out[k] = v
	}
	if _, ok := out["PATH"]; !ok {
		out["PATH"] = "/bin:/usr/bin"
	}
	if _, ok := out["HOME"]; !ok {
		out["HOME"] = "/home"
	}
	if _, ok := out["PWD"]; !ok {
		out["PWD"] = "/"
	}
	return out
}
