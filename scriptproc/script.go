// Package scriptproc implements the Script Process of spec.md §4.6: a
// vproc.Subclass that runs a VFS-resident source file through an
// embedded goja interpreter, wiring console output and module
// resolution back onto the owning Process.
package scriptproc

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/banksean/vcontainer/vfs"
	"github.com/banksean/vcontainer/vproc"
	"github.com/banksean/vcontainer/vproc/executor"
)

// Script is a vproc.Subclass that evaluates one VFS file as a CommonJS-ish
// module under a per-process goja.Runtime.
type Script struct {
	FS *vfs.FS

	vm *goja.Runtime
}

// New returns a Script bound to fs. A fresh goja.Runtime is constructed
// lazily in Execute so each process instance owns an isolated VM, per
// spec.md §5's scoped-acquisition discipline.
func New(fs *vfs.FS) *Script {
	return &Script{FS: fs}
}

// NewExecutor builds the built-in Script executor of spec.md §4.4: it
// accepts "node" or any path ending in ".js"; when the executable is
// "node" the first argument becomes the script's own executable path.
func NewExecutor(fs *vfs.FS) executor.Executor {
	return executor.Executor{
		Name: "script",
		Accepts: func(executablePath string) bool {
			return executablePath == "node" || strings.HasSuffix(executablePath, ".js")
		},
		Make: func(spec vproc.SpawnSpec, pid, parentPID int, hasParent bool) (*vproc.Process, error) {
			scriptPath := spec.Executable
			args := spec.Args
			if spec.Executable == "node" {
				if len(spec.Args) == 0 {
					return nil, fmt.Errorf("scriptproc: node requires a script path argument")
				}
				scriptPath = spec.Args[0]
				args = spec.Args[1:]
			}
			return vproc.New(pid, parentPID, hasParent, vproc.TypeScript, scriptPath, args, spec.Cwd, spec.Env, New(fs)), nil
		},
	}
}

// Execute implements vproc.Subclass.
func (s *Script) Execute(ctx context.Context, p *vproc.Process) error {
	src, err := s.FS.ReadFile(p.ExecutablePath)
	if err != nil {
		return fmt.Errorf("scriptproc: read %s: %w", p.ExecutablePath, err)
	}
	source := stripShebang(string(src))

	vm := goja.New()
	s.vm = vm
	defer s.dispose()

	s.installConsole(vm, p)
	s.installModuleLoader(vm, p)
	s.installProcessArgv(vm, p)

	_, err = vm.RunString(source)
	if err != nil {
		p.EmitStderr(err.Error() + "\n")
		return err
	}

	return nil
}

// OnTerminate implements vproc.Subclass: the interpreter is disposed
// immediately and any in-flight evaluation result is discarded.
func (s *Script) OnTerminate(p *vproc.Process) {
	s.dispose()
}

func (s *Script) dispose() {
	s.vm = nil
}

// stripShebang removes a leading "#!..." line, per spec.md §4.6 step 1.
func stripShebang(src string) string {
	if !strings.HasPrefix(src, "#!") {
		return src
	}
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		return src[i+1:]
	}
	return ""
}

func (s *Script) installProcessArgv(vm *goja.Runtime, p *vproc.Process) {
	argv := append([]string{"node", p.ExecutablePath}, p.Args...)
	process := vm.NewObject()
	process.Set("argv", argv)
	vm.Set("process", process)
}

func (s *Script) installConsole(vm *goja.Runtime, p *vproc.Process) {
	console := vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		p.EmitStdout(formatArgs(call.Arguments) + "\n")
		return goja.Undefined()
	})
	console.Set("error", func(call goja.FunctionCall) goja.Value {
		p.EmitStderr(formatArgs(call.Arguments) + "\n")
		return goja.Undefined()
	})
	vm.Set("console", console)
}

func (s *Script) installModuleLoader(vm *goja.Runtime, p *vproc.Process) {
	vm.Set("require", func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()
		resolved, err := s.FS.ResolveModule(specifier, p.ExecutablePath)
		if err != nil {
			panic(vm.ToValue(err.Error()))
		}
		body, err := s.FS.ReadFile(resolved)
		if err != nil {
			panic(vm.ToValue(err.Error()))
		}
		moduleVM := vm
		module := moduleVM.NewObject()
		exports := moduleVM.NewObject()
		module.Set("exports", exports)
		fn, err := moduleVM.RunString("(function(module, exports, require) {" + stripShebang(string(body)) + "\n})")
		if err != nil {
			panic(moduleVM.ToValue(err.Error()))
		}
		moduleFn, ok := goja.AssertFunction(fn)
		if !ok {
			panic(moduleVM.ToValue("scriptproc: module body is not callable"))
		}
		if _, err := moduleFn(goja.Undefined(), module, exports, moduleVM.Get("require")); err != nil {
			panic(moduleVM.ToValue(err.Error()))
		}
		return module.Get("exports")
	})
}

// formatArgs is the structural pretty-printer used by console.log/error:
// unlike goja's own String() coercion, it renders nested objects/arrays
// recursively so output is predictable across runtime versions.
func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a, map[goja.Value]bool{})
	}
	return strings.Join(parts, " ")
}

func formatValue(v goja.Value, seen map[goja.Value]bool) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if seen[v] {
		return "[Circular]"
	}
	seen[v] = true

	switch obj.ClassName() {
	case "Array":
		length := int(obj.Get("length").ToInteger())
		parts := make([]string, length)
		for i := 0; i < length; i++ {
			parts[i] = formatValue(obj.Get(fmt.Sprintf("%d", i)), seen)
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	case "Function":
		return "[Function" + nameSuffix(obj) + "]"
	default:
		keys := obj.Keys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, formatValue(obj.Get(k), seen)))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
}

func nameSuffix(obj *goja.Object) string {
	name := obj.Get("name")
	if name == nil || goja.IsUndefined(name) || name.String() == "" {
		return " (anonymous)"
	}
	return ": " + name.String()
}
