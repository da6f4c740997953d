package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	vcontainer "github.com/banksean/vcontainer"
	"github.com/banksean/vcontainer/store"
	"github.com/banksean/vcontainer/vproc"
)

// ShellCmd puts the host terminal into raw mode and attaches it directly
// to a fresh interactive Shell Process, the in-process equivalent of the
// teacher's real exec-into-a-container terminal passthrough
// (containers.go's ContainerSvc.Exec).
type ShellCmd struct {
	Bundle    string `short:"b" placeholder:"<image-ref>" help:"OCI image reference to import into /usr/lib before starting the shell"`
	MountPath string `default:"/usr/lib" help:"mount path for --bundle"`
	StorePath string `short:"d" placeholder:"<db-path>" help:"sqlite path to restore a prior snapshot from and save a new one on exit"`
}

func (sc *ShellCmd) Run(cctx *Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := vcontainer.New()
	slog.InfoContext(ctx, "vconsh shell: container created", "id", c.InstanceID, "name", c.InstanceName)

	var st *store.Store
	if sc.StorePath != "" {
		var err error
		st, err = store.Open(sc.StorePath)
		if err != nil {
			return fmt.Errorf("vconsh shell: open store: %w", err)
		}
		defer st.Close()
		c.UseStore(st)
		if err := c.Restore(ctx); err != nil {
			slog.WarnContext(ctx, "vconsh shell: restore failed, starting empty", "error", err)
		}
	}

	if sc.Bundle != "" {
		if err := c.LoadBundle(ctx, sc.Bundle, sc.MountPath); err != nil {
			return fmt.Errorf("vconsh shell: load bundle: %w", err)
		}
	}

	stdinFD := int(os.Stdin.Fd())
	var restoreTerm func()
	if term.IsTerminal(stdinFD) {
		prev, err := term.MakeRaw(stdinFD)
		if err != nil {
			return fmt.Errorf("vconsh shell: raw mode: %w", err)
		}
		restoreTerm = func() { term.Restore(stdinFD, prev) }
		defer restoreTerm()
	}

	unsubOutput := c.OnOutput(func(o vcontainer.Output) {
		io.WriteString(os.Stdout, o.Stdout)
		io.WriteString(os.Stderr, o.Stderr)
	})
	defer unsubOutput()

	p, err := c.Spawn(ctx, "sh", []string{"--osc"}, 0, false, "/", map[string]string{})
	if err != nil {
		return fmt.Errorf("vconsh shell: spawn: %w", err)
	}

	done := make(chan struct{})
	var closeOnce bool
	p.Bus.On(vproc.EventExit, func(payload any) {
		if !closeOnce {
			closeOnce = true
			close(done)
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if werr := p.WriteInput(chunk); werr != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-sigCh:
		c.TerminateTree(p.PID)
	}

	if st != nil {
		if err := c.Snapshot(ctx); err != nil {
			slog.ErrorContext(ctx, "vconsh shell: snapshot on exit failed", "error", err)
		}
	}
	return nil
}
