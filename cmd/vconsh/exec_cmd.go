package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vcontainer "github.com/banksean/vcontainer"
	"github.com/banksean/vcontainer/vproc"
)

// ExecCmd runs one executable to completion in a fresh container and
// prints its aggregated output, the in-process equivalent of the
// teacher's ExecCmd (which shells out to "container exec").
type ExecCmd struct {
	Bundle    string   `short:"b" placeholder:"<image-ref>" help:"OCI image reference to import into /usr/lib before running"`
	MountPath string   `default:"/usr/lib" help:"mount path for --bundle"`
	Arg       []string `arg:"" passthrough:"" help:"executable and its args"`
}

func (ec *ExecCmd) Run(cctx *Context) error {
	if len(ec.Arg) == 0 {
		return fmt.Errorf("vconsh exec: no executable given")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := vcontainer.New()
	if ec.Bundle != "" {
		if err := c.LoadBundle(ctx, ec.Bundle, ec.MountPath); err != nil {
			return fmt.Errorf("vconsh exec: load bundle: %w", err)
		}
	}

	var stdout, stderr strings.Builder
	unsub := c.OnOutput(func(o vcontainer.Output) {
		stdout.WriteString(o.Stdout)
		stderr.WriteString(o.Stderr)
	})
	defer unsub()

	executable := ec.Arg[0]
	args := ec.Arg[1:]
	p, err := c.Spawn(ctx, executable, args, 0, false, "/", map[string]string{})
	if err != nil {
		return fmt.Errorf("vconsh exec: spawn: %w", err)
	}

	done := make(chan struct{})
	var closeOnce bool
	p.Bus.On(vproc.EventExit, func(payload any) {
		if !closeOnce {
			closeOnce = true
			close(done)
		}
	})

	select {
	case <-done:
	case <-ctx.Done():
		c.TerminateTree(p.PID)
	}

	fmt.Fprint(os.Stdout, stdout.String())
	fmt.Fprint(os.Stderr, stderr.String())

	if code, ok := p.ExitCode(); ok && code != 0 {
		os.Exit(code)
	}
	return nil
}
