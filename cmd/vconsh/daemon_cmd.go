package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"

	vcontainer "github.com/banksean/vcontainer"
	"github.com/banksean/vcontainer/sshgateway"
	"github.com/banksean/vcontainer/store"
	"github.com/banksean/vcontainer/transport"
)

// DaemonCmd starts, stops, or reports on a background process that holds
// one Container open and exposes it over gRPC (transport) and SSH
// (sshgateway), mirroring the shape of the teacher's own DaemonCmd
// (start/stop/restart/status against a long-lived background process)
// without its Unix-socket mux protocol, since vconsh has no fleet of
// sandboxes to multiplex — just the one Container this daemon owns.
type DaemonCmd struct {
	Action string `arg:"" optional:"" default:"status" enum:"start,stop,status" help:"start, stop, or status"`

	PIDFile   string `default:"/tmp/vconsh-daemon.pid" help:"path to the daemon's PID file"`
	GRPCAddr  string `default:"127.0.0.1:7777" help:"address the gRPC worker-transport listens on"`
	SSHAddr   string `default:"127.0.0.1:2222" help:"address the SSH gateway listens on"`
	StorePath    string `default:"" placeholder:"<db-path>" help:"sqlite path to restore from at startup and snapshot to on shutdown"`
	HostKey      string `default:"" placeholder:"<pem-file>" help:"path to a PEM-encoded SSH host key; generated fresh if unset"`
	OtelEndpoint string `default:"127.0.0.1:4317" help:"OTLP/gRPC collector endpoint spans are exported to"`
	Foreground   bool   `help:"run in the foreground instead of forking a detached background process (used internally by 'start')"`
}

func (c *DaemonCmd) Run(cctx *Context) error {
	switch c.Action {
	case "start":
		if c.Foreground {
			return c.runForeground(context.Background())
		}
		return c.startDetached()
	case "stop":
		return c.stop()
	default:
		return c.status()
	}
}

func (c *DaemonCmd) pidFromFile() (int, error) {
	data, err := os.ReadFile(c.PIDFile)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func (c *DaemonCmd) status() error {
	pid, err := c.pidFromFile()
	if err != nil {
		fmt.Println("daemon is not running")
		return nil
	}
	if proc, err := os.FindProcess(pid); err == nil && proc.Signal(syscall.Signal(0)) == nil {
		fmt.Printf("daemon is running (pid %d)\n", pid)
		return nil
	}
	fmt.Println("daemon is not running")
	return nil
}

func (c *DaemonCmd) stop() error {
	pid, err := c.pidFromFile()
	if err != nil {
		fmt.Println("daemon is not running")
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("vconsh daemon stop: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("vconsh daemon stop: %w", err)
	}
	os.Remove(c.PIDFile)
	fmt.Println("daemon stopped")
	return nil
}

func (c *DaemonCmd) startDetached() error {
	if pid, err := c.pidFromFile(); err == nil {
		if proc, ferr := os.FindProcess(pid); ferr == nil && proc.Signal(syscall.Signal(0)) == nil {
			fmt.Println("daemon is already running")
			return nil
		}
	}

	args := []string{"daemon", "start", "--foreground",
		"--pid-file", c.PIDFile,
		"--grpc-addr", c.GRPCAddr,
		"--ssh-addr", c.SSHAddr,
	}
	if c.StorePath != "" {
		args = append(args, "--store-path", c.StorePath)
	}
	if c.HostKey != "" {
		args = append(args, "--host-key", c.HostKey)
	}
	if c.OtelEndpoint != "" {
		args = append(args, "--otel-endpoint", c.OtelEndpoint)
	}

	cmd := exec.Command(os.Args[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("vconsh daemon start: %w", err)
	}

	for i := 0; i < 20; i++ {
		time.Sleep(100 * time.Millisecond)
		conn, err := net.DialTimeout("tcp", c.GRPCAddr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			fmt.Println("daemon started")
			return nil
		}
	}
	return fmt.Errorf("vconsh daemon start: daemon failed to come up")
}

func (c *DaemonCmd) runForeground(ctx context.Context) error {
	if err := os.WriteFile(c.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("vconsh daemon: write pid file: %w", err)
	}
	defer os.Remove(c.PIDFile)

	tp, err := c.setupTracing(ctx)
	if err != nil {
		return fmt.Errorf("vconsh daemon: tracing setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tp.Shutdown(shutdownCtx)
	}()

	cont := vcontainer.New()

	var st *store.Store
	if c.StorePath != "" {
		var err error
		st, err = store.Open(c.StorePath)
		if err != nil {
			return fmt.Errorf("vconsh daemon: open store: %w", err)
		}
		defer st.Close()
		cont.UseStore(st)
		if err := cont.Restore(ctx); err != nil {
			return fmt.Errorf("vconsh daemon: restore: %w", err)
		}
	}

	hostKey, err := c.loadOrGenerateHostKey()
	if err != nil {
		return err
	}

	grpcLis, err := net.Listen("tcp", c.GRPCAddr)
	if err != nil {
		return fmt.Errorf("vconsh daemon: listen grpc: %w", err)
	}
	sshLis, err := net.Listen("tcp", c.SSHAddr)
	if err != nil {
		return fmt.Errorf("vconsh daemon: listen ssh: %w", err)
	}

	grpcServer := grpc.NewServer()
	transport.NewServer(cont).Register(grpcServer)

	sshServer := sshgateway.NewServer(cont)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- grpcServer.Serve(grpcLis) }()
	go func() { errCh <- sshServer.Serve(sigCtx, sshLis, hostKey) }()

	select {
	case <-sigCtx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("vconsh daemon: %w", err)
		}
	}

	grpcServer.GracefulStop()
	if st != nil {
		if err := cont.Snapshot(context.Background()); err != nil {
			return fmt.Errorf("vconsh daemon: snapshot on shutdown: %w", err)
		}
	}
	return cont.Dispose(context.Background())
}

// setupTracing wires the OTel TracerProvider the transport package's
// package-level tracer publishes spans through, exporting them over
// OTLP/gRPC to --otel-endpoint, per SPEC_FULL.md's domain stack: this is
// the one place a real process decides where spans go, since transport
// itself only ever calls otel.Tracer(...).Start.
func (c *DaemonCmd) setupTracing(ctx context.Context) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(c.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlptracegrpc exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return tp, nil
}

func (c *DaemonCmd) loadOrGenerateHostKey() ([]byte, error) {
	if c.HostKey != "" {
		return os.ReadFile(c.HostKey)
	}
	return sshgateway.GenerateHostKey()
}
