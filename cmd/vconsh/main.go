// Command vconsh is the CLI front-end for the vcontainer runtime: it can
// attach a host terminal directly to a Shell Process, run one command to
// completion, or run a long-lived daemon exposing a Container over gRPC
// and SSH.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	kongcompletion "github.com/jotaen/kong-completion"
	"github.com/posener/complete"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Context carries flags and state shared across every subcommand, the way
// the teacher's own Context threads its shared SandBoxer through Run.
type Context struct {
	LogFile  string
	LogLevel string
}

type CLI struct {
	LogFile  string `default:"" placeholder:"<log-file-path>" help:"location of log file (leave empty for a random tmp/ path)"`
	LogLevel string `default:"info" placeholder:"<debug|info|warn|error>" help:"the logging level (debug, info, warn, error)"`

	Shell   ShellCmd   `cmd:"" help:"attach the host terminal to a fresh Shell Process"`
	Exec    ExecCmd    `cmd:"" help:"run one command in a fresh container and print its output"`
	Daemon  DaemonCmd  `cmd:"" help:"start, stop, or check a background gRPC/SSH container daemon"`
	Doc     DocCmd     `cmd:"" help:"print complete command help formatted as markdown"`
	Version VersionCmd `cmd:"" help:"print version information about this command"`
}

const description = `Run a virtual, in-process UNIX-like container: an interactive shell,
an embedded script interpreter, a virtual file system, and nothing else
backed by a real OS process.`

func (c *CLI) initSlog(cctx *kong.Context) {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logFile := c.LogFile
	if strings.HasPrefix(cctx.Command(), "daemon") && logFile != "" {
		logFile += ".daemon"
	}

	var w *lumberjack.Logger
	if logFile == "" {
		f, err := os.CreateTemp("", "vconsh-log")
		if err != nil {
			panic(err)
		}
		logFile = f.Name()
		f.Close()
	}
	if dir := filepath.Dir(logFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(err)
		}
	}
	w = &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     28,
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	slog.Info("slog initialized", "file", logFile)
}

func main() {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Configuration(kongyaml.Loader, ".vconsh.yaml", "~/.vconsh.yaml"),
		kong.Description(description),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vconsh: %v\n", err)
		os.Exit(1)
	}

	if err := kongcompletion.Register(parser,
		kongcompletion.WithPredictor("path", complete.PredictFiles("*")),
	); err != nil {
		fmt.Fprintf(os.Stderr, "vconsh: completion registration failed: %v\n", err)
	}

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cli.initSlog(kctx)

	err = kctx.Run(&Context{LogFile: cli.LogFile, LogLevel: cli.LogLevel})
	kctx.FatalIfErrorf(err)
}
