package transport

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	vcontainer "github.com/banksean/vcontainer"
)

var tracer = otel.Tracer("github.com/banksean/vcontainer/transport")

// Server implements the worker-transport service on top of a Container:
// it reads one envelope at a time off the stream, dispatches it by its
// "type" field, and writes back a response envelope, per spec.md §6.
type Server struct {
	c *vcontainer.Container
}

// NewServer returns a Server bound to c.
func NewServer(c *vcontainer.Container) *Server {
	return &Server{c: c}
}

// Register registers the worker-transport service on s.
func (srv *Server) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, srv)
}

func (srv *Server) control(stream grpc.ServerStream) error {
	ctx := stream.Context()
	for {
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		resp := srv.dispatch(ctx, req)
		if err := stream.SendMsg(resp); err != nil {
			return err
		}
	}
}

func (srv *Server) dispatch(ctx context.Context, req *structpb.Struct) *structpb.Struct {
	msgType := fieldString(req, "type")
	ctx, span := tracer.Start(ctx, "transport."+msgType)
	defer span.End()

	slog.DebugContext(ctx, "transport: dispatch", "type", msgType)

	switch msgType {
	case "initialize":
		return envelope(map[string]any{
			"type":         "initialized",
			"instanceId":   srv.c.InstanceID,
			"instanceName": srv.c.InstanceName,
		})
	case "spawn":
		return srv.handleSpawn(ctx, req)
	case "writeInput":
		return srv.handleWriteInput(req)
	case "terminate":
		return srv.handleTerminate(req)
	case "dispose":
		if err := srv.c.Dispose(ctx); err != nil {
			return errorEnvelope(err)
		}
		return envelope(map[string]any{"type": "disposed"})
	case "getStats":
		return srv.handleGetStats(req)
	case "writeFile":
		return srv.handleWriteFile(req)
	case "readFile":
		return srv.handleReadFile(req)
	case "deleteFile":
		return srv.handleDeleteFile(req)
	case "listFiles":
		return envelope(map[string]any{"type": "files", "paths": stringsToAny(srv.c.ListFiles())})
	case "createDirectory":
		if err := srv.c.CreateDirectory(fieldString(req, "path")); err != nil {
			return errorEnvelope(err)
		}
		return envelope(map[string]any{"type": "directoryCreated"})
	case "listDirectory":
		return srv.handleListDirectory(req)
	case "deleteDirectory":
		if err := srv.c.DeleteDirectory(fieldString(req, "path")); err != nil {
			return errorEnvelope(err)
		}
		return envelope(map[string]any{"type": "directoryDeleted"})
	default:
		return errorEnvelope(fmt.Errorf("transport: unknown message type %q", msgType))
	}
}

func (srv *Server) handleSpawn(ctx context.Context, req *structpb.Struct) *structpb.Struct {
	executable := fieldString(req, "executable")
	args := fieldStringList(req, "args")
	cwd := fieldString(req, "cwd")
	env := fieldStringMap(req, "env")
	parentPID, hasParent := fieldNumber(req, "parentPid")

	p, err := srv.c.Spawn(ctx, executable, args, int(parentPID), hasParent, cwd, env)
	if err != nil {
		return errorEnvelope(err)
	}
	return envelope(map[string]any{"type": "spawned", "pid": float64(p.PID)})
}

func (srv *Server) handleWriteInput(req *structpb.Struct) *structpb.Struct {
	pid, _ := fieldNumber(req, "pid")
	p, ok := srv.c.GetProcess(int(pid))
	if !ok {
		return errorEnvelope(fmt.Errorf("%w: pid %d", vcontainer.ErrProcessNotFound, int(pid)))
	}
	if err := p.WriteInput([]byte(fieldString(req, "data"))); err != nil {
		return errorEnvelope(err)
	}
	return envelope(map[string]any{"type": "inputWritten"})
}

func (srv *Server) handleTerminate(req *structpb.Struct) *structpb.Struct {
	pid, _ := fieldNumber(req, "pid")
	srv.c.TerminateTree(int(pid))
	return envelope(map[string]any{"type": "terminated"})
}

func (srv *Server) handleGetStats(req *structpb.Struct) *structpb.Struct {
	pid, _ := fieldNumber(req, "pid")
	p, ok := srv.c.GetProcess(int(pid))
	if !ok {
		return errorEnvelope(fmt.Errorf("%w: pid %d", vcontainer.ErrProcessNotFound, int(pid)))
	}
	fields := map[string]any{
		"type":  "stats",
		"pid":   float64(p.PID),
		"state": string(p.State()),
	}
	if code, ok := p.ExitCode(); ok {
		fields["exitCode"] = float64(code)
	}
	return envelope(fields)
}

func (srv *Server) handleWriteFile(req *structpb.Struct) *structpb.Struct {
	if err := srv.c.WriteFile(fieldString(req, "path"), []byte(fieldString(req, "content"))); err != nil {
		return errorEnvelope(err)
	}
	return envelope(map[string]any{"type": "fileWritten"})
}

func (srv *Server) handleReadFile(req *structpb.Struct) *structpb.Struct {
	content, err := srv.c.ReadFile(fieldString(req, "path"))
	if err != nil {
		return errorEnvelope(err)
	}
	return envelope(map[string]any{"type": "fileContent", "content": string(content)})
}

func (srv *Server) handleDeleteFile(req *structpb.Struct) *structpb.Struct {
	if err := srv.c.DeleteFile(fieldString(req, "path"), fieldBool(req, "recursive")); err != nil {
		return errorEnvelope(err)
	}
	return envelope(map[string]any{"type": "fileDeleted"})
}

func (srv *Server) handleListDirectory(req *structpb.Struct) *structpb.Struct {
	entries, err := srv.c.ListDirectory(fieldString(req, "path"))
	if err != nil {
		return errorEnvelope(err)
	}
	return envelope(map[string]any{"type": "directoryListing", "entries": stringsToAny(entries)})
}
