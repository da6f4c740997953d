// Package transport implements the worker-transport gRPC service of
// spec.md §6: a single bidirectional stream carrying structpb.Struct
// envelopes, dispatched by a "type" field onto Container operations,
// instrumented with the OpenTelemetry SDK per go.mod.
package transport

import "google.golang.org/grpc"

const (
	serviceName   = "vcontainer.Worker"
	streamName    = "Control"
	fullStreamURI = "/" + serviceName + "/" + streamName
)

// controlServer is implemented by Server; it exists so ServiceDesc can
// name a HandlerType without importing Server's concrete type cycle.
type controlServer interface {
	control(stream grpc.ServerStream) error
}

func controlHandler(srv any, stream grpc.ServerStream) error {
	return srv.(controlServer).control(stream)
}

// ServiceDesc describes the worker-transport service to grpc.Server, in
// place of a protoc-generated one: one bidirectional-streaming method
// whose messages are structpb.Struct envelopes, per spec.md §6.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*controlServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamName,
			Handler:       controlHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}
