package backendrpc

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/state"
)

// CompileHandler receives one exported CompiledUnit dynamic message per
// Compile RPC. It returns (accepted, message) for the ack, mirroring the
// Result<String, Nil>-shaped acks the teacher's own grpc builtins return.
type CompileHandler func(ctx context.Context, unit *dynamic.Message) (accepted bool, message string)

// Server registers a single dynamic "Compile" RPC against a hand-rolled
// grpc.ServiceDesc, the same dynamic-handler technique
// builtinGrpcRegister/FunxyGrpcHandler use to serve a service that has no
// generated Go stubs.
type Server struct {
	schema  *Schema
	grpc    *grpc.Server
	handler CompileHandler
}

// NewServer builds a Server backed by schema, dispatching every incoming
// Compile call to handler.
func NewServer(schema *Schema, handler CompileHandler) *Server {
	s := &Server{schema: schema, grpc: grpc.NewServer(), handler: handler}
	s.grpc.RegisterService(s.serviceDesc(), s)
	return s
}

// GRPCServer exposes the underlying *grpc.Server for Serve/GracefulStop.
func (s *Server) GRPCServer() *grpc.Server { return s.grpc }

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	sd := s.schema.service("Backend")
	method := sd.FindMethodByName("Compile")
	return &grpc.ServiceDesc{
		ServiceName: "quart.Backend",
		HandlerType: (*any)(nil),
		Metadata:    sd.GetFile().GetName(),
		Methods: []grpc.MethodDesc{
			{
				MethodName: method.GetName(),
				Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					reqMsg := dynamic.NewMessage(method.GetInputType())
					if err := dec(reqMsg); err != nil {
						return nil, err
					}
					self := srv.(*Server)
					accepted, message := self.handler(ctx, reqMsg)

					respMsg := dynamic.NewMessage(method.GetOutputType())
					_ = respMsg.TrySetFieldByName("accepted", accepted)
					_ = respMsg.TrySetFieldByName("message", message)
					return respMsg, nil
				},
			},
		},
	}
}

// EncodeAndDescribe is a convenience wrapper: it builds the dynamic
// CompiledUnit message for unit via an Exporter over s's schema, for
// callers (tests, a CLI `--backend` flag) that want to drive Compile
// themselves over an existing connection instead of through a generated
// client stub.
func (s *Server) EncodeAndDescribe(unit *ir.CompiledUnit, st *state.State) (*dynamic.Message, error) {
	ex := NewExporter(s.schema)
	msg, err := ex.Encode(unit, st)
	if err != nil {
		return nil, fmt.Errorf("backendrpc: encoding compiled unit: %w", err)
	}
	return msg, nil
}
