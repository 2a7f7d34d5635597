// Package backendrpc gives the spec §6 "IR consumer contract" a concrete,
// optional transport: a backend process can be driven over gRPC without
// this repo depending on that backend's Go types, following the runtime-
// dynamic-protobuf pattern the teacher's own
// internal/evaluator/builtins_grpc.go uses (parse a .proto schema at
// runtime, build dynamic.Message values from it, serve them behind a
// hand-rolled grpc.ServiceDesc). A compilation that never calls Exporter.Encode
// behaves exactly per §6's in-process contract; nothing here is on the
// parse/check/generate critical path.
package backendrpc

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

// schemaFile is the virtual filename the embedded schema is parsed under.
const schemaFile = "compiledunit.proto"

// protoSchema describes the §6 wire shape: one message per IR data-model
// type (Operand, Instruction, BasicBlock, Function, Struct, Global) plus
// the per-unit envelope (CompiledUnit). Scalar widths and opcode/kind tags
// are transmitted as plain integers — the backend already has §4.8's
// closed enum ordering (ir.Op, ir.OperandKind) and interprets them the same
// way this package's Exporter does.
const protoSchema = `
syntax = "proto3";
package quart;

message Operand {
  int32 kind = 1;   // ir.OperandKind
  uint32 reg = 2;
  int64 imm = 3;
  double imm_f = 4;
  bool is_f = 5;
  int32 imm_type_id = 6;
}

message Instruction {
  int32 op = 1;     // ir.Op
  uint32 dst = 2;
  Operand src = 3;
  Operand src2 = 4;
  repeated Operand args = 5;
  int32 type_id = 6;
  uint32 index = 7;
  string bytes = 8;
  string fn_name = 9;
  string struct_name = 10;
  bool bool_value = 11;
  string target = 12;
  string true_target = 13;
  string false_target = 14;
  bool has_value = 15;
}

message BasicBlock {
  string name = 1;
  repeated Instruction instructions = 2;
  bool terminated = 3;
}

message Parameter {
  string name = 1;
  int32 type_id = 2;
  uint32 index = 3;
}

message Function {
  string name = 1;
  string qualified_name = 2;
  int32 linkage = 3;
  repeated Parameter params = 4;
  int32 return_type_id = 5;
  string entry_block = 6;
  repeated BasicBlock blocks = 7;
  repeated int32 local_types = 8;
  bool defined = 9;
}

message StructField {
  string name = 1;
  int32 type_id = 2;
  uint32 index = 3;
  int32 flags = 4;
}

message Struct {
  string name = 1;
  int32 type_id = 2;
  repeated StructField fields = 3;
}

message Global {
  string name = 1;
  uint32 index = 2;
  int32 type_id = 3;
  bool mutable = 4;
}

message CompiledUnit {
  string build_id = 1;
  repeated Instruction global_instructions = 2;
  repeated Function functions = 3;
  repeated Struct structs = 4;
  repeated Global globals = 5;
}

service Backend {
  rpc Compile(CompiledUnit) returns (CompileAck);
}

message CompileAck {
  bool accepted = 1;
  string message = 2;
}
`

// Schema is a parsed handle on protoSchema's message/service descriptors,
// built once via NewSchema and reused by every Exporter/Server.
type Schema struct {
	file *desc.FileDescriptor
}

// NewSchema parses the embedded proto text at runtime (no protoc step,
// matching the teacher's grpcLoadProto/protoparse usage).
func NewSchema() (*Schema, error) {
	p := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			schemaFile: protoSchema,
		}),
	}
	fds, err := p.ParseFiles(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("backendrpc: parsing embedded schema: %w", err)
	}
	return &Schema{file: fds[0]}, nil
}

func (s *Schema) message(name string) *desc.MessageDescriptor {
	return s.file.FindMessage("quart." + name)
}

func (s *Schema) service(name string) *desc.ServiceDescriptor {
	return s.file.FindService("quart." + name)
}
