package backendrpc

import (
	"github.com/jhump/protoreflect/dynamic"

	"github.com/blanketsucks/language-sub000/internal/ir"
	"github.com/blanketsucks/language-sub000/internal/state"
)

// Exporter builds dynamic protobuf messages from a compiled unit, reusing
// one parsed Schema across every Encode call.
type Exporter struct {
	schema *Schema
}

// NewExporter wraps schema for repeated use.
func NewExporter(schema *Schema) *Exporter {
	return &Exporter{schema: schema}
}

// Encode builds a CompiledUnit dynamic message from unit, stamping st's
// BuildID into the envelope the way the in-process §6 contract would
// thread it through diagnostics.
func (ex *Exporter) Encode(unit *ir.CompiledUnit, st *state.State) (*dynamic.Message, error) {
	msg := dynamic.NewMessage(ex.schema.message("CompiledUnit"))
	if st != nil {
		_ = msg.TrySetFieldByName("build_id", st.BuildID)
	}
	for _, inst := range unit.GlobalInstructions {
		if err := msg.TryAddRepeatedFieldByName("global_instructions", ex.encodeInstruction(inst)); err != nil {
			return nil, err
		}
	}
	for _, fn := range unit.Functions {
		m, err := ex.encodeFunction(fn)
		if err != nil {
			return nil, err
		}
		if err := msg.TryAddRepeatedFieldByName("functions", m); err != nil {
			return nil, err
		}
	}
	for _, s := range unit.Structs {
		if err := msg.TryAddRepeatedFieldByName("structs", ex.encodeStruct(s)); err != nil {
			return nil, err
		}
	}
	for _, g := range unit.Globals {
		if err := msg.TryAddRepeatedFieldByName("globals", ex.encodeGlobal(g)); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (ex *Exporter) encodeOperand(op ir.Operand) *dynamic.Message {
	msg := dynamic.NewMessage(ex.schema.message("Operand"))
	_ = msg.TrySetFieldByName("kind", int32(op.Kind))
	_ = msg.TrySetFieldByName("reg", uint32(op.Reg))
	_ = msg.TrySetFieldByName("imm", op.Imm)
	_ = msg.TrySetFieldByName("imm_f", op.ImmF)
	_ = msg.TrySetFieldByName("is_f", op.IsF)
	_ = msg.TrySetFieldByName("imm_type_id", int32(op.ImmTy))
	return msg
}

func (ex *Exporter) encodeInstruction(inst ir.Instruction) *dynamic.Message {
	msg := dynamic.NewMessage(ex.schema.message("Instruction"))
	_ = msg.TrySetFieldByName("op", int32(inst.Op))
	_ = msg.TrySetFieldByName("dst", uint32(inst.Dst))
	_ = msg.TrySetFieldByName("src", ex.encodeOperand(inst.Src))
	_ = msg.TrySetFieldByName("src2", ex.encodeOperand(inst.Src2))
	for _, a := range inst.Args {
		_ = msg.TryAddRepeatedFieldByName("args", ex.encodeOperand(a))
	}
	_ = msg.TrySetFieldByName("type_id", int32(inst.Type))
	_ = msg.TrySetFieldByName("index", inst.Index)
	_ = msg.TrySetFieldByName("bytes", inst.Bytes)
	_ = msg.TrySetFieldByName("fn_name", inst.FnName)
	_ = msg.TrySetFieldByName("struct_name", inst.StructName)
	_ = msg.TrySetFieldByName("bool_value", inst.BoolValue)
	_ = msg.TrySetFieldByName("target", string(inst.Target))
	_ = msg.TrySetFieldByName("true_target", string(inst.TrueTarget))
	_ = msg.TrySetFieldByName("false_target", string(inst.FalseTarget))
	_ = msg.TrySetFieldByName("has_value", inst.HasValue)
	return msg
}

func (ex *Exporter) encodeBlock(b *ir.BasicBlock) *dynamic.Message {
	msg := dynamic.NewMessage(ex.schema.message("BasicBlock"))
	_ = msg.TrySetFieldByName("name", string(b.Name))
	_ = msg.TrySetFieldByName("terminated", b.Terminated)
	for _, inst := range b.Instructions {
		_ = msg.TryAddRepeatedFieldByName("instructions", ex.encodeInstruction(inst))
	}
	return msg
}

func (ex *Exporter) encodeFunction(fn *ir.Function) (*dynamic.Message, error) {
	msg := dynamic.NewMessage(ex.schema.message("Function"))
	_ = msg.TrySetFieldByName("name", fn.Name)
	_ = msg.TrySetFieldByName("qualified_name", fn.QualifiedName)
	_ = msg.TrySetFieldByName("linkage", int32(fn.Linkage))
	_ = msg.TrySetFieldByName("return_type_id", int32(fn.ReturnType))
	_ = msg.TrySetFieldByName("entry_block", string(fn.EntryBlock))
	_ = msg.TrySetFieldByName("defined", fn.Defined)
	for _, p := range fn.Params {
		pm := dynamic.NewMessage(ex.schema.message("Parameter"))
		_ = pm.TrySetFieldByName("name", p.Name)
		_ = pm.TrySetFieldByName("type_id", int32(p.Type))
		_ = pm.TrySetFieldByName("index", uint32(p.Index))
		if err := msg.TryAddRepeatedFieldByName("params", pm); err != nil {
			return nil, err
		}
	}
	for _, t := range fn.LocalTypes {
		if err := msg.TryAddRepeatedFieldByName("local_types", int32(t)); err != nil {
			return nil, err
		}
	}
	for _, b := range fn.Blocks {
		if err := msg.TryAddRepeatedFieldByName("blocks", ex.encodeBlock(b)); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (ex *Exporter) encodeStruct(s *ir.Struct) *dynamic.Message {
	msg := dynamic.NewMessage(ex.schema.message("Struct"))
	_ = msg.TrySetFieldByName("name", s.Name)
	_ = msg.TrySetFieldByName("type_id", int32(s.Type))
	for _, f := range s.Fields {
		fm := dynamic.NewMessage(ex.schema.message("StructField"))
		_ = fm.TrySetFieldByName("name", f.Name)
		_ = fm.TrySetFieldByName("type_id", int32(f.Type))
		_ = fm.TrySetFieldByName("index", uint32(f.Index))
		_ = fm.TrySetFieldByName("flags", int32(f.Flags))
		_ = msg.TryAddRepeatedFieldByName("fields", fm)
	}
	return msg
}

func (ex *Exporter) encodeGlobal(g *ir.Global) *dynamic.Message {
	msg := dynamic.NewMessage(ex.schema.message("Global"))
	_ = msg.TrySetFieldByName("name", g.Name)
	_ = msg.TrySetFieldByName("index", g.Index)
	_ = msg.TrySetFieldByName("type_id", int32(g.Type))
	_ = msg.TrySetFieldByName("mutable", g.Mutable)
	return msg
}
