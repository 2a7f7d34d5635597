// Package ir implements the register-based, SSA-friendly intermediate
// representation produced by the generator (spec §3, §4.8): the closed
// instruction set, basic blocks, and the per-function/struct/global shapes
// that make up one compilation unit's backend contract (§6).
package ir

import (
	"fmt"

	"github.com/blanketsucks/language-sub000/internal/symbols"
	"github.com/blanketsucks/language-sub000/internal/types"
)

// Register is an SSA-like virtual register index; its type lives in the
// owning State's register-type side table, not on the register itself.
type Register uint32

// OperandKind distinguishes a register reference from an immediate value.
type OperandKind int

const (
	OpRegister OperandKind = iota
	OpImmediate
)

// Operand is `Register | Immediate` (§4.8).
type Operand struct {
	Kind  OperandKind
	Reg   Register
	Imm   int64 // bit pattern for integers/bools; float immediates use ImmF with IsF set
	ImmF  float64
	IsF   bool
	ImmTy types.TypeId
}

// RegOperand wraps a register as an Operand.
func RegOperand(r Register) Operand { return Operand{Kind: OpRegister, Reg: r} }

// IntImmediate builds an integer/bool immediate operand typed t.
func IntImmediate(v int64, t types.TypeId) Operand {
	return Operand{Kind: OpImmediate, Imm: v, ImmTy: t}
}

// FloatImmediate builds a float immediate operand typed t.
func FloatImmediate(v float64, t types.TypeId) Operand {
	return Operand{Kind: OpImmediate, ImmF: v, IsF: true, ImmTy: t}
}

// Op is the closed §4.8 instruction opcode set.
type Op int

const (
	Move Op = iota
	Alloca
	NewString
	NewArray
	NewLocalScope
	NewFunction
	NewStruct
	NewTuple
	GetLocal
	GetLocalRef
	SetLocal
	GetGlobal
	GetGlobalRef
	SetGlobal
	GetMember
	GetMemberRef
	SetMember
	Read
	Write
	GetFunction
	GetReturn
	Return
	Call
	Jump
	JumpIf
	Cast
	Construct
	Null
	Boolean
	Not
	Memcpy
	Add
	Sub
	Mul
	Div
	Mod
	Or
	And
	LogicalOr
	LogicalAnd
	Xor
	Rsh
	Lsh
	Eq
	Neq
	Gt
	Lt
	Gte
	Lte
)

var opNames = [...]string{
	"Move", "Alloca", "NewString", "NewArray", "NewLocalScope", "NewFunction",
	"NewStruct", "NewTuple", "GetLocal", "GetLocalRef", "SetLocal", "GetGlobal",
	"GetGlobalRef", "SetGlobal", "GetMember", "GetMemberRef", "SetMember",
	"Read", "Write", "GetFunction", "GetReturn", "Return", "Call", "Jump",
	"JumpIf", "Cast", "Construct", "Null", "Boolean", "Not", "Memcpy",
	"Add", "Sub", "Mul", "Div", "Mod", "Or", "And", "LogicalOr", "LogicalAnd",
	"Xor", "Rsh", "Lsh", "Eq", "Neq", "Gt", "Lt", "Gte", "Lte",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return "<?>"
}

// IsBinary reports whether op is one of the uniform `dst, lhs, rhs`
// binary opcodes at the bottom of §4.8's list.
func (o Op) IsBinary() bool {
	return o >= Add && o <= Lte
}

// IsTerminator reports whether op ends a basic block (§4.8: Jump, JumpIf,
// Return).
func (o Op) IsTerminator() bool {
	return o == Jump || o == JumpIf || o == Return
}

// Instruction is every IR opcode's single tagged-variant shape: a
// destination register (when the opcode produces one), zero or more source
// operands, and opcode-specific auxiliary fields, rather than one Go type
// per opcode (§9 closed-tagged-variant design note, generalized from
// ast.Expression/Statement to the IR).
type Instruction struct {
	Op  Op
	Dst Register

	// Generic operand slots used by most opcodes (Move, binary ops, Write,
	// SetMember, Return, Call args, etc).
	Src  Operand
	Src2 Operand
	Args []Operand

	// Typed auxiliary data.
	Type       types.TypeId // Alloca/NewArray/NewTuple/Cast/Null/Construct target type
	Index      uint32       // GetLocal/SetLocal/GetGlobal/SetGlobal slot index; GetMember/GetMemberRef/SetMember carry their index in Src2 instead (immediate for a static field, a register for a dynamic array index)
	Bytes      string       // NewString literal payload
	FnName     string       // GetFunction/NewFunction/NewLocalScope target
	StructName string       // NewStruct/Construct target
	BoolValue  bool         // Boolean

	// Control flow.
	Target      BlockRef // Jump
	TrueTarget  BlockRef // JumpIf
	FalseTarget BlockRef // JumpIf
	HasValue    bool     // Return: true if Src carries the returned operand
}

// BlockRef names a basic block within one Function (alias of the shared
// type symbols.BlockRef declares, since Symbol.CurrentLoop also needs it).
type BlockRef = symbols.BlockRef

// BasicBlock is a straight-line instruction sequence ending in exactly one
// terminator (§3, §4.8). Terminated is set on the first Jump/JumpIf/Return
// inserted; Append rejects any instruction after that point.
type BasicBlock struct {
	Name         BlockRef
	Instructions []Instruction
	Terminated   bool
}

// NewBasicBlock creates an empty, unterminated block named name.
func NewBasicBlock(name BlockRef) *BasicBlock {
	return &BasicBlock{Name: name}
}

// ErrBlockTerminated is returned by Append once a block already holds a
// terminator; the generator treats this as an internal invariant violation,
// never a user-facing diagnostic.
type ErrBlockTerminated struct {
	Block BlockRef
}

func (e *ErrBlockTerminated) Error() string {
	return fmt.Sprintf("basic block %q already terminated", e.Block)
}

// Append inserts inst, marking the block terminated if inst is a
// terminator. Returns ErrBlockTerminated if the block was already
// terminated (§3 lifecycle invariant: "further instructions into a
// terminated block are forbidden").
func (b *BasicBlock) Append(inst Instruction) error {
	if b.Terminated {
		return &ErrBlockTerminated{Block: b.Name}
	}
	b.Instructions = append(b.Instructions, inst)
	if inst.Op.IsTerminator() {
		b.Terminated = true
	}
	return nil
}

// Function is one compiled function's IR body plus its backend-facing
// metadata (§6 IR consumer contract: linkage, ordered parameters, ordered
// basic blocks, local-type table, register-type side-table).
type Function struct {
	Name          string
	QualifiedName string
	Linkage       symbols.Linkage
	Params        []symbols.Parameter
	ReturnType    types.TypeId
	EntryBlock    BlockRef
	Blocks        []*BasicBlock
	LocalTypes    []types.TypeId
	RegisterTypes []types.TypeId
	Defined       bool
}

// BlockByName finds a block by name, for jump-target resolution during
// generation.
func (f *Function) BlockByName(name BlockRef) (*BasicBlock, bool) {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// CurrentBlock returns the last block appended to f, which is the
// generator's "current block" pointer materialized as a lookup rather than
// separate mutable state (§4.9).
func (f *Function) CurrentBlock() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[len(f.Blocks)-1]
}

// Struct is one compiled struct's field layout, exported to the backend in
// declaration order.
type Struct struct {
	Name   string
	Type   types.TypeId
	Fields []symbols.StructField
}

// Global is one module-scope global variable slot.
type Global struct {
	Name    string
	Index   uint32
	Type    types.TypeId
	Mutable bool
}

// CompiledUnit is the §6 IR consumer contract envelope handed to the
// backend for one compilation unit.
type CompiledUnit struct {
	GlobalInstructions []Instruction
	Functions          []*Function
	Structs            []*Struct
	Globals            []*Global
}
