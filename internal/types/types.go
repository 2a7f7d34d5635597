// Package types implements the hash-consed TypeRegistry from spec §3/§4.2:
// every structurally-equal Type shares one canonical TypeId.
package types

import (
	"fmt"
	"strings"
)

// TypeId is a handle into a Registry. Equal ids denote equal types.
type TypeId int

// Invalid is never a value returned by Registry; used as a zero-value
// sentinel by callers building up a Type incrementally.
const Invalid TypeId = -1

// Kind tags the variant of a Type (§3).
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindPointer
	KindReference
	KindArray
	KindTuple
	KindFunction
	KindStruct
	KindTrait
)

// StructId/TraitId identify the symbols.Symbol backing a Struct/Trait type.
// Kept as opaque ints here (types must not import symbols, which itself
// references types); a struct Type is matched back to its Symbol by its
// QualifiedName in State.GlobalStructs.
type StructId int
type TraitId int

// Type is one interned, structurally-keyed type value.
type Type struct {
	Kind Kind

	// KindInt
	Bits   uint16
	Signed bool

	// KindFloat reuses Bits.

	// KindPointer / KindReference
	Pointee  TypeId
	Mutable  bool

	// KindArray
	Element TypeId
	Len     uint32

	// KindTuple
	Elements []TypeId

	// KindFunction
	Params     []TypeId
	Ret        TypeId
	CVariadic  bool

	// KindStruct / KindTrait
	QualifiedName string
	StructLink    StructId
	TraitLink     TraitId
	Fields        []TypeId // only meaningful once a struct's fields are finalized
}

// key produces a value that is == comparable and uniquely identifies the
// structural identity of a Type (mutability and bit width participate, per
// the §4.2 invariant).
type key struct {
	kind          Kind
	bits          uint16
	signed        bool
	pointee       TypeId
	mutable       bool
	element       TypeId
	length        uint32
	elements      string // joined TypeIds
	params        string
	ret           TypeId
	cVariadic     bool
	qualifiedName string
}

func joinIds(ids []TypeId) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", id)
	}
	return b.String()
}

func keyOf(t Type) key {
	return key{
		kind: t.Kind, bits: t.Bits, signed: t.Signed,
		pointee: t.Pointee, mutable: t.Mutable,
		element: t.Element, length: t.Len,
		elements: joinIds(t.Elements),
		params:   joinIds(t.Params), ret: t.Ret, cVariadic: t.CVariadic,
		qualifiedName: t.QualifiedName,
	}
}

// Registry is the hash-consed TypeRegistry (spec §4.2). It owns every Type
// for the whole compilation; every other component borrows TypeIds.
type Registry struct {
	types []Type
	byKey map[key]TypeId

	voidId TypeId
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{byKey: make(map[key]TypeId)}
	r.voidId = r.intern(Type{Kind: KindVoid})
	return r
}

func (r *Registry) intern(t Type) TypeId {
	k := keyOf(t)
	if id, ok := r.byKey[k]; ok {
		return id
	}
	id := TypeId(len(r.types))
	r.types = append(r.types, t)
	r.byKey[k] = id
	return id
}

// At dereferences a TypeId to its Type value.
func (r *Registry) At(id TypeId) Type {
	return r.types[id]
}

func (r *Registry) Void() TypeId { return r.voidId }

func (r *Registry) GetInt(bits uint16, signed bool) TypeId {
	return r.intern(Type{Kind: KindInt, Bits: bits, Signed: signed})
}

// GetBool is GetInt(1, false): the boolean is the 1-bit integer (§3).
func (r *Registry) GetBool() TypeId {
	return r.GetInt(1, false)
}

func (r *Registry) GetFloat(bits uint16) TypeId {
	return r.intern(Type{Kind: KindFloat, Bits: bits})
}

func (r *Registry) MakePointer(pointee TypeId, mutable bool) TypeId {
	return r.intern(Type{Kind: KindPointer, Pointee: pointee, Mutable: mutable})
}

func (r *Registry) MakeReference(referent TypeId, mutable bool) TypeId {
	return r.intern(Type{Kind: KindReference, Pointee: referent, Mutable: mutable})
}

func (r *Registry) MakeArray(element TypeId, length uint32) TypeId {
	return r.intern(Type{Kind: KindArray, Element: element, Len: length})
}

func (r *Registry) MakeTuple(elements []TypeId) TypeId {
	cp := append([]TypeId(nil), elements...)
	return r.intern(Type{Kind: KindTuple, Elements: cp})
}

func (r *Registry) MakeFunction(ret TypeId, params []TypeId, cVariadic bool) TypeId {
	cp := append([]TypeId(nil), params...)
	return r.intern(Type{Kind: KindFunction, Ret: ret, Params: cp, CVariadic: cVariadic})
}

// MakeStruct creates (or returns the existing) struct type for a qualified
// name. Fields may be empty at first and finalized later via SetFields, to
// allow self-referential pointer/reference fields (§4.2).
func (r *Registry) MakeStruct(qualifiedName string, link StructId) TypeId {
	k := key{kind: KindStruct, qualifiedName: qualifiedName}
	if id, ok := r.byKey[k]; ok {
		return id
	}
	id := TypeId(len(r.types))
	r.types = append(r.types, Type{Kind: KindStruct, QualifiedName: qualifiedName, StructLink: link})
	r.byKey[k] = id
	return id
}

// SetFields finalizes a struct type's field list after self-referential
// pointer/reference fields have had a chance to reference `id` itself.
func (r *Registry) SetFields(id TypeId, fields []TypeId) {
	t := r.types[id]
	t.Fields = append([]TypeId(nil), fields...)
	r.types[id] = t
}

func (r *Registry) MakeTrait(qualifiedName string, link TraitId) TypeId {
	k := key{kind: KindTrait, qualifiedName: qualifiedName}
	if id, ok := r.byKey[k]; ok {
		return id
	}
	id := TypeId(len(r.types))
	r.types = append(r.types, Type{Kind: KindTrait, QualifiedName: qualifiedName, TraitLink: link})
	r.byKey[k] = id
	return id
}

// IsInteger/IsFloat/IsNumeric/IsPointerLike are convenience predicates used
// throughout the checker and generator.
func (r *Registry) IsInteger(id TypeId) bool { return r.At(id).Kind == KindInt }
func (r *Registry) IsFloat(id TypeId) bool   { return r.At(id).Kind == KindFloat }
func (r *Registry) IsNumeric(id TypeId) bool { return r.IsInteger(id) || r.IsFloat(id) }
func (r *Registry) IsPointerLike(id TypeId) bool {
	k := r.At(id).Kind
	return k == KindPointer || k == KindReference
}
func (r *Registry) IsBool(id TypeId) bool {
	t := r.At(id)
	return t.Kind == KindInt && t.Bits == 1
}

// String renders a Type for diagnostics/debugging.
func (r *Registry) String(id TypeId) string {
	t := r.At(id)
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		if t.Bits == 1 {
			return "bool"
		}
		if t.Signed {
			return fmt.Sprintf("i%d", t.Bits)
		}
		return fmt.Sprintf("u%d", t.Bits)
	case KindFloat:
		return fmt.Sprintf("f%d", t.Bits)
	case KindPointer:
		if t.Mutable {
			return fmt.Sprintf("*mut %s", r.String(t.Pointee))
		}
		return fmt.Sprintf("*%s", r.String(t.Pointee))
	case KindReference:
		if t.Mutable {
			return fmt.Sprintf("&mut %s", r.String(t.Pointee))
		}
		return fmt.Sprintf("&%s", r.String(t.Pointee))
	case KindArray:
		return fmt.Sprintf("[%s;%d]", r.String(t.Element), t.Len)
	case KindTuple:
		parts := make([]string, len(t.Elements))
		for i, e := range t.Elements {
			parts[i] = r.String(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindFunction:
		parts := make([]string, len(t.Params))
		for i, e := range t.Params {
			parts[i] = r.String(e)
		}
		variadic := ""
		if t.CVariadic {
			variadic = ", ..."
		}
		return fmt.Sprintf("func(%s%s) -> %s", strings.Join(parts, ", "), variadic, r.String(t.Ret))
	case KindStruct, KindTrait:
		return t.QualifiedName
	}
	return "<?>"
}
