package checker

import "github.com/blanketsucks/language-sub000/internal/types"

// CanSafelyCast implements §4.4's implicit-coercion rule `can_safely_cast`.
func CanSafelyCast(reg *types.Registry, from, to types.TypeId) bool {
	if from == to {
		return true
	}
	ft, tt := reg.At(from), reg.At(to)

	if ft.Kind == types.KindInt && tt.Kind == types.KindInt {
		if tt.Bits < ft.Bits {
			return false
		}
		if ft.Signed == tt.Signed {
			return true
		}
		// unsigned -> wider signed is allowed; signed -> unsigned, or
		// unsigned -> same-width signed, is not.
		return !ft.Signed && tt.Signed && tt.Bits > ft.Bits
	}

	if ft.Kind == types.KindFloat && tt.Kind == types.KindFloat {
		return tt.Bits >= ft.Bits
	}

	if (ft.Kind == types.KindPointer && tt.Kind == types.KindPointer) ||
		(ft.Kind == types.KindReference && tt.Kind == types.KindReference) {
		if ft.Pointee != tt.Pointee {
			return false
		}
		// immutable <- mutable is allowed; the reverse is not.
		if ft.Mutable == tt.Mutable {
			return true
		}
		return ft.Mutable && !tt.Mutable
	}

	if ft.Kind == types.KindArray && (tt.Kind == types.KindPointer || tt.Kind == types.KindReference) {
		return ft.Element == tt.Pointee
	}

	// The `null` literal, un-contextualized, checks as exactly `*void`
	// (§4.6); a bare `*void` safely-casts to any pointer, mirroring that
	// rule here rather than threading a separate "is null" flag through.
	if ft.Kind == types.KindPointer && ft.Pointee == reg.Void() && tt.Kind == types.KindPointer {
		return true
	}

	return false
}

// CanExplicitlyCast implements the wider `as` cast rule (§4.4): adds
// int<->float, pointer<->int, pointer<->pointer bitcast, and
// reference->pointer, on top of everything CanSafelyCast already allows.
// Mutability-strengthening is never permitted, even via `as`.
func CanExplicitlyCast(reg *types.Registry, from, to types.TypeId) bool {
	if CanSafelyCast(reg, from, to) {
		return true
	}
	ft, tt := reg.At(from), reg.At(to)

	if strengthensMutability(ft, tt) {
		return false
	}

	if (ft.Kind == types.KindInt && tt.Kind == types.KindFloat) ||
		(ft.Kind == types.KindFloat && tt.Kind == types.KindInt) {
		return true
	}
	if (ft.Kind == types.KindPointer && tt.Kind == types.KindInt) ||
		(ft.Kind == types.KindInt && tt.Kind == types.KindPointer) {
		return true
	}
	if ft.Kind == types.KindPointer && tt.Kind == types.KindPointer {
		return true
	}
	if ft.Kind == types.KindReference && tt.Kind == types.KindPointer {
		return true
	}
	return false
}

func strengthensMutability(ft, tt types.Type) bool {
	pointerLike := func(t types.Type) bool { return t.Kind == types.KindPointer || t.Kind == types.KindReference }
	if !pointerLike(ft) || !pointerLike(tt) {
		return false
	}
	return !ft.Mutable && tt.Mutable
}
