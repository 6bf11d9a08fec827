// Package wasmtest hand-assembles small guest modules for tests.
package wasmtest

import (
	"github.com/reglet-dev/wasm-loader/internal/wasmbin"
	"github.com/tetratelabs/wazero/api"
)

// Builder accumulates the pieces of a guest module.
// Imports must be declared before any function is defined.
type Builder struct {
	imports   []imp
	funcs     []fn
	data      []segment
	types     [][2][]api.ValueType
	localMem  *uint32
	funcCount uint32
}

type imp struct {
	module, name string
	kind         byte
	typeIdx      uint32
	minPages     uint32
	maxPages     uint32
	hasMax       bool
	valType      api.ValueType
	mutable      bool
}

type fn struct {
	export  string
	typeIdx uint32
	body    []byte
}

type segment struct {
	offset int32
	bytes  []byte
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) addType(params, results []api.ValueType) uint32 {
	b.types = append(b.types, [2][]api.ValueType{params, results})
	return uint32(len(b.types) - 1) //nolint:gosec // test modules are tiny
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []api.ValueType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmtest: imports must precede function definitions")
	}
	b.imports = append(b.imports, imp{module: module, name: name, kind: wasmbin.KindFunc, typeIdx: b.addType(params, results)})
	b.funcCount++
	return b.funcCount - 1
}

// ImportMemory declares a memory import with the given minimum pages.
func (b *Builder) ImportMemory(module, name string, minPages uint32) *Builder {
	b.imports = append(b.imports, imp{module: module, name: name, kind: wasmbin.KindMemory, minPages: minPages})
	return b
}

// ImportBoundedMemory declares a memory import with both limits.
func (b *Builder) ImportBoundedMemory(module, name string, minPages, maxPages uint32) *Builder {
	b.imports = append(b.imports, imp{module: module, name: name, kind: wasmbin.KindMemory, minPages: minPages, maxPages: maxPages, hasMax: true})
	return b
}

// ImportGlobal declares a global import.
func (b *Builder) ImportGlobal(module, name string, t api.ValueType, mutable bool) *Builder {
	b.imports = append(b.imports, imp{module: module, name: name, kind: wasmbin.KindGlobal, valType: t, mutable: mutable})
	return b
}

// Memory defines and exports a local memory named "memory".
func (b *Builder) Memory(minPages uint32) *Builder {
	b.localMem = &minPages
	return b
}

// Func defines a function. A non-empty export name exports it.
// The body is the instruction sequence without the trailing end opcode.
func (b *Builder) Func(export string, params, results []api.ValueType, body ...byte) uint32 {
	b.funcs = append(b.funcs, fn{export: export, typeIdx: b.addType(params, results), body: body})
	b.funcCount++
	return b.funcCount - 1
}

// Data places bytes at a constant offset of memory 0.
func (b *Builder) Data(offset int32, bytes []byte) *Builder {
	b.data = append(b.data, segment{offset: offset, bytes: bytes})
	return b
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	out := append([]byte{}, wasmbin.Preamble...)

	if len(b.types) > 0 {
		sec := wasmbin.AppendULEB128(nil, uint32(len(b.types))) //nolint:gosec // test modules are tiny
		for _, t := range b.types {
			sec = append(sec, 0x60)
			sec = appendValTypes(sec, t[0])
			sec = appendValTypes(sec, t[1])
		}
		out = wasmbin.AppendSection(out, wasmbin.SectionType, sec)
	}

	if len(b.imports) > 0 {
		sec := wasmbin.AppendULEB128(nil, uint32(len(b.imports))) //nolint:gosec // test modules are tiny
		for _, im := range b.imports {
			sec = wasmbin.AppendName(sec, im.module)
			sec = wasmbin.AppendName(sec, im.name)
			sec = append(sec, im.kind)
			switch im.kind {
			case wasmbin.KindFunc:
				sec = wasmbin.AppendULEB128(sec, im.typeIdx)
			case wasmbin.KindMemory:
				sec = wasmbin.AppendLimits(sec, im.minPages, im.maxPages, im.hasMax)
			case wasmbin.KindGlobal:
				sec = append(sec, wasmbin.ValType(im.valType), wasmbin.Mutability(im.mutable))
			}
		}
		out = wasmbin.AppendSection(out, wasmbin.SectionImport, sec)
	}

	if len(b.funcs) > 0 {
		sec := wasmbin.AppendULEB128(nil, uint32(len(b.funcs))) //nolint:gosec // test modules are tiny
		for _, f := range b.funcs {
			sec = wasmbin.AppendULEB128(sec, f.typeIdx)
		}
		out = wasmbin.AppendSection(out, wasmbin.SectionFunction, sec)
	}

	if b.localMem != nil {
		sec := wasmbin.AppendULEB128(nil, 1)
		sec = wasmbin.AppendLimits(sec, *b.localMem, 0, false)
		out = wasmbin.AppendSection(out, wasmbin.SectionMemory, sec)
	}

	var exports []byte
	var exportCount uint32
	importedFuncs := b.funcCount - uint32(len(b.funcs)) //nolint:gosec // test modules are tiny
	for i, f := range b.funcs {
		if f.export == "" {
			continue
		}
		exports = wasmbin.AppendName(exports, f.export)
		exports = append(exports, wasmbin.KindFunc)
		exports = wasmbin.AppendULEB128(exports, importedFuncs+uint32(i)) //nolint:gosec // test modules are tiny
		exportCount++
	}
	if b.localMem != nil {
		exports = wasmbin.AppendName(exports, "memory")
		exports = append(exports, wasmbin.KindMemory, 0x00)
		exportCount++
	}
	if exportCount > 0 {
		sec := wasmbin.AppendULEB128(nil, exportCount)
		out = wasmbin.AppendSection(out, wasmbin.SectionExport, append(sec, exports...))
	}

	if len(b.funcs) > 0 {
		sec := wasmbin.AppendULEB128(nil, uint32(len(b.funcs))) //nolint:gosec // test modules are tiny
		for _, f := range b.funcs {
			body := append([]byte{0x00}, f.body...)
			body = append(body, wasmbin.OpEnd)
			sec = wasmbin.AppendULEB128(sec, uint32(len(body))) //nolint:gosec // test modules are tiny
			sec = append(sec, body...)
		}
		out = wasmbin.AppendSection(out, wasmbin.SectionCode, sec)
	}

	if len(b.data) > 0 {
		sec := wasmbin.AppendULEB128(nil, uint32(len(b.data))) //nolint:gosec // test modules are tiny
		for _, d := range b.data {
			sec = append(sec, 0x00, wasmbin.OpI32Const)
			sec = wasmbin.AppendSLEB128(sec, d.offset)
			sec = append(sec, wasmbin.OpEnd)
			sec = wasmbin.AppendULEB128(sec, uint32(len(d.bytes))) //nolint:gosec // test modules are tiny
			sec = append(sec, d.bytes...)
		}
		out = wasmbin.AppendSection(out, wasmbin.SectionData, sec)
	}

	return out
}

func appendValTypes(dst []byte, types []api.ValueType) []byte {
	dst = wasmbin.AppendULEB128(dst, uint32(len(types))) //nolint:gosec // test modules are tiny
	for _, t := range types {
		dst = append(dst, wasmbin.ValType(t))
	}
	return dst
}

// Call encodes a call to the function at idx.
func Call(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{wasmbin.OpCall}, idx)
}

// I32Const encodes an i32 constant.
func I32Const(v int32) []byte {
	return wasmbin.AppendSLEB128([]byte{wasmbin.OpI32Const}, v)
}

// LocalGet encodes a read of local idx.
func LocalGet(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{wasmbin.OpLocalGet}, idx)
}

// GlobalGet encodes a read of global idx.
func GlobalGet(idx uint32) []byte {
	return wasmbin.AppendULEB128([]byte{wasmbin.OpGlobalGet}, idx)
}

// MemoryGrow encodes memory.grow on memory 0. It consumes the page delta and
// pushes the previous size.
func MemoryGrow() []byte {
	return []byte{wasmbin.OpMemoryGrow, 0x00}
}

// Drop encodes drop.
func Drop() []byte {
	return []byte{wasmbin.OpDrop}
}

// Seq concatenates instruction encodings.
func Seq(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
