// Package wasmbin provides the small subset of the wasm binary encoding the
// loader needs to synthesise modules and to recognise a module preamble.
package wasmbin

import (
	"bytes"

	"github.com/tetratelabs/wazero/api"
)

// Section ids.
const (
	SectionType     byte = 0x01
	SectionImport   byte = 0x02
	SectionFunction byte = 0x03
	SectionMemory   byte = 0x05
	SectionGlobal   byte = 0x06
	SectionExport   byte = 0x07
	SectionCode     byte = 0x0a
	SectionData     byte = 0x0b
)

// Import and export kinds.
const (
	KindFunc   byte = 0x00
	KindTable  byte = 0x01
	KindMemory byte = 0x02
	KindGlobal byte = 0x03
)

// Opcodes used by synthesised code.
const (
	OpEnd        byte = 0x0b
	OpCall       byte = 0x10
	OpDrop       byte = 0x1a
	OpLocalGet   byte = 0x20
	OpGlobalGet  byte = 0x23
	OpGlobalSet  byte = 0x24
	OpMemorySize byte = 0x3f
	OpMemoryGrow byte = 0x40
	OpI32Const   byte = 0x41
	OpI64Const   byte = 0x42
)

// PreambleSize is the length of the magic number plus the version.
const PreambleSize = 8

// Preamble is the magic number "\0asm" followed by binary version 1.
var Preamble = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// HasPreamble reports whether b starts with a version 1 wasm preamble.
func HasPreamble(b []byte) bool {
	return len(b) >= PreambleSize && bytes.Equal(b[:PreambleSize], Preamble)
}

// AppendULEB128 appends v in unsigned LEB128 format.
func AppendULEB128(dst []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendSLEB128 appends v in signed LEB128 format.
func AppendSLEB128[T int32 | int64](dst []byte, v T) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// AppendName appends a length-prefixed UTF-8 name.
func AppendName(dst []byte, name string) []byte {
	dst = AppendULEB128(dst, uint32(len(name))) //nolint:gosec // G115: names are short
	return append(dst, name...)
}

// AppendSection appends a section with the given id and payload.
func AppendSection(dst []byte, id byte, payload []byte) []byte {
	dst = append(dst, id)
	dst = AppendULEB128(dst, uint32(len(payload))) //nolint:gosec // G115: section sizes fit in 32 bits
	return append(dst, payload...)
}

// AppendLimits appends memory limits. A zero max leaves the limit open.
func AppendLimits(dst []byte, minPages, maxPages uint32, hasMax bool) []byte {
	if !hasMax {
		dst = append(dst, 0x00)
		return AppendULEB128(dst, minPages)
	}
	dst = append(dst, 0x01)
	dst = AppendULEB128(dst, minPages)
	return AppendULEB128(dst, maxPages)
}

// ValType converts a wazero value type to its binary encoding.
func ValType(t api.ValueType) byte {
	switch t {
	case api.ValueTypeI32:
		return 0x7f
	case api.ValueTypeI64:
		return 0x7e
	case api.ValueTypeF32:
		return 0x7d
	case api.ValueTypeF64:
		return 0x7c
	default:
		return 0x7f
	}
}

// Mutability encodes a global's mutability flag.
func Mutability(mutable bool) byte {
	if mutable {
		return 0x01
	}
	return 0x00
}
