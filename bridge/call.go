package bridge

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Handler implements a bridge function.
type Handler func(ctx context.Context, c *Call)

// Func is a host function exported into the bridge namespace.
type Func struct {
	Fn      Handler
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Call is the state of one invocation of a bridge function.
// Parameters are read from Stack and results are written back to it.
type Call struct {
	// Module is the calling module.
	Module api.Module

	// Handles is the bridge's handle table.
	Handles *Handles

	// Stack holds parameters on entry and results on return.
	Stack []uint64

	function string
}

// Function returns the name of the invoked bridge function.
func (c *Call) Function() string {
	return c.function
}

// Memory returns the calling module's linear memory, or nil.
func (c *Call) Memory() api.Memory {
	if c.Module == nil {
		return nil
	}
	return c.Module.Memory()
}

// I32 returns parameter i as a signed 32-bit integer.
func (c *Call) I32(i int) int32 {
	return api.DecodeI32(c.Stack[i])
}

// U32 returns parameter i as an unsigned 32-bit integer.
func (c *Call) U32(i int) uint32 {
	return api.DecodeU32(c.Stack[i])
}

// F64 returns parameter i as a float64.
func (c *Call) F64(i int) float64 {
	return api.DecodeF64(c.Stack[i])
}

// Handle returns parameter i as a handle.
func (c *Call) Handle(i int) Handle {
	return c.U32(i)
}

// SetI32 sets result i.
func (c *Call) SetI32(i int, v int32) {
	c.Stack[i] = api.EncodeI32(v)
}

// SetU32 sets result i.
func (c *Call) SetU32(i int, v uint32) {
	c.Stack[i] = api.EncodeU32(v)
}

// SetF64 sets result i.
func (c *Call) SetF64(i int, v float64) {
	c.Stack[i] = api.EncodeF64(v)
}

// Bytes copies length bytes at ptr out of the calling module's memory.
func (c *Call) Bytes(ptr, length uint32) ([]byte, error) {
	mem := c.Memory()
	if mem == nil {
		return nil, fmt.Errorf("module %q has no memory", moduleName(c))
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("read of %d bytes at %#x out of range (memory size %d)", length, ptr, mem.Size())
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Throw aborts the module call with v as the thrown value.
func (c *Call) Throw(v any) {
	panic(&ThrownError{Function: c.function, Value: v})
}

// View is a live window onto linear memory. Reads observe writes made by
// the module after the view was created.
type View struct {
	Memory api.Memory
	Offset uint32
	Length uint32
}

// Bytes returns the current contents of the view without copying.
func (v View) Bytes() ([]byte, bool) {
	if v.Memory == nil {
		return nil, false
	}
	return v.Memory.Read(v.Offset, v.Length)
}
