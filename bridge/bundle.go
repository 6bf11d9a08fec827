package bridge

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

var (
	i32  = api.ValueTypeI32
	none = []api.ValueType{}
)

// Bundle is a pre-configured set of related bridge functions.
type Bundle interface {
	// Funcs returns the functions of the bundle.
	Funcs() []Func
}

type staticBundle struct {
	funcs []Func
}

func (b *staticBundle) Funcs() []Func {
	return b.funcs
}

// NewBundle groups funcs into a Bundle.
func NewBundle(funcs ...Func) Bundle {
	return &staticBundle{funcs: funcs}
}

type compositeBundle struct {
	bundles []Bundle
}

func (b *compositeBundle) Funcs() []Func {
	var result []Func
	for _, bundle := range b.bundles {
		result = append(result, bundle.Funcs()...)
	}
	return result
}

// Combine merges bundles into one.
func Combine(bundles ...Bundle) Bundle {
	return &compositeBundle{bundles: bundles}
}

// CoreBundle returns the handle management functions every bridged module
// relies on: release, string, dataview, throw, throwAndRelease, handleCount.
func CoreBundle() Bundle {
	return NewBundle(
		Func{
			Name:    "release",
			Params:  []api.ValueType{i32},
			Results: none,
			Fn: func(_ context.Context, c *Call) {
				c.Handles.Release(c.Handle(0))
			},
		},
		Func{
			Name:    "string",
			Params:  []api.ValueType{i32, i32},
			Results: []api.ValueType{i32},
			Fn: func(_ context.Context, c *Call) {
				data, err := c.Bytes(c.U32(0), c.U32(1))
				if err != nil {
					c.Throw(err)
				}
				c.SetU32(0, c.Handles.Insert(string(data)))
			},
		},
		Func{
			Name:    "dataview",
			Params:  []api.ValueType{i32, i32},
			Results: []api.ValueType{i32},
			Fn: func(_ context.Context, c *Call) {
				mem := c.Memory()
				ptr, length := c.U32(0), c.U32(1)
				if mem == nil {
					c.Throw("dataview: module has no memory")
				}
				if uint64(ptr)+uint64(length) > uint64(mem.Size()) {
					c.Throw("dataview: range out of bounds")
				}
				c.SetU32(0, c.Handles.Insert(View{Memory: mem, Offset: ptr, Length: length}))
			},
		},
		Func{
			Name:    "throw",
			Params:  []api.ValueType{i32},
			Results: none,
			Fn: func(_ context.Context, c *Call) {
				v, _ := c.Handles.Get(c.Handle(0))
				c.Throw(v)
			},
		},
		Func{
			Name:    "throwAndRelease",
			Params:  []api.ValueType{i32},
			Results: none,
			Fn: func(_ context.Context, c *Call) {
				id := c.Handle(0)
				v, _ := c.Handles.Get(id)
				c.Handles.Release(id)
				c.Throw(v)
			},
		},
		Func{
			Name:    "handleCount",
			Params:  none,
			Results: []api.ValueType{i32},
			Fn: func(_ context.Context, c *Call) {
				c.SetU32(0, uint32(c.Handles.Len())) //nolint:gosec // G115: handle count fits in 32 bits
			},
		},
	)
}
