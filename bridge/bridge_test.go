package bridge

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
)

func noop(context.Context, *Call) {}

// recoverThrown runs fn and returns the ThrownError it panicked with.
func recoverThrown(t *testing.T, fn func()) (thrown *ThrownError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		var ok bool
		thrown, ok = r.(*ThrownError)
		require.True(t, ok, "panic value %T is not *ThrownError", r)
	}()
	fn()
	return nil
}

func TestNew_Defaults(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	assert.Equal(t, "zjb", b.Namespace())
	assert.Empty(t, b.Names())
	assert.Nil(t, b.Instance())
}

func TestNew_Names(t *testing.T) {
	b, err := New(
		WithFunc(Func{Name: "zeta", Fn: noop}),
		WithFunc(Func{Name: "alpha", Fn: noop}),
		WithBundle(NewBundle(Func{Name: "mid", Fn: noop})),
	)
	require.NoError(t, err)

	names := b.Names()
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
	assert.True(t, b.Has("mid"))
	assert.False(t, b.Has("missing"))

	// Names returns a copy.
	names[0] = "changed"
	assert.Equal(t, "alpha", b.Names()[0])
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{
			name:    "duplicate",
			opts:    []Option{WithFunc(Func{Name: "log", Fn: noop}), WithFunc(Func{Name: "log", Fn: noop})},
			wantErr: `duplicate bridge function name: "log"`,
		},
		{
			name:    "duplicate across bundles",
			opts:    []Option{WithBundle(CoreBundle()), WithBundle(CoreBundle())},
			wantErr: "duplicate bridge function name",
		},
		{
			name:    "empty name",
			opts:    []Option{WithFunc(Func{Fn: noop})},
			wantErr: "name cannot be empty",
		},
		{
			name:    "nil implementation",
			opts:    []Option{WithFunc(Func{Name: "x"})},
			wantErr: `"x" has no implementation`,
		},
		{
			name:    "empty namespace",
			opts:    []Option{WithNamespace("")},
			wantErr: "namespace cannot be empty",
		},
		{
			name:    "env namespace",
			opts:    []Option{WithNamespace("env")},
			wantErr: `"env" is reserved`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCombine(t *testing.T) {
	b, err := New(WithBundle(Combine(CoreBundle(), ConsoleBundle(nil))))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"dataview", "handleCount", "log", "log_message", "release", "string", "throw", "throwAndRelease",
	}, b.Names())
}

func TestMiddleware_Order(t *testing.T) {
	var order []string
	mw := func(label string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, c *Call) {
				order = append(order, label+">")
				next(ctx, c)
				order = append(order, "<"+label)
			}
		}
	}

	b, err := New(
		WithFunc(Func{Name: "f", Fn: func(context.Context, *Call) { order = append(order, "f") }}),
		WithMiddleware(mw("a"), mw("b")),
		WithMiddleware(mw("c")),
	)
	require.NoError(t, err)

	b.Invoke(context.Background(), "f", nil, nil)
	assert.Equal(t, []string{"a>", "b>", "c>", "f", "<c", "<b", "<a"}, order)
}

func TestInvoke_FunctionName(t *testing.T) {
	var got string
	var fromCall string
	b, err := New(WithFunc(Func{Name: "who", Fn: func(ctx context.Context, c *Call) {
		got, _ = FunctionName(ctx)
		fromCall = c.Function()
	}}))
	require.NoError(t, err)

	b.Invoke(context.Background(), "who", nil, nil)
	assert.Equal(t, "who", got)
	assert.Equal(t, "who", fromCall)

	_, ok := FunctionName(context.Background())
	assert.False(t, ok)
}

func TestInvoke_Unknown(t *testing.T) {
	b, err := New()
	require.NoError(t, err)

	thrown := recoverThrown(t, func() { b.Invoke(context.Background(), "nope", nil, nil) })
	assert.Equal(t, "nope", thrown.Function)
	assert.ErrorContains(t, thrown, `unknown bridge function "nope"`)
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	b, err := New(
		WithMiddleware(PanicRecoveryMiddleware(logger)),
		WithFunc(Func{Name: "crash", Fn: func(context.Context, *Call) { panic(42) }}),
		WithFunc(Func{Name: "throws", Fn: func(_ context.Context, c *Call) { c.Throw("deliberate") }}),
	)
	require.NoError(t, err)

	thrown := recoverThrown(t, func() { b.Invoke(context.Background(), "crash", nil, nil) })
	assert.Equal(t, "crash", thrown.Function)
	assert.Equal(t, "panic: 42", thrown.Value)
	assert.Contains(t, logs.String(), "recovered panic")

	logs.Reset()
	thrown = recoverThrown(t, func() { b.Invoke(context.Background(), "throws", nil, nil) })
	assert.Equal(t, "deliberate", thrown.Value)
	assert.Empty(t, logs.String(), "thrown values are not logged as panics")
}

func TestLoggingMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b, err := New(
		WithMiddleware(LoggingMiddleware(logger)),
		WithFunc(Func{Name: "f", Fn: noop}),
	)
	require.NoError(t, err)

	b.Invoke(context.Background(), "f", nil, nil)
	assert.Contains(t, logs.String(), "function=f")
}

func TestSetInstance_Nil(t *testing.T) {
	b, err := New()
	require.NoError(t, err)
	assert.ErrorIs(t, b.SetInstance(nil), ErrNilInstance)
	assert.Nil(t, b.Instance())
}

func TestCoreBundle_HandleLifecycle(t *testing.T) {
	b, err := New(WithBundle(CoreBundle()))
	require.NoError(t, err)
	ctx := context.Background()

	count := func() uint32 {
		stack := make([]uint64, 1)
		b.Invoke(ctx, "handleCount", nil, stack)
		return api.DecodeU32(stack[0])
	}

	assert.Equal(t, uint32(0), count())
	h := b.Handles().Insert("value")
	assert.Equal(t, uint32(1), count())

	b.Invoke(ctx, "release", nil, []uint64{api.EncodeU32(h)})
	assert.Equal(t, uint32(0), count())

	// Releasing reserved handles is a no-op.
	b.Invoke(ctx, "release", nil, []uint64{api.EncodeU32(HandleGlobal)})
	_, ok := b.Handles().Get(HandleGlobal)
	assert.True(t, ok)
}

func TestCoreBundle_Throw(t *testing.T) {
	b, err := New(WithBundle(CoreBundle()))
	require.NoError(t, err)
	ctx := context.Background()

	h := b.Handles().Insert("kept")
	thrown := recoverThrown(t, func() { b.Invoke(ctx, "throw", nil, []uint64{api.EncodeU32(h)}) })
	assert.Equal(t, "kept", thrown.Value)
	assert.Equal(t, "throw", thrown.Function)
	_, ok := b.Handles().Get(h)
	assert.True(t, ok, "throw keeps the handle")

	thrown = recoverThrown(t, func() { b.Invoke(ctx, "throwAndRelease", nil, []uint64{api.EncodeU32(h)}) })
	assert.Equal(t, "kept", thrown.Value)
	_, ok = b.Handles().Get(h)
	assert.False(t, ok, "throwAndRelease drops the handle")
}

func TestCoreBundle_StringWithoutMemory(t *testing.T) {
	b, err := New(WithBundle(CoreBundle()))
	require.NoError(t, err)

	thrown := recoverThrown(t, func() {
		b.Invoke(context.Background(), "string", nil, []uint64{0, 4})
	})
	assert.ErrorContains(t, thrown, "has no memory")
}

func TestWithGlobal(t *testing.T) {
	b, err := New(WithGlobal("answer", 42))
	require.NoError(t, err)

	v, ok := b.Handles().Get(HandleGlobal)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"answer": 42}, v)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "null", describe(nil))
	assert.Equal(t, "text", describe("text"))
	assert.Equal(t, "42", describe(42))
	assert.Equal(t, "<detached view>", describe(View{}))
}

func TestThrownError(t *testing.T) {
	base := context.Canceled
	err := &ThrownError{Function: "f", Value: base}
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "bridge f threw: context canceled", err.Error())

	plain := &ThrownError{Function: "f", Value: "str"}
	assert.NoError(t, plain.Unwrap())
	assert.Equal(t, "bridge", plain.ToErrorDetail().Type)
}
