package container

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/cbconf/namespace"
	"github.com/ceyewan/cbconf/xerrors"
)

type fakeClient struct {
	host   string
	bucket string
}

func fakeFactory(calls *atomic.Int32) Factory[*fakeClient] {
	return func(args ...any) (*fakeClient, error) {
		calls.Add(1)
		return &fakeClient{host: args[0].(string), bucket: args[1].(string)}, nil
	}
}

func TestRegisterAndResolve(t *testing.T) {
	reg := New()
	var calls atomic.Int32

	def := namespace.BeanDefinition{
		ID:         "primary",
		Aliases:    []string{"main"},
		ClientType: "fake.Client",
		Args:       []any{"10.0.0.1", "beer"},
	}
	require.NoError(t, Register(reg, def, fakeFactory(&calls)))
	assert.Equal(t, int32(0), calls.Load(), "factory must not run at registration")

	c1, err := Resolve[*fakeClient](reg, "primary")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", c1.host)
	assert.Equal(t, "beer", c1.bucket)

	c2, err := Resolve[*fakeClient](reg, "main")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), calls.Load())

	got, ok := reg.Definition("main")
	require.True(t, ok)
	assert.Equal(t, "primary", got.ID)
	assert.Equal(t, []string{"primary"}, reg.Names())
}

func TestRegisterDuplicate(t *testing.T) {
	reg := New()
	var calls atomic.Int32

	require.NoError(t, Register(reg, namespace.BeanDefinition{ID: "a", Aliases: []string{"x"}, Args: []any{"h", "b"}}, fakeFactory(&calls)))

	tests := []struct {
		name string
		def  namespace.BeanDefinition
	}{
		{"same id", namespace.BeanDefinition{ID: "a"}},
		{"id equals alias", namespace.BeanDefinition{ID: "x"}},
		{"alias equals id", namespace.BeanDefinition{ID: "b", Aliases: []string{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Register(reg, tt.def, fakeFactory(&calls))
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, ErrDuplicateName))
		})
	}
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestRegisterSelfAlias(t *testing.T) {
	reg := New()
	var calls atomic.Int32

	def := namespace.BeanDefinition{ID: "cb", Aliases: []string{"cb", "main", "main"}, Args: []any{"h", "b"}}
	require.NoError(t, Register(reg, def, fakeFactory(&calls)))

	got, ok := reg.Definition("cb")
	require.True(t, ok)
	assert.Equal(t, []string{"main"}, got.Aliases)

	c1, err := Resolve[*fakeClient](reg, "cb")
	require.NoError(t, err)
	c2, err := Resolve[*fakeClient](reg, "main")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestWithInjector(t *testing.T) {
	injector := do.New()
	do.ProvideNamedValue(injector, "couchbase", "existing")
	do.ProvideNamedValue(injector, "legacy", "existing")

	reg := New(WithInjector(injector))
	assert.Same(t, injector, reg.Injector())
	var calls atomic.Int32

	tests := []struct {
		name string
		def  namespace.BeanDefinition
	}{
		{"id provided by injector", namespace.BeanDefinition{ID: "couchbase"}},
		{"alias provided by injector", namespace.BeanDefinition{ID: "fresh", Aliases: []string{"legacy"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				err = Register(reg, tt.def, fakeFactory(&calls))
			})
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, ErrDuplicateName))
		})
	}
	assert.Empty(t, reg.Names())

	// 注册失败不留下任何服务，名称仍可使用
	require.NoError(t, Register(reg, namespace.BeanDefinition{ID: "fresh", Args: []any{"h", "b"}}, fakeFactory(&calls)))
	c, err := Resolve[*fakeClient](reg, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "h", c.host)

	shared, err := do.InvokeNamed[*fakeClient](injector, "fresh")
	require.NoError(t, err)
	assert.Same(t, c, shared)
}

func TestRegisterInvalid(t *testing.T) {
	reg := New()

	err := Register[*fakeClient](reg, namespace.BeanDefinition{}, func(args ...any) (*fakeClient, error) { return nil, nil })
	assert.True(t, xerrors.Is(err, ErrInvalidDef))
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	err = Register[*fakeClient](reg, namespace.BeanDefinition{ID: "a"}, nil)
	assert.True(t, xerrors.Is(err, ErrInvalidDef))
}

func TestResolveNotRegistered(t *testing.T) {
	reg := New()

	_, err := Resolve[*fakeClient](reg, "missing")
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrNotRegistered))
	assert.True(t, xerrors.Is(err, xerrors.ErrNotFound))
}

func TestResolveFactoryError(t *testing.T) {
	reg := New()
	def := namespace.BeanDefinition{ID: "broken", ClientType: "fake.Client"}
	require.NoError(t, Register(reg, def, func(args ...any) (*fakeClient, error) {
		return nil, errors.New("connection refused")
	}))

	_, err := Resolve[*fakeClient](reg, "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestArgsAreCopied(t *testing.T) {
	reg := New()
	var calls atomic.Int32
	args := []any{"h1", "b1"}
	require.NoError(t, Register(reg, namespace.BeanDefinition{ID: "a", Args: args}, fakeFactory(&calls)))

	args[0] = "mutated"
	c, err := Resolve[*fakeClient](reg, "a")
	require.NoError(t, err)
	assert.Equal(t, "h1", c.host)
}
