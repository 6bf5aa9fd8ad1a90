package couchbase

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/cbconf/container"
	"github.com/ceyewan/cbconf/namespace"
	"github.com/ceyewan/cbconf/testkit"
	"github.com/ceyewan/cbconf/xerrors"
)

const beansXML = `<?xml version="1.0" encoding="UTF-8"?>
<beans xmlns="http://www.springframework.org/schema/beans"
       xmlns:couchbase="http://www.springframework.org/schema/data/couchbase">
  <couchbase:couchbase/>
  <couchbase:couchbase id="travel" name="trips, journeys" host="cb1,cb2" bucket="travel-sample" password="pw"/>
</beans>`

// client 模拟外部提供的客户端
type client struct {
	hosts    []string
	bucket   string
	password string
}

func newHandler(t *testing.T) *namespace.Handler {
	t.Helper()
	kit := testkit.NewKit(t)
	h, err := namespace.NewHandler(namespace.WithLogger(kit.Logger), namespace.WithMeter(kit.Meter))
	require.NoError(t, err)
	require.NoError(t, h.Register(ElementName, NewParser(WithLogger(kit.Logger))))
	return h
}

func TestParserParseElement(t *testing.T) {
	p := NewParser()

	def, err := p.ParseElement(context.Background(), namespace.Element{
		Name:  ElementName,
		Attrs: map[string]string{"host": "10.0.0.1", "name": "cb"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultID, def.ID)
	assert.Equal(t, []string{"cb"}, def.Aliases)
	assert.Equal(t, ClientType, def.ClientType)
	assert.Equal(t, ElementName, def.Element)

	cfg, err := ConfigFromArgs(def.Args)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://10.0.0.1:8091/pools"}, cfg.Hosts())
	assert.Equal(t, DefaultBucket, cfg.Bucket)
}

func TestParserParseElementSelfAlias(t *testing.T) {
	h := newHandler(t)
	doc := `<beans>
  <couchbase id="cb" name="cb, primary"/>
  <couchbase name="couchbase"/>
</beans>`

	defs, err := h.ParseDocument(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, []string{"primary"}, defs[0].Aliases)
	assert.Equal(t, DefaultID, defs[1].ID)
	assert.Empty(t, defs[1].Aliases)
}

func TestParserParseElementInvalidHost(t *testing.T) {
	p := NewParser()

	def, err := p.ParseElement(context.Background(), namespace.Element{
		Name:  ElementName,
		Attrs: map[string]string{"host": "a, b"},
	})
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrConfigBuild))
	assert.Empty(t, def.ID)
}

func TestParseDocument(t *testing.T) {
	h := newHandler(t)

	defs, err := h.ParseDocument(context.Background(), strings.NewReader(beansXML))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, DefaultID, defs[0].ID)
	assert.Equal(t, "travel", defs[1].ID)
	assert.Equal(t, []string{"trips", "journeys"}, defs[1].Aliases)

	cfg, err := ConfigFromArgs(defs[1].Args)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://cb1:8091/pools", "http://cb2:8091/pools"}, cfg.Hosts())
	assert.Equal(t, "travel-sample", cfg.Bucket)
	assert.Equal(t, "pw", cfg.Password)
}

func TestParseDocumentInvalidHost(t *testing.T) {
	h := newHandler(t)
	doc := `<beans><couchbase host="a, b"/></beans>`

	defs, err := h.ParseDocument(context.Background(), strings.NewReader(doc))
	require.Error(t, err)
	assert.Nil(t, defs)
	assert.True(t, xerrors.Is(err, ErrConfigBuild))
	assert.Equal(t, CodeConfigBuild, xerrors.GetCode(err))
}

func TestProvide(t *testing.T) {
	h := newHandler(t)
	defs, err := h.ParseDocument(context.Background(), strings.NewReader(beansXML))
	require.NoError(t, err)

	reg := container.New(container.WithLogger(testkit.NewLogger()))
	var built atomic.Int32
	factory := func(cfg ResolvedConfig) (*client, error) {
		built.Add(1)
		return &client{hosts: cfg.Hosts(), bucket: cfg.Bucket, password: cfg.Password}, nil
	}
	for _, def := range defs {
		require.NoError(t, Provide(reg, def, factory))
	}
	assert.Equal(t, []string{DefaultID, "travel"}, reg.Names())
	assert.Equal(t, int32(0), built.Load())

	c, err := container.Resolve[*client](reg, "journeys")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://cb1:8091/pools", "http://cb2:8091/pools"}, c.hosts)
	assert.Equal(t, "travel-sample", c.bucket)
	assert.Equal(t, "pw", c.password)

	same, err := container.Resolve[*client](reg, "travel")
	require.NoError(t, err)
	assert.Same(t, c, same)
	assert.Equal(t, int32(1), built.Load())

	def, err := container.Resolve[*client](reg, DefaultID)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://127.0.0.1:8091/pools"}, def.hosts)
	assert.Equal(t, DefaultBucket, def.bucket)
}

func TestProvideInvalid(t *testing.T) {
	reg := container.New()
	factory := func(cfg ResolvedConfig) (*client, error) { return &client{}, nil }

	err := Provide(reg, namespace.BeanDefinition{ID: "x", Args: []any{"not", "a", "config"}}, factory)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	err = Provide[*client](reg, namespace.BeanDefinition{ID: "y"}, nil)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	assert.Empty(t, reg.Names())
}

func TestParseElementsFromConfig(t *testing.T) {
	loader := testkit.LoadConfig(t, "app", `
storage:
  couchbase:
    - id: sessions
      host: "10.0.0.1,10.0.0.2"
      bucket: sessions
    - name: "fallback"
`)
	elems, err := namespace.ElementsFromConfig(loader, "storage.couchbase")
	require.NoError(t, err)

	defs, err := newHandler(t).ParseElements(testkit.NewContext(t, 5*time.Second), elems)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "sessions", defs[0].ID)
	assert.Equal(t, DefaultID, defs[1].ID)
	assert.Equal(t, []string{"fallback"}, defs[1].Aliases)

	cfg, err := ConfigFromArgs(defs[0].Args)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://10.0.0.1:8091/pools", "http://10.0.0.2:8091/pools"}, cfg.Hosts())
	assert.Equal(t, "sessions", cfg.Bucket)
}
