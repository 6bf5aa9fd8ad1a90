package namespace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/cbconf/config"
	"github.com/ceyewan/cbconf/testkit"
	"github.com/ceyewan/cbconf/xerrors"
)

func TestDecodeDocument(t *testing.T) {
	doc := `<beans xmlns:couchbase="http://www.springframework.org/schema/data/couchbase">
  <couchbase:couchbase id="cb" host="a,b" bucket="beer" password=""/>
  <couchbase:couchbase>
    <nested host="ignored"/>
  </couchbase:couchbase>
</beans>`

	elems, err := DecodeDocument(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, elems, 2)

	first := elems[0]
	assert.Equal(t, "couchbase", first.Name)
	assert.Equal(t, "http://www.springframework.org/schema/data/couchbase", first.Space)
	assert.Equal(t, map[string]string{"id": "cb", "host": "a,b", "bucket": "beer", "password": ""}, first.Attrs)
	assert.Equal(t, 2, first.Line)

	assert.Empty(t, elems[1].Attrs)
	assert.Equal(t, "", elems[1].Attr("host"))
}

func TestDecodeDocumentMultilineStartTag(t *testing.T) {
	doc := `<beans>
  <couchbase
      id="cb"
      host="a,b"/>
  <couchbase id="second"/>
</beans>`

	elems, err := DecodeDocument(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.Equal(t, 2, elems[0].Line)
	assert.Equal(t, 5, elems[1].Line)
}

func TestDecodeDocumentMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unclosed", `<beans><couchbase host="a">`},
		{"mismatched", `<beans></couchbase>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDocument(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, xerrors.Is(err, ErrMalformedDocument), "got %v", err)
		})
	}
}

func TestElementAliases(t *testing.T) {
	e := Element{Attrs: map[string]string{"name": "a,b; c\td"}}
	assert.Equal(t, []string{"a", "b", "c", "d"}, e.Aliases())
	assert.Empty(t, Element{}.Aliases())
}

func TestBeanDefinitionNames(t *testing.T) {
	tests := []struct {
		name string
		def  BeanDefinition
		want []string
	}{
		{"no aliases", BeanDefinition{ID: "cb"}, []string{"cb"}},
		{"aliases kept in order", BeanDefinition{ID: "cb", Aliases: []string{"b", "a"}}, []string{"cb", "b", "a"}},
		{"alias equal to id dropped", BeanDefinition{ID: "cb", Aliases: []string{"cb", "main"}}, []string{"cb", "main"}},
		{"repeated alias collapsed", BeanDefinition{ID: "cb", Aliases: []string{"x", "x"}}, []string{"cb", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.def.Names())
		})
	}
}

func TestElementsFromConfig(t *testing.T) {
	loader := testkit.LoadConfig(t, "beans", `
datastores:
  couchbase:
    - id: replica
couchbase:
  - id: primary
    host: "10.0.0.1,10.0.0.2"
    bucket: beer-sample
  - password: secret
`)

	elems, err := ElementsFromConfig(loader, "couchbase")
	require.NoError(t, err)
	require.Len(t, elems, 2)
	assert.Equal(t, "couchbase", elems[0].Name)
	assert.Equal(t, "primary", elems[0].ID())
	assert.Equal(t, "10.0.0.1,10.0.0.2", elems[0].Attr("host"))
	assert.Equal(t, "secret", elems[1].Attr("password"))
	assert.Equal(t, "", elems[1].ID())

	nested, err := ElementsFromConfig(loader, "datastores.couchbase")
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "couchbase", nested[0].Name)
	assert.Equal(t, "replica", nested[0].ID())

	_, err = ElementsFromConfig(loader, "memcached")
	require.Error(t, err)
	assert.True(t, config.IsNotFound(err))
}
