package namespace

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ceyewan/cbconf/config"
	"github.com/ceyewan/cbconf/xerrors"
)

// DecodeDocument 读取 XML 文档，返回根元素的直接子元素。
//
// 更深层的元素被忽略；命名空间声明和带前缀的属性不计入 Attrs。
func DecodeDocument(r io.Reader) ([]Element, error) {
	dec := xml.NewDecoder(r)

	var (
		elems   []Element
		depth   int
		hasRoot bool
	)
	for {
		// 起始标签可能跨越多行，行号取标签开始处
		line, _ := dec.InputPos()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				hasRoot = true
			}
			if depth == 2 {
				elems = append(elems, newElement(t, line))
			}
		case xml.EndElement:
			depth--
		}
	}

	if !hasRoot {
		return nil, xerrors.Wrap(ErrMalformedDocument, "document has no root element")
	}
	return elems, nil
}

func newElement(t xml.StartElement, line int) Element {
	attrs := make(map[string]string, len(t.Attr))
	for _, a := range t.Attr {
		if a.Name.Space != "" || a.Name.Local == "xmlns" {
			continue
		}
		attrs[a.Name.Local] = a.Value
	}
	return Element{
		Space: t.Name.Space,
		Name:  t.Name.Local,
		Attrs: attrs,
		Line:  line,
	}
}

// ElementsFromConfig 将配置项 key 下的列表读取为元素，元素名称取 key 的最后一段。
//
//	couchbase:
//	  - id: primary
//	    host: "10.0.0.1,10.0.0.2"
func ElementsFromConfig(loader config.Loader, key string) ([]Element, error) {
	var raw []map[string]string
	if err := loader.UnmarshalKey(key, &raw); err != nil {
		return nil, xerrors.Wrapf(err, "read elements %q", key)
	}

	name := key[strings.LastIndex(key, ".")+1:]
	elems := make([]Element, 0, len(raw))
	for _, attrs := range raw {
		if attrs == nil {
			attrs = map[string]string{}
		}
		elems = append(elems, Element{Name: name, Attrs: attrs})
	}
	return elems, nil
}
