// Package namespace 处理声明式配置文档：把文档中的元素分派给按名称注册的
// ElementParser，得到一组 BeanDefinition，交由容器延迟实例化。
//
// 元素来源可以是 XML 文档，也可以是 config.Loader 中的一个列表配置项：
//
//	h, _ := namespace.NewHandler(namespace.WithLogger(logger))
//	_ = h.Register(couchbase.ElementName, couchbase.NewParser())
//	defs, err := h.ParseDocument(ctx, file)
package namespace

import (
	"slices"
	"strings"
)

// 通用属性名
const (
	AttrID   = "id"
	AttrName = "name"
)

// Element 一个声明式元素
type Element struct {
	Space string            // 命名空间 URI，可为空
	Name  string            // 本地名称
	Attrs map[string]string // 属性，缺失即不存在
	Line  int               // 在源文档中的行号，未知为 0
}

// Attr 返回属性值，缺失时返回空字符串
func (e Element) Attr(name string) string {
	return e.Attrs[name]
}

// ID 返回 id 属性
func (e Element) ID() string {
	return e.Attrs[AttrID]
}

// Aliases 返回 name 属性声明的别名，以逗号、分号或空白分隔
func (e Element) Aliases() []string {
	return strings.FieldsFunc(e.Attrs[AttrName], func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// BeanDefinition 延迟实例化的定义：以 ID 及别名注册，构造时按顺序传入 Args
type BeanDefinition struct {
	ID         string   `json:"id" yaml:"id"`
	Aliases    []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	ClientType string   `json:"client_type" yaml:"client_type"`
	Element    string   `json:"element" yaml:"element"`
	Args       []any    `json:"args" yaml:"args"`
}

// Names 返回 ID 及所有别名。与 ID 相同的别名和重复的别名被忽略。
func (d BeanDefinition) Names() []string {
	names := make([]string, 0, len(d.Aliases)+1)
	names = append(names, d.ID)
	for _, alias := range d.Aliases {
		if !slices.Contains(names, alias) {
			names = append(names, alias)
		}
	}
	return names
}
