// Package couchbase 解析 Couchbase 连接的声明式配置元素。
//
// 元素带有可选的 host、bucket、password 属性，缺失或空白时使用默认值；
// host 是逗号分隔的节点列表，每个节点被转换为一个 http://<node>:8091/pools 形式的
// ConnectionTarget。结果 ResolvedConfig 以 (targets, bucket, password) 的位置参数
// 交给容器，由外部提供的客户端工厂在首次解析时实例化。
//
// 纯函数部分（ResolveID、BuildConfig、ConvertHosts）不依赖容器：
//
//	cfg, err := couchbase.BuildConfig(couchbase.Attrs{"host": "10.0.0.1,10.0.0.2"})
//	if err != nil {
//		return err // errors.Is(err, couchbase.ErrConfigBuild)
//	}
//	// cfg.Targets: [http://10.0.0.1:8091/pools http://10.0.0.2:8091/pools]
//	// cfg.Bucket:  "default"
package couchbase

import "strings"

// 默认值
const (
	DefaultNode     = "127.0.0.1"
	DefaultBucket   = "default"
	DefaultPassword = ""

	// DefaultID 未指定 id 时定义注册使用的名称
	DefaultID = "couchbase"

	// ElementName 声明式元素的本地名称，即 <couchbase:couchbase/>
	ElementName = "couchbase"

	// ClientType 定义所描述的客户端类型
	ClientType = "couchbase.Client"
)

// 元素属性名
const (
	AttrHost     = "host"
	AttrBucket   = "bucket"
	AttrPassword = "password"
)

// Attributes 声明式元素的属性视图，缺失的属性返回空字符串。
type Attributes interface {
	Attr(name string) string
}

// Attrs 基于 map 的 Attributes 实现
type Attrs map[string]string

// Attr 实现 Attributes 接口
func (a Attrs) Attr(name string) string {
	return a[name]
}

// hasText 报告 s 是否包含非空白字符
func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// orDefault 在 s 为空白时返回 def，否则原样返回 s
func orDefault(s, def string) string {
	if hasText(s) {
		return s
	}
	return def
}
