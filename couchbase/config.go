package couchbase

import (
	"fmt"

	"github.com/ceyewan/cbconf/xerrors"
)

// ResolvedConfig 构造客户端所需的位置参数
type ResolvedConfig struct {
	Targets  []ConnectionTarget `json:"targets" yaml:"targets"`
	Bucket   string             `json:"bucket" yaml:"bucket"`
	Password string             `json:"-" yaml:"-"`
}

// Args 按 (targets, bucket, password) 顺序返回构造参数
func (c ResolvedConfig) Args() []any {
	return []any{c.Targets, c.Bucket, c.Password}
}

// Hosts 返回各连接地址的字符串形式
func (c ResolvedConfig) Hosts() []string {
	hosts := make([]string, len(c.Targets))
	for i, t := range c.Targets {
		hosts[i] = t.String()
	}
	return hosts
}

// ConfigFromArgs 从位置参数还原 ResolvedConfig，是 Args 的逆操作
func ConfigFromArgs(args []any) (ResolvedConfig, error) {
	if len(args) != 3 {
		return ResolvedConfig{}, xerrors.Wrapf(xerrors.ErrInvalidInput, "expected 3 constructor arguments, got %d", len(args))
	}
	targets, ok := args[0].([]ConnectionTarget)
	if !ok {
		return ResolvedConfig{}, xerrors.Wrapf(xerrors.ErrInvalidInput, "argument 0: want []ConnectionTarget, got %T", args[0])
	}
	bucket, ok := args[1].(string)
	if !ok {
		return ResolvedConfig{}, xerrors.Wrapf(xerrors.ErrInvalidInput, "argument 1: want string, got %T", args[1])
	}
	password, ok := args[2].(string)
	if !ok {
		return ResolvedConfig{}, xerrors.Wrapf(xerrors.ErrInvalidInput, "argument 2: want string, got %T", args[2])
	}
	return ResolvedConfig{Targets: targets, Bucket: bucket, Password: password}, nil
}

// String 不输出密码
func (c ResolvedConfig) String() string {
	return fmt.Sprintf("couchbase{targets=%v bucket=%s}", c.Hosts(), c.Bucket)
}

// BuildConfig 从元素属性构建 ResolvedConfig，各字段独立取默认值。
//
// host 中任一节点无法构成合法 URI 时返回错误码为 CONFIG_BUILD 的错误，
// 且 errors.Is(err, ErrConfigBuild) 成立。
func BuildConfig(e Attributes) (ResolvedConfig, error) {
	targets, err := ConvertHosts(orDefault(e.Attr(AttrHost), DefaultNode))
	if err != nil {
		return ResolvedConfig{}, xerrors.WithCode(err, CodeConfigBuild)
	}

	return ResolvedConfig{
		Targets:  targets,
		Bucket:   orDefault(e.Attr(AttrBucket), DefaultBucket),
		Password: orDefault(e.Attr(AttrPassword), DefaultPassword),
	}, nil
}

// ResolveID 返回 contextID（非空白时原样返回），否则返回 DefaultID
func ResolveID(_ Attributes, contextID string) string {
	return orDefault(contextID, DefaultID)
}
