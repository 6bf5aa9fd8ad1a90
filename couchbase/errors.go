package couchbase

import (
	"fmt"

	"github.com/ceyewan/cbconf/xerrors"
)

// CodeConfigBuild 配置构建失败的错误码
const CodeConfigBuild = "CONFIG_BUILD"

// ErrConfigBuild host 列表无法转换为连接地址
var ErrConfigBuild = xerrors.New("couchbase: could not convert host list")

// ConfigBuildError 记录导致构建失败的 token 及底层的 URI 解析错误
type ConfigBuildError struct {
	Token string
	Cause error
}

func (e *ConfigBuildError) Error() string {
	return fmt.Sprintf("%v: token %q: %v", ErrConfigBuild, e.Token, e.Cause)
}

// Is 使 errors.Is(err, ErrConfigBuild) 成立
func (e *ConfigBuildError) Is(target error) bool {
	return target == ErrConfigBuild
}

func (e *ConfigBuildError) Unwrap() error {
	return e.Cause
}
