// cbconf 解析声明式的 Couchbase 连接定义并输出解析结果。
//
//	cbconf parse --xml beans.xml --output yaml
//	cbconf parse --config app --config-path ./config --key couchbase --watch
package main

import "os"

// version 由构建时 -ldflags "-X main.version=..." 注入
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
