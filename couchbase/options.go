package couchbase

import "github.com/ceyewan/cbconf/clog"

type options struct {
	logger clog.Logger
}

// Option 配置 Parser
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("couchbase")
		}
	}
}
