package couchbase

import (
	"context"

	"github.com/ceyewan/cbconf/clog"
	"github.com/ceyewan/cbconf/container"
	"github.com/ceyewan/cbconf/namespace"
	"github.com/ceyewan/cbconf/xerrors"
)

// Parser 将 <couchbase:couchbase/> 元素转换为 namespace.BeanDefinition
type Parser struct {
	logger clog.Logger
}

// NewParser 创建 Parser
func NewParser(opts ...Option) *Parser {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return &Parser{logger: o.logger}
}

// ParseElement 实现 namespace.ElementParser 接口
func (p *Parser) ParseElement(ctx context.Context, e namespace.Element) (namespace.BeanDefinition, error) {
	id := ResolveID(e, e.ID())

	cfg, err := BuildConfig(e)
	if err != nil {
		return namespace.BeanDefinition{}, err
	}

	p.logger.DebugContext(ctx, "couchbase definition resolved",
		clog.String("id", id),
		clog.Strings("targets", cfg.Hosts()),
		clog.String("bucket", cfg.Bucket),
	)

	def := namespace.BeanDefinition{
		ID:         id,
		Aliases:    e.Aliases(),
		ClientType: ClientType,
		Element:    e.Name,
		Args:       cfg.Args(),
	}
	// 与 id 相同的别名直接丢弃
	def.Aliases = def.Names()[1:]
	return def, nil
}

// Provide 将定义注册到容器，factory 在首次 Resolve 时以还原出的 ResolvedConfig 调用
func Provide[T any](r *container.Registry, def namespace.BeanDefinition, factory func(ResolvedConfig) (T, error)) error {
	if factory == nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "nil factory for %q", def.ID)
	}
	if _, err := ConfigFromArgs(def.Args); err != nil {
		return xerrors.Wrapf(err, "definition %q", def.ID)
	}
	return container.Register(r, def, func(args ...any) (T, error) {
		cfg, err := ConfigFromArgs(args)
		if err != nil {
			var zero T
			return zero, err
		}
		return factory(cfg)
	})
}
