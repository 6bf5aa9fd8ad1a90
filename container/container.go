// Package container 将 namespace.BeanDefinition 注册到 samber/do 注入器。
//
// 注册只记录定义与工厂，工厂在第一次 Resolve 时执行，结果作为单例缓存：
//
//	reg := container.New(container.WithLogger(logger))
//	err := container.Register(reg, def, func(args ...any) (*Client, error) {
//		return newClient(args...)
//	})
//	client, err := container.Resolve[*Client](reg, "couchbase")
package container

import (
	"slices"
	"sync"

	"github.com/samber/do/v2"

	"github.com/ceyewan/cbconf/clog"
	"github.com/ceyewan/cbconf/namespace"
	"github.com/ceyewan/cbconf/xerrors"
)

var (
	ErrDuplicateName = xerrors.New("container: name already registered")
	ErrNotRegistered = xerrors.Wrap(xerrors.ErrNotFound, "container: no definition registered")
	ErrInvalidDef    = xerrors.Wrap(xerrors.ErrInvalidInput, "container: invalid definition")
)

// Factory 按定义中的位置参数构造实例
type Factory[T any] func(args ...any) (T, error)

// Registry 持有定义及其底层注入器
type Registry struct {
	injector do.Injector
	logger   clog.Logger

	mu    sync.RWMutex
	defs  map[string]namespace.BeanDefinition // id 与别名 -> 定义
	order []string                            // 按注册顺序的 id
}

// Option 配置 Registry
type Option func(*Registry)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger.WithNamespace("container")
		}
	}
}

// WithInjector 使用已有的注入器，便于与应用其他依赖共享作用域
func WithInjector(injector do.Injector) Option {
	return func(r *Registry) {
		if injector != nil {
			r.injector = injector
		}
	}
}

// New 创建 Registry
func New(opts ...Option) *Registry {
	r := &Registry{
		logger: clog.Discard(),
		defs:   make(map[string]namespace.BeanDefinition),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.injector == nil {
		r.injector = do.New()
	}
	return r
}

// Injector 返回底层注入器
func (r *Registry) Injector() do.Injector {
	return r.injector
}

// Register 以 def.ID 及其别名注册延迟构造的单例。
//
// 名称已被本 Registry 或底层注入器占用时返回 ErrDuplicateName，注册不产生任何副作用。
// 与 ID 相同的别名被忽略。
func Register[T any](r *Registry, def namespace.BeanDefinition, factory Factory[T]) error {
	if def.ID == "" {
		return xerrors.Wrap(ErrInvalidDef, "empty id")
	}
	if factory == nil {
		return xerrors.Wrapf(ErrInvalidDef, "nil factory for %q", def.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := def.Names()
	provided := r.providedNames()
	for _, name := range names {
		if _, ok := r.defs[name]; ok {
			return xerrors.Wrapf(ErrDuplicateName, "%q", name)
		}
		if provided[name] {
			return xerrors.Wrapf(ErrDuplicateName, "%q already provided by injector", name)
		}
	}
	def.Aliases = names[1:]

	args := slices.Clone(def.Args)
	logger := r.logger.With(clog.String("id", def.ID), clog.String("client_type", def.ClientType))

	do.ProvideNamed(r.injector, def.ID, func(do.Injector) (T, error) {
		logger.Info("constructing instance")
		v, err := factory(args...)
		if err != nil {
			logger.Error("failed to construct instance", clog.Error(err))
			return v, xerrors.Wrapf(err, "construct %s %q", def.ClientType, def.ID)
		}
		return v, nil
	})
	for _, alias := range def.Aliases {
		id := def.ID
		do.ProvideNamed(r.injector, alias, func(i do.Injector) (T, error) {
			return do.InvokeNamed[T](i, id)
		})
	}

	for _, name := range names {
		r.defs[name] = def
	}
	r.order = append(r.order, def.ID)
	logger.Debug("definition registered", clog.Strings("aliases", def.Aliases))
	return nil
}

// providedNames 返回注入器中可见的服务名，包括祖先作用域。
// samber/do 对重复名称直接 panic，需在注册前检查。
func (r *Registry) providedNames() map[string]bool {
	services := r.injector.ListProvidedServices()
	names := make(map[string]bool, len(services))
	for _, svc := range services {
		names[svc.Service] = true
	}
	return names
}

// Resolve 按 id 或别名获取实例，首次调用时执行工厂
func Resolve[T any](r *Registry, name string) (T, error) {
	var zero T

	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return zero, xerrors.Wrapf(ErrNotRegistered, "%q", name)
	}

	v, err := do.InvokeNamed[T](r.injector, def.ID)
	if err != nil {
		return zero, xerrors.Wrapf(err, "resolve %q", name)
	}
	return v, nil
}

// Definition 按 id 或别名查找定义
func (r *Registry) Definition(name string) (namespace.BeanDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names 按注册顺序返回所有定义的 id
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
