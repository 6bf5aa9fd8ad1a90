package namespace

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/ceyewan/cbconf/clog"
	"github.com/ceyewan/cbconf/metrics"
	"github.com/ceyewan/cbconf/xerrors"
)

const (
	metricElementsParsed = "cbconf_elements_parsed_total"
	metricParseDuration  = "cbconf_document_parse_seconds"
)

// ElementParser 将一个元素转换为 BeanDefinition
type ElementParser interface {
	ParseElement(ctx context.Context, e Element) (BeanDefinition, error)
}

// ParserFunc 函数形式的 ElementParser
type ParserFunc func(ctx context.Context, e Element) (BeanDefinition, error)

// ParseElement 实现 ElementParser 接口
func (f ParserFunc) ParseElement(ctx context.Context, e Element) (BeanDefinition, error) {
	return f(ctx, e)
}

// Handler 按元素本地名称分派解析器。注册与解析均为并发安全。
type Handler struct {
	mu      sync.RWMutex
	parsers map[string]ElementParser

	logger   clog.Logger
	parsed   metrics.Counter
	duration metrics.Histogram
}

// NewHandler 创建 Handler
func NewHandler(opts ...Option) (*Handler, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	o.applyDefaults()

	parsed, err := o.meter.Counter(metricElementsParsed, "Declarative elements parsed, by element and result")
	if err != nil {
		return nil, xerrors.Wrap(err, "create parsed counter")
	}
	duration, err := o.meter.Histogram(metricParseDuration, "Time spent parsing one document", metrics.WithUnit("s"))
	if err != nil {
		return nil, xerrors.Wrap(err, "create parse duration histogram")
	}

	return &Handler{
		parsers:  make(map[string]ElementParser),
		logger:   o.logger,
		parsed:   parsed,
		duration: duration,
	}, nil
}

// Register 为元素名称注册解析器，重复注册返回 ErrDuplicateParser
func (h *Handler) Register(name string, p ElementParser) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.parsers[name]; ok {
		return xerrors.Wrapf(ErrDuplicateParser, "element %q", name)
	}
	h.parsers[name] = p
	h.logger.Debug("parser registered", clog.String("element", name))
	return nil
}

// ParseElement 解析单个元素
func (h *Handler) ParseElement(ctx context.Context, e Element) (BeanDefinition, error) {
	h.mu.RLock()
	p, ok := h.parsers[e.Name]
	h.mu.RUnlock()

	if !ok {
		h.parsed.Inc(ctx, metrics.L("element", "unknown"), metrics.L("result", "error"))
		return BeanDefinition{}, xerrors.Wrapf(ErrUnknownElement, "element %q (line %d)", e.Name, e.Line)
	}

	def, err := p.ParseElement(ctx, e)
	if err != nil {
		h.parsed.Inc(ctx, metrics.L("element", e.Name), metrics.L("result", "error"))
		errField := clog.Error(err)
		if code := xerrors.GetCode(err); code != "" {
			errField = clog.ErrorWithCode(err, code)
		}
		h.logger.ErrorContext(ctx, "failed to parse element",
			clog.String("element", e.Name), clog.Int("line", e.Line), errField)
		return BeanDefinition{}, xerrors.Wrapf(err, "parse element %q (line %d)", e.Name, e.Line)
	}

	h.parsed.Inc(ctx, metrics.L("element", e.Name), metrics.L("result", "success"))
	h.logger.DebugContext(ctx, "element parsed",
		clog.String("element", e.Name), clog.String("id", def.ID), clog.String("client_type", def.ClientType))
	return def, nil
}

// ParseElements 依次解析元素；任一元素失败或 id/别名重复时整体失败，不返回部分结果
func (h *Handler) ParseElements(ctx context.Context, elems []Element) ([]BeanDefinition, error) {
	defs := make([]BeanDefinition, 0, len(elems))
	used := make(map[string]string)

	for _, e := range elems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		def, err := h.ParseElement(ctx, e)
		if err != nil {
			return nil, err
		}

		for _, name := range def.Names() {
			if owner, ok := used[name]; ok {
				return nil, xerrors.Wrapf(ErrDuplicateName, "%q (line %d) already used by %q", name, e.Line, owner)
			}
			used[name] = def.ID
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ParseDocument 解码 XML 文档并解析根元素的所有直接子元素
func (h *Handler) ParseDocument(ctx context.Context, r io.Reader) ([]BeanDefinition, error) {
	start := time.Now()
	defer func() {
		h.duration.Record(ctx, time.Since(start).Seconds())
	}()

	elems, err := DecodeDocument(r)
	if err != nil {
		return nil, err
	}

	defs, err := h.ParseElements(ctx, elems)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "document parsed",
		clog.Int("definitions", len(defs)), clog.Duration("elapsed", time.Since(start)))
	return defs, nil
}
