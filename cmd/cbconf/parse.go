package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ceyewan/cbconf/clog"
	"github.com/ceyewan/cbconf/config"
	"github.com/ceyewan/cbconf/container"
	"github.com/ceyewan/cbconf/couchbase"
	"github.com/ceyewan/cbconf/metrics"
	"github.com/ceyewan/cbconf/namespace"
	"github.com/ceyewan/cbconf/xerrors"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var errInvalidFlags = xerrors.Wrap(xerrors.ErrInvalidInput, "invalid flags")

type parseOptions struct {
	xmlFile     string
	configName  string
	configPaths []string
	envPrefix   string
	key         string
	output      string
	watch       bool
	metricsPort int
}

func (o *parseOptions) validate() error {
	if o.xmlFile == "" && o.configName == "" {
		return xerrors.Wrap(errInvalidFlags, "one of --xml or --config is required")
	}
	if o.xmlFile != "" && o.configName != "" {
		return xerrors.Wrap(errInvalidFlags, "--xml and --config are mutually exclusive")
	}
	if o.output != outputJSON && o.output != outputYAML {
		return xerrors.Wrapf(errInvalidFlags, "unsupported output %q", o.output)
	}
	if o.key == "" {
		return xerrors.Wrap(errInvalidFlags, "--key must not be empty")
	}
	return nil
}

func newParseCmd(root *rootOptions) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse couchbase definitions from an XML document or a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			logger, err := root.newLogger()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runParse(ctx, opts, cmd.OutOrStdout(), logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.xmlFile, "xml", "", "XML document containing <couchbase:couchbase/> elements")
	f.StringVar(&opts.configName, "config", "", "config file name without extension")
	f.StringSliceVar(&opts.configPaths, "config-path", []string{".", "./config"}, "directories searched for the config file")
	f.StringVar(&opts.envPrefix, "env-prefix", "CBCONF", "environment variable prefix for config overrides")
	f.StringVar(&opts.key, "key", couchbase.ElementName, "config key holding the list of definitions")
	f.StringVarP(&opts.output, "output", "o", outputYAML, "output format: json, yaml")
	f.BoolVar(&opts.watch, "watch", false, "re-parse and print whenever the source changes")
	f.IntVar(&opts.metricsPort, "metrics-port", 0, "expose Prometheus metrics on this port (0 disables)")
	return cmd
}

// definitionView 输出用的定义视图，不包含密码
type definitionView struct {
	ID          string   `json:"id" yaml:"id"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	ClientType  string   `json:"client_type" yaml:"client_type"`
	Targets     []string `json:"targets" yaml:"targets"`
	Bucket      string   `json:"bucket" yaml:"bucket"`
	PasswordSet bool     `json:"password_set" yaml:"password_set"`
}

type parser struct {
	opts    *parseOptions
	handler *namespace.Handler
	logger  clog.Logger
	loader  config.Loader
}

func runParse(ctx context.Context, opts *parseOptions, out io.Writer, logger clog.Logger) error {
	meter := metrics.Discard()
	if opts.metricsPort > 0 {
		m, err := metrics.New(&metrics.Config{
			Enabled:     true,
			ServiceName: "cbconf",
			Version:     version,
			Port:        opts.metricsPort,
			Path:        "/metrics",
		}, metrics.WithLogger(logger))
		if err != nil {
			return err
		}
		meter = m
	}
	defer func() {
		if err := meter.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shutdown meter", clog.Error(err))
		}
	}()

	handler, err := namespace.NewHandler(namespace.WithLogger(logger), namespace.WithMeter(meter))
	if err != nil {
		return err
	}
	if err := handler.Register(couchbase.ElementName, couchbase.NewParser(couchbase.WithLogger(logger))); err != nil {
		return err
	}

	p := &parser{opts: opts, handler: handler, logger: logger}
	logger.Debug("parsing definitions", clog.String("source", opts.String()))
	if opts.configName != "" {
		loader, err := config.New(
			config.WithConfigName(opts.configName),
			config.WithConfigPaths(opts.configPaths...),
			config.WithEnvPrefix(opts.envPrefix),
			config.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		if err := loader.Load(ctx); err != nil {
			return err
		}
		p.loader = loader
	}

	if err := p.parseAndPrint(ctx, out); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}
	if p.loader != nil {
		return p.watchConfig(ctx, out)
	}
	return p.watchFile(ctx, out)
}

func (p *parser) parse(ctx context.Context) ([]namespace.BeanDefinition, error) {
	if p.loader != nil {
		elems, err := namespace.ElementsFromConfig(p.loader, p.opts.key)
		if err != nil {
			return nil, err
		}
		return p.handler.ParseElements(ctx, elems)
	}

	f, err := os.Open(p.opts.xmlFile)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open %s", p.opts.xmlFile)
	}
	defer f.Close()
	return p.handler.ParseDocument(ctx, f)
}

// resolve 通过容器实例化每个定义，得到实际交给客户端的构造参数
func (p *parser) resolve(defs []namespace.BeanDefinition) ([]definitionView, error) {
	reg := container.New(container.WithLogger(p.logger))
	for _, def := range defs {
		err := couchbase.Provide(reg, def, func(cfg couchbase.ResolvedConfig) (couchbase.ResolvedConfig, error) {
			return cfg, nil
		})
		if err != nil {
			return nil, err
		}
	}

	views := make([]definitionView, 0, len(defs))
	for _, id := range reg.Names() {
		cfg, err := container.Resolve[couchbase.ResolvedConfig](reg, id)
		if err != nil {
			return nil, err
		}
		def, _ := reg.Definition(id)
		views = append(views, definitionView{
			ID:          def.ID,
			Aliases:     def.Aliases,
			ClientType:  def.ClientType,
			Targets:     cfg.Hosts(),
			Bucket:      cfg.Bucket,
			PasswordSet: cfg.Password != "",
		})
	}
	return views, nil
}

func (p *parser) parseAndPrint(ctx context.Context, out io.Writer) error {
	defs, err := p.parse(ctx)
	if err != nil {
		return err
	}
	views, err := p.resolve(defs)
	if err != nil {
		return err
	}
	return render(out, p.opts.output, views)
}

func render(out io.Writer, format string, views []definitionView) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	default:
		return xerrors.Wrapf(errInvalidFlags, "unsupported output %q", format)
	}
}

// reparse 监听模式下解析失败只记录日志，继续等待下一次变更
func (p *parser) reparse(ctx context.Context, out io.Writer, source string) {
	p.logger.InfoContext(ctx, "source changed, re-parsing", clog.String("source", source))
	if err := p.parseAndPrint(ctx, out); err != nil {
		p.logger.ErrorContext(ctx, "failed to re-parse", clog.String("source", source), clog.Error(err))
	}
}

func (p *parser) watchConfig(ctx context.Context, out io.Writer) error {
	ch, err := p.loader.Watch(ctx, p.opts.key)
	if err != nil {
		return err
	}
	p.logger.Info("watching config", clog.String("key", p.opts.key))

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			p.reparse(ctx, out, evt.Key)
		}
	}
}

// watchFile 监听目录而非文件本身，编辑器保存时常以 rename 替换文件
func (p *parser) watchFile(ctx context.Context, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "create file watcher")
	}
	defer watcher.Close()

	target, err := filepath.Abs(p.opts.xmlFile)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return xerrors.Wrapf(err, "watch %s", filepath.Dir(target))
	}
	p.logger.Info("watching file", clog.String("file", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target || evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.reparse(ctx, out, target)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("file watcher error", clog.Error(err))
		}
	}
}

func (o *parseOptions) String() string {
	if o.xmlFile != "" {
		return fmt.Sprintf("xml:%s", o.xmlFile)
	}
	return fmt.Sprintf("config:%s[%s]", o.configName, o.key)
}
