package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/cbconf/clog"
	"github.com/ceyewan/cbconf/xerrors"
)

// loader 实现 Loader 接口
//
// viper 本身不是并发安全的：vmu 保护 v，文件变更时的重新加载持写锁，
// 所有读取持读锁。mu 保护 watches/oldValues，加锁顺序固定为先 mu 后 vmu。
type loader struct {
	vmu sync.RWMutex
	v   *viper.Viper

	opts   *Options
	logger clog.Logger

	mu        sync.Mutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(opts ...Option) (Loader, error) {
	options := defaultOptions()
	for _, o := range opts {
		o(options)
	}
	if options.Name == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "config name must not be empty")
	}

	return &loader{
		v:         viper.New(),
		opts:      options,
		logger:    options.Logger,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}, nil
}

// Load 初始化并从所有来源加载配置，随后监听配置文件变化直到 ctx 结束
func (l *loader) Load(ctx context.Context) error {
	if err := l.read(); err != nil {
		return err
	}

	if err := l.Validate(); err != nil {
		return err
	}

	l.captureCurrentValues()

	if err := l.watchConfigFile(ctx); err != nil {
		l.logger.Warn("configuration hot reload disabled", clog.Error(err))
	}

	l.logger.InfoContext(ctx, "configuration loaded", clog.String("file", l.configFileUsed()))
	return nil
}

func (l *loader) read() error {
	l.vmu.Lock()
	defer l.vmu.Unlock()

	l.v.SetConfigName(l.opts.Name)
	l.v.SetConfigType(l.opts.FileType)
	for _, path := range l.opts.Paths {
		l.v.AddConfigPath(path)
	}

	// 环境变量优先级最高，先设置
	l.v.SetEnvPrefix(l.opts.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.loadDotEnv(); err != nil {
		l.logger.Debug("no .env file loaded", clog.Error(err))
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(err, "failed to read config file %s", l.opts.Name)
		}
		l.logger.Warn("no configuration file found",
			clog.String("name", l.opts.Name), clog.Strings("paths", l.opts.Paths))
	}

	return l.loadEnvironmentConfig()
}

// reload 在写锁下重新读取基础配置与环境特定配置
func (l *loader) reload() error {
	l.vmu.Lock()
	defer l.vmu.Unlock()

	if err := l.v.ReadInConfig(); err != nil {
		return xerrors.Wrapf(err, "failed to re-read config file %s", l.opts.Name)
	}
	return l.loadEnvironmentConfig()
}

func (l *loader) configFileUsed() string {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.v.ConfigFileUsed()
}

// watchConfigFile 监听配置文件所在目录，<name>.* 文件写入或创建时重新加载。
// 监听目录而非文件本身，编辑器保存时常以 rename 替换文件。
func (l *loader) watchConfigFile(ctx context.Context) error {
	file := l.configFileUsed()
	if file == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "create config watcher")
	}
	dir := filepath.Dir(file)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return xerrors.Wrapf(err, "watch %s", dir)
	}

	prefix := l.opts.Name + "."
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.HasPrefix(filepath.Base(evt.Name), prefix) {
					continue
				}
				if err := l.reload(); err != nil {
					l.logger.Error("failed to reload configuration", clog.Error(err))
					continue
				}
				l.notifyWatches()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", clog.Error(err))
			}
		}
	}()
	return nil
}

// loadDotEnv 尝试从工作目录和搜索路径加载 .env 文件
func (l *loader) loadDotEnv() error {
	var envLoaded bool
	var lastErr error

	candidates := []string{".env"}
	for _, path := range l.opts.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}
	for _, envPath := range candidates {
		if err := godotenv.Load(envPath); err == nil {
			envLoaded = true
		} else {
			lastErr = err
		}
	}

	if !envLoaded && lastErr != nil {
		return lastErr
	}
	return nil
}

// loadEnvironmentConfig 合并 <name>.<env> 环境特定配置，env 取自 <PREFIX>_ENV。
// 调用方须持有 vmu 写锁。
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(fmt.Sprintf("%s_ENV", l.opts.EnvPrefix))
	if env == "" {
		return nil
	}

	envConfigName := fmt.Sprintf("%s.%s", l.opts.Name, env)
	l.v.SetConfigName(envConfigName)
	defer l.v.SetConfigName(l.opts.Name)

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(err, "failed to merge environment config %s", envConfigName)
		}
		l.logger.Debug("no environment configuration file found", clog.String("env", env))
		return nil
	}
	l.logger.Info("loaded environment configuration", clog.String("env", env))
	return nil
}

func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.watches {
		l.oldValues[key] = l.Get(key)
	}
}

// Get 根据 key 获取配置值
func (l *loader) Get(key string) any {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.v.Get(key)
}

// Unmarshal 将整个配置反序列化到结构体
func (l *loader) Unmarshal(v any) error {
	l.vmu.RLock()
	defer l.vmu.RUnlock()
	return l.v.Unmarshal(v)
}

// UnmarshalKey 将特定配置 key 反序列化到结构体
func (l *loader) UnmarshalKey(key string, v any) error {
	l.vmu.RLock()
	defer l.vmu.RUnlock()

	if !l.v.IsSet(key) {
		return xerrors.Wrapf(xerrors.ErrNotFound, "config key %q", key)
	}
	return l.v.UnmarshalKey(key, v)
}

// Watch 订阅特定配置 key 的变更，ctx 结束后通道关闭
func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.Get(key)

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()

	return ch, nil
}

func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if chans, ok := l.watches[key]; ok {
		for i, c := range chans {
			if c == ch {
				l.watches[key] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(l.watches[key]) == 0 {
			delete(l.watches, key)
			delete(l.oldValues, key)
		}
	}
	// 只有 removeWatch 会关闭通道，且在持锁状态下，notifyWatches 不会再写入
	close(ch)
}

// Validate 验证配置非空
func (l *loader) Validate() error {
	l.vmu.RLock()
	defer l.vmu.RUnlock()

	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrapf(ErrValidationFailed, "configuration is empty")
	}
	return nil
}

// notifyWatches 对比新旧值并通知监听者
func (l *loader) notifyWatches() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, channels := range l.watches {
		newValue := l.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Source:    "file",
			Timestamp: time.Now(),
		}
		l.oldValues[key] = newValue

		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.logger.Warn("watch channel is full, dropping event", clog.String("key", key))
			}
		}
	}
}
