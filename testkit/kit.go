// Package testkit 提供测试共用的依赖构造。
package testkit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/cbconf/clog"
	"github.com/ceyewan/cbconf/config"
	"github.com/ceyewan/cbconf/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	t.Helper()
	meter := NewMeter()
	t.Cleanup(func() {
		_ = meter.Shutdown(context.Background())
	})
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回一个用于测试的 logger
// 输出到开发环境格式，适合本地调试
func NewLogger() clog.Logger {
	logger, err := clog.New(clog.NewDevDefaultConfig())
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，不暴露 HTTP 端口
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的文件名或环境变量前缀，避免测试间互相干扰
func NewID() string {
	return uuid.New().String()[0:8]
}

// LoadConfig 将 content 写入临时目录下的 <name>.yaml 并加载。
// 环境变量前缀随机生成，宿主环境中的 CBCONF_* 不会影响结果。
func LoadConfig(t *testing.T, name, content string) config.Loader {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader, err := config.New(
		config.WithConfigName(name),
		config.WithConfigPaths(dir),
		config.WithEnvPrefix("CBCONF_TEST_"+strings.ToUpper(NewID())),
	)
	if err != nil {
		t.Fatalf("create loader: %v", err)
	}
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load config: %v", err)
	}
	return loader
}
