package metrics

// Config 指标系统的配置
//
//	metrics:
//	  enabled: true
//	  service_name: "cbconf"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 作为 Resource 的 service.name 属性
	ServiceName string `mapstructure:"service_name"`

	// Version 作为 Resource 的 service.version 属性
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动 HTTP 服务器暴露 Prometheus 指标
	Port int `mapstructure:"port"`

	// Path 指标的 HTTP 路径，必须以 "/" 开头
	Path string `mapstructure:"path"`
}

// NewDevDefaultConfig 返回开发环境默认配置：启用但不暴露端口
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}
