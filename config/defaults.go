// =============================================================================
// 📦 OEF-Go 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultNodePort OEF 节点的默认端口
const DefaultNodePort = 3333

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Node:      DefaultNodeConfig(),
		Agent:     DefaultAgentConfig(),
		Broker:    DefaultBrokerConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultNodeConfig 返回默认节点配置
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		Addr:             "127.0.0.1",
		Port:             DefaultNodePort,
		DialTimeout:      10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		MaxFrameSize:     16 << 20,
	}
}

// DefaultAgentConfig 返回默认代理配置
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		PublicKey: "oef-agent",
	}
}

// DefaultBrokerConfig 返回默认 Broker 配置
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		MailboxWarnThreshold: 1024,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "oef",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "oef-go",
		SampleRate:   0.1,
	}
}
