// Package config 提供 OEF-Go 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，
// 覆盖节点连接、代理身份、本地 Broker、日志、指标与遥测。
package config
