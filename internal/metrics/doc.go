// 版权所有 2024 OEF-Go Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的 OEF 代理与本地节点指标采集能力，覆盖
注册表、搜索、消息路由与连接传输四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用
promauto.With(registerer) 注册到调用方提供的 Registerer（为空时使用
默认 Registry）。所有指标按 namespace 隔离，nil Collector 的全部方法
均为空操作，组件无需判断是否启用指标。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - 注册表指标：register/unregister 操作计数，按 directory/operation/result 分组。
  - 搜索指标：搜索次数与结果数量分布，按 directory 分组。
  - 路由指标：转发与丢弃的消息计数，以及当前在线邮箱数量 Gauge。
  - 传输指标：帧收发计数与帧大小分布、握手结果、分发回调计数。
*/
package metrics
