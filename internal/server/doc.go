// 版权所有 2024 OEF-Go Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 TCP 监听器的生命周期管理，支持非阻塞启动、
逐连接处理与优雅关闭。

# 核心类型

  - Manager：持有 net.Listener、在线连接表与异步错误通道，
    提供 Start/Shutdown/Errors/Addr/IsRunning 等生命周期方法。
  - Config：监听地址与优雅关闭超时。
  - ConnHandler：处理单个连接的回调，关闭时其 context 被取消。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中接受连接。
  - 优雅关闭：Shutdown 先取消处理器 context，超时后强制关闭连接。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控监听异常。
*/
package server
