package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 Prometheus 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 注册表指标
	registryOperations *prometheus.CounterVec

	// 搜索指标
	searchesTotal *prometheus.CounterVec
	searchResults *prometheus.HistogramVec

	// 路由指标
	messagesRouted  *prometheus.CounterVec
	messagesDropped *prometheus.CounterVec
	mailboxes       prometheus.Gauge

	// 传输指标
	framesTotal     *prometheus.CounterVec
	frameSize       *prometheus.HistogramVec
	handshakesTotal *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认 Registry。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{}

	// 注册表指标
	c.registryOperations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_operations_total",
			Help:      "Total number of agent and service registry operations",
		},
		[]string{"directory", "operation", "result"},
	)

	// 搜索指标
	c.searchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches answered",
		},
		[]string{"directory"},
	)

	c.searchResults = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of agents returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"directory"},
	)

	// 路由指标
	c.messagesRouted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Total number of agent messages relayed by the node",
		},
		[]string{"kind"},
	)

	c.messagesDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Total number of messages the node could not deliver",
		},
		[]string{"reason"},
	)

	c.mailboxes = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mailboxes",
			Help:      "Number of connected agents with a mailbox",
		},
	)

	// 传输指标
	c.framesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames sent and received",
		},
		[]string{"transport", "direction"},
	)

	c.frameSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_size_bytes",
			Help:      "Frame payload size in bytes",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		},
		[]string{"direction"},
	)

	c.handshakesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Total number of connection handshakes by outcome",
		},
		[]string{"transport", "result"},
	)

	c.dispatchTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Total number of inbound messages dispatched to handlers",
		},
		[]string{"kind"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 📒 注册表与搜索指标记录
// =============================================================================

// RecordRegistryOperation 记录注册表操作
func (c *Collector) RecordRegistryOperation(directory, operation string, err error) {
	if c == nil {
		return
	}
	c.registryOperations.WithLabelValues(directory, operation, result(err)).Inc()
}

// RecordSearch 记录搜索及结果数量
func (c *Collector) RecordSearch(directory string, results int) {
	if c == nil {
		return
	}
	c.searchesTotal.WithLabelValues(directory).Inc()
	c.searchResults.WithLabelValues(directory).Observe(float64(results))
}

// =============================================================================
// 📬 路由指标记录
// =============================================================================

// RecordRouted 记录一次成功转发
func (c *Collector) RecordRouted(kind string) {
	if c == nil {
		return
	}
	c.messagesRouted.WithLabelValues(kind).Inc()
}

// RecordDropped 记录一次丢弃
func (c *Collector) RecordDropped(reason string) {
	if c == nil {
		return
	}
	c.messagesDropped.WithLabelValues(reason).Inc()
}

// SetMailboxes 设置在线邮箱数量
func (c *Collector) SetMailboxes(n int) {
	if c == nil {
		return
	}
	c.mailboxes.Set(float64(n))
}

// =============================================================================
// 🔌 传输指标记录
// =============================================================================

// RecordFrame 记录一帧收发
func (c *Collector) RecordFrame(transport, direction string, size int) {
	if c == nil {
		return
	}
	c.framesTotal.WithLabelValues(transport, direction).Inc()
	c.frameSize.WithLabelValues(direction).Observe(float64(size))
}

// RecordHandshake 记录握手结果
func (c *Collector) RecordHandshake(transport, outcome string) {
	if c == nil {
		return
	}
	c.handshakesTotal.WithLabelValues(transport, outcome).Inc()
}

// RecordDispatch 记录分发回调
func (c *Collector) RecordDispatch(kind string) {
	if c == nil {
		return
	}
	c.dispatchTotal.WithLabelValues(kind).Inc()
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// result 将错误转换为 label 值
func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
