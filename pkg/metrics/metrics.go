package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// MQ 消息处理结果
	MQMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_messages_total",
			Help: "Total number of consumed MQ messages by outcome",
		},
		[]string{"routing_key", "outcome"}, // outcome: ack, requeue, dead_letter, duplicate
	)

	// 慢查询计数
	DBSlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Total number of database queries slower than the configured threshold",
		},
		[]string{"statement"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 通知创建计数
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications persisted",
		},
		[]string{"kind"},
	)

	// 实时事件推送结果
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Real-time events handed to the dispatcher by outcome",
		},
		[]string{"event", "outcome"}, // outcome: delivered, dropped, no_subscriber
	)

	// 当前在线的实时会话数
	RealtimeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_sessions",
			Help: "Number of currently connected real-time sessions",
		},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// IncrementMQMessage 记录一条 MQ 消息的处理结果
func IncrementMQMessage(routingKey, outcome string) {
	MQMessagesTotal.WithLabelValues(routingKey, outcome).Inc()
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(statement string, duration time.Duration) {
	DBSlowQueries.WithLabelValues(statement).Inc()
	DBQueryDuration.WithLabelValues("slow", "").Observe(duration.Seconds())
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementNotificationCreated 增加通知创建计数
func IncrementNotificationCreated(kind string) {
	NotificationsCreated.WithLabelValues(kind).Inc()
}

// IncrementRealtimeEvent 记录一次实时事件推送结果
func IncrementRealtimeEvent(event, outcome string) {
	RealtimeEvents.WithLabelValues(event, outcome).Inc()
}
