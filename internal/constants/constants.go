package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultWebhookTimeout = 10 * time.Second
)

const (
	DefaultTaskEventTopic = "task_events"
	DefaultDLQTopic       = "task_events_dlq"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultPageSize       = 20
	MaxPageSize           = 100
	DefaultExecutionLimit = 10
	MaxExecutionLimit     = 100
)

const (
	DefaultScanInterval = time.Minute
	// Watermarks are refreshed on every scan that re-observes a crossing,
	// so the TTL only bounds how long Redis keeps a claim that nothing
	// observes anymore (task closed, due date moved, scanner down).
	DefaultWatermarkTTL = 45 * 24 * time.Hour
)

const (
	MaxActionsPerRule  = 10
	MinHoursBeforeDue  = 1
	MaxHoursBeforeDue  = 720
	MaxCommentLength   = 5000
	MaxTitleLength     = 200
	MaxMessageLength   = 1000
	MaxEmailBodyLength = 10000
	MaxRuleNameLength  = 100
	MaxDescriptionLen  = 500
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)
