package kafka_config

import "time"

const (
	DefaultBrokers = "localhost:9092"

	DefaultNotificationsTopic    = "rental-notifications"
	DefaultNotificationsDLQTopic = "rental-notifications-dlq"
	DefaultNotifierGroupID       = "rental-notifier"

	// OTP events are published synchronously inside Confirm, so the batch
	// window is kept short and every replica must ack.
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond

	// A new notifier group starts at the newest offset; codes issued while no
	// notifier existed are already stale.
	DefaultConsumerStartOffset    = -1
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = time.Second
	DefaultConsumerMaxRetries     = 3

	DefaultMiddleware = true
)
