package kafka_middleware

import (
	"rentmate/pkg/kafka"
	kafka_config "rentmate/pkg/kafka/config"
	"rentmate/pkg/logger"
)

type producerChain interface {
	Use(kafka.ProducerMiddleware)
}

type consumerChain interface {
	Use(kafka.ConsumerMiddleware)
}

// AttachProducer installs logging then metrics on p when cfg.Middleware is
// set. It reports whether anything was attached.
func AttachProducer(p producerChain, cfg *kafka_config.Config, log *logger.Logger, metrics *Metrics) bool {
	if cfg == nil || !cfg.Middleware {
		return false
	}
	p.Use(LoggingProducerMiddleware(log))
	if metrics != nil {
		p.Use(metrics.Producer())
	}
	return true
}

// AttachConsumer is AttachProducer for consumers.
func AttachConsumer(c consumerChain, cfg *kafka_config.Config, log *logger.Logger, metrics *Metrics) bool {
	if cfg == nil || !cfg.Middleware {
		return false
	}
	c.Use(LoggingConsumerMiddleware(log))
	if metrics != nil {
		c.Use(metrics.Consumer())
	}
	return true
}
