// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"envportal-go/internal/config"
	"envportal-go/pkg/log"
	"envportal-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// DecisionPublisher defines the interface for publishing approval decision
// events. This decouples the approval service from the concrete Kafka client,
// so tests can substitute an in-memory publisher.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, event tasks.DecisionEvent) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// publisher 是 DecisionPublisher 的 Kafka 实现。
type publisher struct{}

// NewPublisher 返回基于全局生产者的 DecisionPublisher。
func NewPublisher() DecisionPublisher {
	return &publisher{}
}

// PublishDecision 发送一条审批决定事件到 Kafka。
// 事件以制品 ID 作为 key，保证同一制品的事件落在同一分区、保持顺序。
func (p *publisher) PublishDecision(ctx context.Context, event tasks.DecisionEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return producer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(event.ArtifactID), 10)),
			Value: eventBytes,
		},
	)
}
