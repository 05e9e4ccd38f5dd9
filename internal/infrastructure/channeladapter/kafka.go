package channeladapter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/tracing"
)

// MessageWriter kafka.Writer的抽象
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter 同步写、全部副本确认，按key哈希分区保证同一渠道有序
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
}

// Kafka 把渠道请求写入topic，key为渠道ID
type Kafka struct {
	w       MessageWriter
	topic   string
	metrics *metrics.Metrics
}

// NewKafka 创建Kafka适配器
func NewKafka(w MessageWriter, topic string, m *metrics.Metrics) *Kafka {
	return &Kafka{w: w, topic: topic, metrics: m}
}

func (a *Kafka) Call(ctx context.Context, req integration.Request) (json.RawMessage, error) {
	body, err := json.Marshal(Envelope{
		ChannelID: req.ChannelID,
		Operation: req.Operation,
		Payload:   req.Payload,
		TraceID:   tracing.TraceID(ctx),
	})
	if err != nil {
		return nil, err
	}

	key := strconv.FormatUint(uint64(req.ChannelID), 10)
	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(req.Operation)},
		},
	}
	if err := a.w.WriteMessages(ctx, msg); err != nil {
		return nil, err
	}
	a.metrics.MessagesPublishedTotal.WithLabelValues("kafka", a.topic).Inc()
	return json.Marshal(publishResponse{Published: true, Destination: a.topic, Key: key})
}

// Close 关闭writer，刷出缓冲
func (a *Kafka) Close() error {
	return a.w.Close()
}
